package draft

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sunpower-services/invoicing-api/internal/catalog"
	"github.com/sunpower-services/invoicing-api/internal/common"
	"github.com/sunpower-services/invoicing-api/internal/erp"
	"github.com/sunpower-services/invoicing-api/internal/obs"
	"github.com/sunpower-services/invoicing-api/internal/stock"
)

// Service orchestrates draft edits: it loads state, fetches the active stock
// snapshot, applies a reducer action and saves the result. Submission builds
// the normalized payload and delegates persistence to the backend.
type Service struct {
	Store    Store
	Catalog  *catalog.Service
	Stock    *stock.Service
	Backend  erp.InvoiceWriter
	Validate *validator.Validate
	Company  erp.CompanyDetails
	Logger   zerolog.Logger
}

// Create opens a new draft of the given document type.
func (s *Service) Create(ctx context.Context, docType DocType) (Draft, error) {
	if s == nil || s.Backend == nil {
		return Draft{}, errors.New("draft service not configured")
	}
	if !docType.Valid() {
		return Draft{}, common.NewAppError("BAD_REQUEST", "unknown invoice type", http.StatusBadRequest, nil).
			WithDetails(map[string]any{"invoiceType": string(docType)})
	}
	return s.Store.Create(ctx, New(uuid.NewString(), docType))
}

// Get returns the current draft state.
func (s *Service) Get(ctx context.Context, id string) (Draft, error) {
	return s.Store.Get(ctx, id)
}

// Discard drops an abandoned draft. The draft must exist; discarding is not
// idempotent so a mistyped id surfaces as 404 rather than silent success.
func (s *Service) Discard(ctx context.Context, id string) error {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return err
	}
	return s.Store.Delete(ctx, id)
}

// Apply loads the draft, runs one reducer action against the active stock
// snapshot and persists the result.
func (s *Service) Apply(ctx context.Context, id string, action Action) (Draft, error) {
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	snap := s.snapshot(ctx, d.LocationID)
	next, err := Apply(d, action, snap)
	if err != nil {
		return Draft{}, err
	}
	if obs.DraftActionsTotal != nil {
		obs.DraftActionsTotal.WithLabelValues(action.name()).Inc()
	}
	return s.Store.Save(ctx, next, d.Revision)
}

// SelectProduct resolves the product from the catalog and binds it to a row.
func (s *Service) SelectProduct(ctx context.Context, id string, index int, productID string) (Draft, error) {
	product, err := s.Catalog.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Draft{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Draft{}, err
	}
	return s.Apply(ctx, id, SelectProduct{Index: index, Product: product})
}

// SetCustomer resolves the customer from the catalog and snapshots its
// addresses into the draft. The first address serves both roles unless a
// separate shipping address exists.
func (s *Service) SetCustomer(ctx context.Context, id, customerID string) (Draft, error) {
	customer, err := s.Catalog.CustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Draft{}, common.NewAppError("NOT_FOUND", "customer not found", http.StatusNotFound, err)
		}
		return Draft{}, err
	}
	var billing, shipping erp.Address
	if len(customer.Addresses) > 0 {
		billing = customer.Addresses[0]
		shipping = customer.Addresses[0]
	}
	if len(customer.Addresses) > 1 {
		shipping = customer.Addresses[1]
	}
	return s.Apply(ctx, id, SetCustomer{CustomerID: customer.ID, BillingAddress: billing, ShippingAddress: shipping})
}

// SetLocation switches the active location, rebuilds its snapshot and
// re-validates every row against it.
func (s *Service) SetLocation(ctx context.Context, id, locationID string) (Draft, error) {
	if _, err := s.Catalog.LocationByID(ctx, locationID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Draft{}, common.NewAppError("NOT_FOUND", "location not found", http.StatusNotFound, err)
		}
		return Draft{}, err
	}
	d, err := s.Apply(ctx, id, SetLocation{LocationID: locationID})
	if err != nil {
		return Draft{}, err
	}
	if _, err := s.Stock.Rebuild(ctx, locationID); err != nil {
		s.Logger.Warn().Err(err).Str("location", locationID).Msg("snapshot rebuild failed after location change")
	}
	return s.Apply(ctx, d.ID, Revalidate{})
}

// Submit validates the draft and persists it through the backend. Totals are
// recomputed from current state before every attempt; a failed submission
// leaves the draft untouched so the user can correct and resubmit.
func (s *Service) Submit(ctx context.Context, id string) (erp.InvoiceResult, error) {
	if s == nil || s.Backend == nil {
		return erp.InvoiceResult{}, errors.New("draft service not configured")
	}
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return erp.InvoiceResult{}, err
	}

	snap := s.snapshot(ctx, d.LocationID)
	refreshed, err := Apply(d, Revalidate{}, snap)
	if err != nil {
		return erp.InvoiceResult{}, err
	}

	payload := s.buildPayload(refreshed)
	if err := s.validatePayload(payload, refreshed, snap); err != nil {
		return erp.InvoiceResult{}, s.recordSubmit(refreshed.DocType, "validation_failed", err)
	}

	if refreshed.DocType.ReducesStock() {
		if err := s.checkShortfalls(refreshed, snap); err != nil {
			return erp.InvoiceResult{}, s.recordSubmit(refreshed.DocType, "stock_shortfall", err)
		}
	}

	var result erp.InvoiceResult
	if refreshed.InvoiceID != "" {
		result, err = s.Backend.UpdateInvoice(ctx, refreshed.InvoiceID, payload)
	} else {
		result, err = s.Backend.CreateInvoice(ctx, payload)
	}
	if err != nil {
		return erp.InvoiceResult{}, s.recordSubmit(refreshed.DocType, "backend_error", mapSubmitError(err))
	}

	refreshed.InvoiceID = result.ID
	if _, err := s.Store.Save(ctx, refreshed, d.Revision); err != nil {
		s.Logger.Warn().Err(err).Str("draft", id).Msg("draft save after submit failed")
	}
	_ = s.recordSubmit(refreshed.DocType, "success", nil)
	return result, nil
}

func (s *Service) snapshot(ctx context.Context, locationID string) *stock.Snapshot {
	if locationID == "" || s.Stock == nil {
		return nil
	}
	snap, err := s.Stock.Snapshot(ctx, locationID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("location", locationID).Msg("snapshot load failed")
		return nil
	}
	return snap
}

// validatePayload runs structural validation, filtering quantity-required
// failures for rows legitimately zeroed because their product is out of
// stock. Remaining failures are aggregated into one error.
func (s *Service) validatePayload(payload erp.InvoicePayload, d Draft, snap *stock.Snapshot) error {
	var problems []string

	if s.Validate != nil {
		if err := s.Validate.Struct(payload); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					problems = append(problems, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
				}
			} else {
				return err
			}
		}
	}

	hasBillable := false
	for i, item := range d.Items {
		if item.ProductID == "" {
			if len(d.Items) > 1 {
				problems = append(problems, fmt.Sprintf("item %d: product is required", i+1))
			}
			continue
		}
		if item.Quantity <= 0 {
			if zeroedByStock(item.ProductID, snap) {
				// Zeroed by the validator, not by the user. Structurally fine;
				// the row is dropped from the payload.
				continue
			}
			problems = append(problems, fmt.Sprintf("item %d: quantity is required", i+1))
			continue
		}
		hasBillable = true
	}
	if !hasBillable {
		problems = append(problems, "at least one item with a product and a positive quantity is required")
	}

	if len(problems) > 0 {
		return common.NewAppError("VALIDATION_FAILED", "draft is not ready for submission", http.StatusUnprocessableEntity, nil).
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}

// checkShortfalls re-checks every row against the latest snapshot and
// aggregates all shortfall messages into one error, so the user sees the
// whole problem at once instead of fixing rows one by one.
func (s *Service) checkShortfalls(d Draft, snap *stock.Snapshot) error {
	var shortfalls []string
	for i, item := range d.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		status := stock.Validate(item.ProductID, item.Quantity, snap)
		if !status.Valid {
			shortfalls = append(shortfalls, fmt.Sprintf("item %d (%s): %s", i+1, item.Description, status.Message))
		}
	}
	if len(shortfalls) > 0 {
		return common.NewAppError("STOCK_SHORTFALL", "requested quantities exceed availability", http.StatusConflict, nil).
			WithDetails(map[string]any{"shortfalls": shortfalls})
	}
	return nil
}

// buildPayload assembles the normalized submission body: type tag, sanitized
// rows, address snapshots and the company/bank snapshot. Rows without a
// product or with zero quantity are dropped.
func (s *Service) buildPayload(d Draft) erp.InvoicePayload {
	items := make([]erp.InvoiceItem, 0, len(d.Items))
	for _, item := range d.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		items = append(items, erp.InvoiceItem{
			Product:          item.ProductID,
			Description:      item.Description,
			PartNo:           item.PartNo,
			HSNCode:          item.HSNCode,
			UOM:              item.UOM,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TaxRate:          item.TaxRate,
			Discount:         item.Discount,
			DiscountedAmount: item.DiscountedAmount,
			TaxAmount:        item.TaxAmount,
			TotalPrice:       item.TotalPrice,
		})
	}

	charges := make([]erp.InvoiceItem, 0, len(d.ServiceCharges))
	for _, sc := range d.ServiceCharges {
		charges = append(charges, erp.InvoiceItem{
			Description:      sc.Description,
			Quantity:         sc.Quantity,
			UnitPrice:        sc.UnitPrice,
			TaxRate:          sc.TaxRate,
			Discount:         sc.Discount,
			DiscountedAmount: sc.DiscountedAmount,
			TaxAmount:        sc.TaxAmount,
			TotalPrice:       sc.TotalPrice,
		})
	}

	var buyBack *erp.InvoiceItem
	if d.BuyBack != nil {
		buyBack = &erp.InvoiceItem{
			Description:      d.BuyBack.Description,
			Quantity:         d.BuyBack.Quantity,
			UnitPrice:        d.BuyBack.UnitPrice,
			Discount:         d.BuyBack.Discount,
			DiscountedAmount: d.BuyBack.DiscountedAmount,
			TotalPrice:       d.BuyBack.TotalPrice,
		}
	}

	return erp.InvoicePayload{
		DocType:               string(d.DocType),
		CustomerID:            d.CustomerID,
		LocationID:            d.LocationID,
		BillingAddress:        d.BillingAddress,
		ShippingAddress:       d.ShippingAddress,
		Items:                 items,
		ServiceCharges:        charges,
		BatteryBuyBack:        buyBack,
		OverallDiscount:       d.OverallDiscount,
		OverallDiscountAmount: d.Totals.OverallDiscountAmount,
		Subtotal:              d.Totals.Subtotal,
		TotalDiscount:         d.Totals.TotalDiscount,
		TotalTax:              d.Totals.TotalTax,
		GrandTotal:            d.Totals.GrandTotal,
		RoundOff:              d.Totals.RoundOff,
		Company:               s.Company,
		Notes:                 strings.TrimSpace(d.Notes),
		ReduceStock:           d.DocType.ReducesStock(),
	}
}

func (s *Service) recordSubmit(docType DocType, result string, err error) error {
	if obs.SubmissionTotal != nil {
		obs.SubmissionTotal.WithLabelValues(string(docType), result).Inc()
	}
	return err
}

// zeroedByStock reports whether a zero-quantity row was forced there by the
// stock validator rather than left unfilled by the user.
func zeroedByStock(productID string, snap *stock.Snapshot) bool {
	if productID == "" || snap == nil {
		return false
	}
	return !stock.Validate(productID, 1, snap).Valid
}

func mapSubmitError(err error) error {
	var rejected *erp.ErrRejected
	if errors.As(err, &rejected) {
		return common.NewAppError("BACKEND_REJECTED", rejected.Message, http.StatusUnprocessableEntity, err)
	}
	if errors.Is(err, erp.ErrUnavailable) {
		return common.NewAppError("BACKEND_UNAVAILABLE", "backend is unreachable", http.StatusServiceUnavailable, err)
	}
	return err
}
