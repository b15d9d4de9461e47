package draft

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunpower-services/invoicing-api/internal/erp"
	"github.com/sunpower-services/invoicing-api/internal/pricing"
	"github.com/sunpower-services/invoicing-api/internal/stock"
)

// Reducer errors. All are recoverable: the prior draft value stays valid.
var (
	ErrRowIndex        = errors.New("line item index out of range")
	ErrZeroQuantity    = errors.New("quantity must be at least 1 for an in-stock product")
	ErrSalesOnly       = errors.New("overall discount applies to sales invoices only")
	ErrUnknownAction   = errors.New("unknown action")
	ErrLocationMissing = errors.New("location is required")
)

// Action is one user-visible edit of the draft.
type Action interface {
	name() string
}

// AddItem appends one empty row.
type AddItem struct{}

// RemoveItem deletes the row at Index. Removing the last remaining row
// immediately re-inserts one empty row; the item list is never empty.
type RemoveItem struct{ Index int }

// SelectProduct binds a row to a product, copying price, tax rate and the
// descriptive fields from the product snapshot. The copy is one-time; later
// catalog changes do not touch existing rows. An out-of-stock product forces
// the row quantity to zero.
type SelectProduct struct {
	Index   int
	Product erp.Product
}

// SetQuantity edits a row quantity. Increment marks the spinner path, where
// an over-request is clamped to availability; direct entry keeps the typed
// value and reports it invalid instead.
type SetQuantity struct {
	Index     int
	Quantity  int64
	Increment bool
}

// SetUnitPrice overrides the snapshotted unit price of a row.
type SetUnitPrice struct {
	Index int
	Price decimal.Decimal
}

// SetDiscount sets the per-line discount percentage.
type SetDiscount struct {
	Index   int
	Percent decimal.Decimal
}

// SetOverallDiscount sets the invoice-level discount percentage. Sales
// invoices only.
type SetOverallDiscount struct{ Percent decimal.Decimal }

// SetLocation switches the active stock location. The previous location's
// statuses are discarded wholesale; callers rebuild the snapshot and follow
// up with Revalidate.
type SetLocation struct{ LocationID string }

// Revalidate re-checks every row against the supplied snapshot, forcing
// quantities to zero on rows that went out of stock.
type Revalidate struct{}

// SetServiceCharges replaces the service charge list.
type SetServiceCharges struct{ Charges []pricing.ServiceCharge }

// SetBuyBack replaces (or with nil clears) the battery buy-back deduction.
type SetBuyBack struct{ BuyBack *pricing.BuyBack }

// SetCustomer binds the customer and address snapshots.
type SetCustomer struct {
	CustomerID      string
	BillingAddress  erp.Address
	ShippingAddress erp.Address
}

// SetNotes sets the free-text notes field.
type SetNotes struct{ Notes string }

func (AddItem) name() string            { return "add_item" }
func (RemoveItem) name() string         { return "remove_item" }
func (SelectProduct) name() string      { return "select_product" }
func (SetQuantity) name() string        { return "set_quantity" }
func (SetUnitPrice) name() string       { return "set_unit_price" }
func (SetDiscount) name() string        { return "set_discount" }
func (SetOverallDiscount) name() string { return "set_overall_discount" }
func (SetLocation) name() string        { return "set_location" }
func (Revalidate) name() string         { return "revalidate" }
func (SetServiceCharges) name() string  { return "set_service_charges" }
func (SetBuyBack) name() string         { return "set_buyback" }
func (SetCustomer) name() string        { return "set_customer" }
func (SetNotes) name() string           { return "set_notes" }

// Apply is the pure reducer: it returns a new draft with the action applied
// and totals, stock statuses and the focus hint recomputed from scratch. The
// input draft is never modified. snap may be nil when no location is active.
func Apply(d Draft, action Action, snap *stock.Snapshot) (Draft, error) {
	next := d.clone()

	switch act := action.(type) {
	case AddItem:
		next.Items = append(next.Items, pricing.LineItem{})
		next.Focus = FieldItemProduct

	case RemoveItem:
		if act.Index < 0 || act.Index >= len(next.Items) {
			return d, fmt.Errorf("remove item %d: %w", act.Index, ErrRowIndex)
		}
		next.Items = append(next.Items[:act.Index], next.Items[act.Index+1:]...)
		if len(next.Items) == 0 {
			next.Items = []pricing.LineItem{{}}
		}
		next.Focus = FieldItemProduct

	case SelectProduct:
		if act.Index < 0 || act.Index >= len(next.Items) {
			return d, fmt.Errorf("select product on item %d: %w", act.Index, ErrRowIndex)
		}
		row := &next.Items[act.Index]
		row.ProductID = act.Product.ID
		row.Description = act.Product.Name
		row.PartNo = act.Product.PartNo
		row.HSNCode = act.Product.HSNCode
		row.UOM = act.Product.UOM
		row.UnitPrice = pricing.ClampAmount(act.Product.Price)
		row.TaxRate = pricing.ClampPercent(act.Product.TaxRate)
		if row.Quantity == 0 {
			row.Quantity = 1
		}
		if snap != nil && !rowInStock(act.Product.ID, snap) {
			row.Quantity = 0
		}
		next.Focus = NextField(FieldItemProduct, next.DocType)

	case SetQuantity:
		if act.Index < 0 || act.Index >= len(next.Items) {
			return d, fmt.Errorf("set quantity on item %d: %w", act.Index, ErrRowIndex)
		}
		row := &next.Items[act.Index]
		qty := pricing.ClampQuantity(act.Quantity)
		if act.Increment {
			qty = stock.ClampQuantity(row.ProductID, qty, snap)
		} else if qty == 0 && next.DocType.ReducesStock() && rowInStock(row.ProductID, snap) {
			return d, ErrZeroQuantity
		}
		row.Quantity = qty
		next.Focus = NextField(FieldItemQuantity, next.DocType)

	case SetUnitPrice:
		if act.Index < 0 || act.Index >= len(next.Items) {
			return d, fmt.Errorf("set unit price on item %d: %w", act.Index, ErrRowIndex)
		}
		next.Items[act.Index].UnitPrice = pricing.ClampAmount(act.Price)
		next.Focus = NextField(FieldItemUnitPrice, next.DocType)

	case SetDiscount:
		if act.Index < 0 || act.Index >= len(next.Items) {
			return d, fmt.Errorf("set discount on item %d: %w", act.Index, ErrRowIndex)
		}
		next.Items[act.Index].Discount = pricing.ClampPercent(act.Percent)
		next.Focus = NextField(FieldItemDiscount, next.DocType)

	case SetOverallDiscount:
		if next.DocType != DocSalesInvoice {
			return d, ErrSalesOnly
		}
		next.OverallDiscount = pricing.ClampPercent(act.Percent)
		next.Focus = NextField(FieldOverallDiscount, next.DocType)

	case SetLocation:
		if act.LocationID == "" {
			return d, ErrLocationMissing
		}
		next.LocationID = act.LocationID
		// Old statuses are meaningless for the new location; report "not
		// applicable" until the rebuilt snapshot arrives via Revalidate.
		snap = nil
		next.Focus = NextField(FieldLocation, next.DocType)

	case Revalidate:
		for i := range next.Items {
			if next.Items[i].ProductID == "" {
				continue
			}
			if snap != nil && !rowInStock(next.Items[i].ProductID, snap) {
				next.Items[i].Quantity = 0
			}
		}

	case SetServiceCharges:
		next.ServiceCharges = sanitizeCharges(act.Charges)
		next.Focus = NextField(FieldServiceCharges, next.DocType)

	case SetBuyBack:
		if act.BuyBack != nil {
			bb := *act.BuyBack
			bb.Quantity = pricing.ClampQuantity(bb.Quantity)
			bb.UnitPrice = pricing.ClampAmount(bb.UnitPrice)
			bb.Discount = pricing.ClampPercent(bb.Discount)
			next.BuyBack = &bb
		} else {
			next.BuyBack = nil
		}
		next.Focus = NextField(FieldBuyBack, next.DocType)

	case SetCustomer:
		if act.CustomerID == "" {
			return d, errors.New("customer is required")
		}
		next.CustomerID = act.CustomerID
		next.BillingAddress = act.BillingAddress
		next.ShippingAddress = act.ShippingAddress
		next.Focus = NextField(FieldCustomer, next.DocType)

	case SetNotes:
		next.Notes = act.Notes
		next.Focus = NextField(FieldNotes, next.DocType)

	default:
		return d, ErrUnknownAction
	}

	next.finish(snap)
	return next, nil
}

// finish recomputes every piece of derived state. Called after each action so
// totals and statuses can never drift from their constituents.
func (d *Draft) finish(snap *stock.Snapshot) {
	for i := range d.Items {
		d.Items[i].Recalculate()
	}
	for i := range d.ServiceCharges {
		d.ServiceCharges[i].Recalculate()
	}
	if d.BuyBack != nil {
		d.BuyBack.Recalculate()
	}
	overall := decimal.Zero
	if d.DocType == DocSalesInvoice {
		overall = d.OverallDiscount
	}
	d.Totals = pricing.Compute(d.Items, d.ServiceCharges, d.BuyBack, overall)
	if d.LocationID == "" {
		snap = nil
	}
	d.Stock = stock.ValidateItems(d.Items, snap)
	d.Updated = time.Now().UTC()
}

func rowInStock(productID string, snap *stock.Snapshot) bool {
	if productID == "" || snap == nil || snap.Failed {
		return false
	}
	entry, ok := snap.Lookup(productID)
	return ok && entry.Available > 0
}

func sanitizeCharges(charges []pricing.ServiceCharge) []pricing.ServiceCharge {
	out := make([]pricing.ServiceCharge, 0, len(charges))
	for _, sc := range charges {
		sc.Quantity = pricing.ClampQuantity(sc.Quantity)
		sc.UnitPrice = pricing.ClampAmount(sc.UnitPrice)
		sc.Discount = pricing.ClampPercent(sc.Discount)
		sc.TaxRate = pricing.ClampPercent(sc.TaxRate)
		out = append(out, sc)
	}
	return out
}
