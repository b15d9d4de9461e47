package draft_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sunpower-services/invoicing-api/internal/catalog"
	"github.com/sunpower-services/invoicing-api/internal/common"
	"github.com/sunpower-services/invoicing-api/internal/draft"
	"github.com/sunpower-services/invoicing-api/internal/erp"
	"github.com/sunpower-services/invoicing-api/internal/stock"
)

func newTestService(t *testing.T) (*draft.Service, *erp.Mock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := erp.NewMock()
	cat := &catalog.Service{
		Backend: backend,
		Cache:   catalog.NewCache(client, time.Minute),
	}
	stocks := &stock.Service{
		Stock:   backend,
		Catalog: cat,
		Store:   stock.Store{R: client, TTL: time.Minute},
	}
	svc := &draft.Service{
		Store:    draft.Store{R: client, TTL: time.Hour},
		Catalog:  cat,
		Stock:    stocks,
		Backend:  backend,
		Validate: validator.New(),
		Company: erp.CompanyDetails{
			Name:    "Sun Power Services",
			Address: "Chennai",
			Bank:    erp.BankDetails{BankName: "SBI", AccountNo: "123", IFSC: "SBIN0001", Branch: "Anna Nagar"},
		},
	}
	return svc, backend
}

// composeDraft walks the normal entry flow: customer, location, product, quantity.
func composeDraft(t *testing.T, svc *draft.Service, docType draft.DocType, qty int64) draft.Draft {
	t.Helper()
	ctx := context.Background()

	d, err := svc.Create(ctx, docType)
	require.NoError(t, err)
	d, err = svc.SetCustomer(ctx, d.ID, "cust-1")
	require.NoError(t, err)
	d, err = svc.SetLocation(ctx, d.ID, "loc-main")
	require.NoError(t, err)
	d, err = svc.SelectProduct(ctx, d.ID, 0, "prod-battery")
	require.NoError(t, err)
	d, err = svc.Apply(ctx, d.ID, draft.SetQuantity{Index: 0, Quantity: qty})
	require.NoError(t, err)
	return d
}

func TestDiscardRemovesDraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, draft.DocQuotation)
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, d.ID))
	_, err = svc.Get(ctx, d.ID)
	require.ErrorIs(t, err, draft.ErrNotFound)

	require.ErrorIs(t, svc.Discard(ctx, "no-such-draft"), draft.ErrNotFound)
}

func TestSubmitSalesInvoice(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	d := composeDraft(t, svc, draft.DocSalesInvoice, 2)
	require.True(t, d.Stock[0].Valid)

	result, err := svc.Submit(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "inv-mock-1", result.ID)
	require.Equal(t, "INV-0001", result.InvoiceNumber)

	require.Len(t, backend.Submitted, 1)
	payload := backend.Submitted[0]
	require.Equal(t, "sales_invoice", payload.DocType)
	require.Equal(t, "cust-1", payload.CustomerID)
	require.Equal(t, "loc-main", payload.LocationID)
	require.True(t, payload.ReduceStock)
	require.Len(t, payload.Items, 1)
	require.EqualValues(t, 2, payload.Items[0].Quantity)
	require.Equal(t, "Sun Power Services", payload.Company.Name)
	// 2 x 12500 at 28% tax.
	require.True(t, payload.GrandTotal.Equal(decimal.NewFromInt(32000)), "got %s", payload.GrandTotal)

	// The draft now tracks the backend invoice id for subsequent updates.
	saved, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "inv-mock-1", saved.InvoiceID)
}

func TestSubmitAbortsOnAggregatedShortfall(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	// 9 exceeds the 5 available at loc-main; direct entry keeps the value.
	d := composeDraft(t, svc, draft.DocSalesInvoice, 9)

	_, err := svc.Submit(ctx, d.ID)
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "STOCK_SHORTFALL", appErr.Code)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	require.Contains(t, details, "shortfalls")
	require.Empty(t, backend.Submitted)

	// Draft survives the failed attempt untouched.
	saved, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.EqualValues(t, 9, saved.Items[0].Quantity)
}

func TestSubmitChallanIgnoresShortfall(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	d := composeDraft(t, svc, draft.DocDeliveryChallan, 9)

	_, err := svc.Submit(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, backend.Submitted, 1)
	require.False(t, backend.Submitted[0].ReduceStock)
}

func TestSubmitFiltersRowsZeroedByStock(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	d := composeDraft(t, svc, draft.DocSalesInvoice, 2)
	d, err := svc.Apply(ctx, d.ID, draft.AddItem{})
	require.NoError(t, err)
	// prod-cable is not stocked at loc-main, so selection zeroes the row.
	d, err = svc.SelectProduct(ctx, d.ID, 1, "prod-cable")
	require.NoError(t, err)
	require.EqualValues(t, 0, d.Items[1].Quantity)

	_, err = svc.Submit(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, backend.Submitted, 1)
	require.Len(t, backend.Submitted[0].Items, 1)
	require.Equal(t, "prod-battery", backend.Submitted[0].Items[0].Product)
}

func TestSubmitRequiresBillableRow(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, draft.DocSalesInvoice)
	require.NoError(t, err)
	_, err = svc.SetCustomer(ctx, d.ID, "cust-1")
	require.NoError(t, err)
	_, err = svc.SetLocation(ctx, d.ID, "loc-main")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, d.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_FAILED", appErr.Code)
	require.Empty(t, backend.Submitted)
}

func TestSubmitBackendRejectionPreservesDraft(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	d := composeDraft(t, svc, draft.DocSalesInvoice, 2)
	backend.SubmitErr = &erp.ErrRejected{Status: 422, Message: "duplicate invoice number"}

	_, err := svc.Submit(ctx, d.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "BACKEND_REJECTED", appErr.Code)
	require.Equal(t, "duplicate invoice number", appErr.Message)

	saved, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Empty(t, saved.InvoiceID)
	require.EqualValues(t, 2, saved.Items[0].Quantity)
}

func TestCreateRejectsUnknownDocType(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), draft.DocType("purchase_order"))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "BAD_REQUEST", appErr.Code)
}
