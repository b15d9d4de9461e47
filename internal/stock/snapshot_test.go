package stock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunpower-services/invoicing-api/internal/erp"
	"github.com/sunpower-services/invoicing-api/internal/stock"
)

func TestBuildAggregatesAcrossRooms(t *testing.T) {
	records := []erp.StockRecord{
		{Product: "p1", Room: "A", Rack: "1", Quantity: 8, ReservedQuantity: 3},
		{Product: "p1", Room: "A", Rack: "2", Quantity: 4, ReservedQuantity: 4},
		{Product: "p1", Room: "B", Rack: "1", Quantity: 2, ReservedQuantity: 5},
		{Product: "p2", Room: "B", Rack: "2", Quantity: 1, ReservedQuantity: 0},
	}

	snap := stock.Build("loc-1", records, nil)

	p1, ok := snap.Lookup("p1")
	require.True(t, ok)
	// 5 + 0 + 0: over-reserved rows contribute zero, never negative.
	require.EqualValues(t, 5, p1.Available)
	require.True(t, p1.Valid)
	// Only the positive room/rack row is kept for display.
	require.Len(t, p1.Details, 1)
	require.Equal(t, "A", p1.Details[0].Room)
	require.Equal(t, "1", p1.Details[0].Rack)

	p2, ok := snap.Lookup("p2")
	require.True(t, ok)
	require.EqualValues(t, 1, p2.Available)
}

func TestBuildSeedsMissingCatalogProducts(t *testing.T) {
	snap := stock.Build("loc-1", nil, []string{"p1", "p2"})

	entry, ok := snap.Lookup("p2")
	require.True(t, ok)
	require.EqualValues(t, 0, entry.Available)
	require.False(t, entry.Valid)
}

func TestBuildFailSafeMarksEverythingUnavailable(t *testing.T) {
	snap := stock.BuildFailSafe("loc-1", []string{"p1", "p2"})

	require.True(t, snap.Failed)
	for _, id := range []string{"p1", "p2"} {
		entry, ok := snap.Lookup(id)
		require.True(t, ok)
		require.False(t, entry.Valid)
		require.EqualValues(t, 0, entry.Available)
	}
}

func TestValidateDecisionTable(t *testing.T) {
	snap := stock.Build("loc-1", []erp.StockRecord{
		{Product: "p-avail", Room: "A", Rack: "1", Quantity: 5, ReservedQuantity: 0},
	}, []string{"p-avail", "p-empty"})

	cases := []struct {
		name      string
		productID string
		quantity  int64
		snap      *stock.Snapshot
		valid     bool
		available int64
		message   string
	}{
		{name: "no product selected", productID: "", quantity: 3, snap: snap, valid: true},
		{name: "zero quantity in stock", productID: "p-avail", quantity: 0, snap: snap, valid: true, available: 5},
		{name: "no snapshot", productID: "p-avail", quantity: 3, snap: nil, valid: true},
		{name: "unknown product", productID: "p-ghost", quantity: 1, snap: snap, valid: false, message: "Unable to check stock"},
		{name: "out of stock", productID: "p-empty", quantity: 1, snap: snap, valid: false, message: "Out of stock"},
		{name: "zeroed row stays out of stock", productID: "p-empty", quantity: 0, snap: snap, valid: false, message: "Out of stock"},
		{name: "over request", productID: "p-avail", quantity: 8, snap: snap, valid: false, available: 5, message: "Only 5 units available"},
		{name: "within stock", productID: "p-avail", quantity: 3, snap: snap, valid: true, available: 5, message: "5 units available"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := stock.Validate(tc.productID, tc.quantity, tc.snap)
			require.Equal(t, tc.valid, status.Valid)
			require.Equal(t, tc.available, status.Available)
			require.Equal(t, tc.message, status.Message)
		})
	}
}

func TestValidateFailedSnapshot(t *testing.T) {
	snap := stock.BuildFailSafe("loc-1", []string{"p1"})
	status := stock.Validate("p1", 1, snap)
	require.False(t, status.Valid)
	require.Equal(t, stock.MsgUnavailable, status.Message)

	// A zeroed row must keep reporting the failure, not revert to blank.
	status = stock.Validate("p1", 0, snap)
	require.False(t, status.Valid)
	require.Equal(t, stock.MsgUnavailable, status.Message)
}

func TestClampQuantity(t *testing.T) {
	snap := stock.Build("loc-1", []erp.StockRecord{
		{Product: "p1", Quantity: 5, ReservedQuantity: 0},
	}, []string{"p1", "p2"})

	require.EqualValues(t, 5, stock.ClampQuantity("p1", 8, snap), "over-request clamps to available")
	require.EqualValues(t, 3, stock.ClampQuantity("p1", 3, snap))
	require.EqualValues(t, 0, stock.ClampQuantity("p2", 4, snap), "out of stock clamps to zero")
	require.EqualValues(t, 0, stock.ClampQuantity("p1", -2, snap))
}

type staticLister struct {
	records []erp.StockRecord
	err     error
}

func (l staticLister) ListStock(ctx context.Context, locationID string) ([]erp.StockRecord, error) {
	if l.err != nil {
		return nil, l.err
	}
	out := make([]erp.StockRecord, 0, len(l.records))
	for _, rec := range l.records {
		if rec.Location == locationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type staticCatalog struct{ products []erp.Product }

func (c staticCatalog) ListProducts(ctx context.Context) ([]erp.Product, error) {
	return c.products, nil
}

func TestServiceRebuildReplacesWholeSnapshot(t *testing.T) {
	svc := &stock.Service{
		Stock: staticLister{records: []erp.StockRecord{
			{Product: "p1", Location: "loc-a", Quantity: 3},
			{Product: "p2", Location: "loc-b", Quantity: 9},
		}},
		Catalog: staticCatalog{products: []erp.Product{{ID: "p1"}, {ID: "p2"}}},
	}

	snapA, err := svc.Rebuild(context.Background(), "loc-a")
	require.NoError(t, err)
	entry, _ := snapA.Lookup("p1")
	require.EqualValues(t, 3, entry.Available)

	snapB, err := svc.Rebuild(context.Background(), "loc-b")
	require.NoError(t, err)
	require.Equal(t, "loc-b", snapB.LocationID)
	// loc-a's availability must not leak into loc-b's snapshot.
	entry, _ = snapB.Lookup("p1")
	require.EqualValues(t, 0, entry.Available)
	entry, _ = snapB.Lookup("p2")
	require.EqualValues(t, 9, entry.Available)
}

func TestServiceRebuildFailSafeOnFetchError(t *testing.T) {
	svc := &stock.Service{
		Stock:   staticLister{err: errors.New("connection refused")},
		Catalog: staticCatalog{products: []erp.Product{{ID: "p1"}}},
	}

	snap, err := svc.Rebuild(context.Background(), "loc-a")
	require.NoError(t, err)
	require.True(t, snap.Failed)
	status := stock.Validate("p1", 1, snap)
	require.False(t, status.Valid)
	require.Equal(t, stock.MsgUnavailable, status.Message)
}
