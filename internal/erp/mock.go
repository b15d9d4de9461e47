package erp

import (
	"context"

	"github.com/shopspring/decimal"
)

// Mock serves canned reference data and stock, useful for tests and local
// development without a reachable backend.
type Mock struct {
	Products  []Product
	Customers []Customer
	Locations []Location
	Stock     map[string][]StockRecord

	StockErr   error
	RefErr     error
	SubmitErr  error
	Submitted  []InvoicePayload
	NextNumber string
}

// NewMock builds a mock with a small coherent dataset.
func NewMock() *Mock {
	return &Mock{
		Products: []Product{
			{ID: "prod-battery", Name: "Exide 150Ah Battery", PartNo: "EX-150", HSNCode: "8507", UOM: "nos", Price: decimal.NewFromInt(12500), TaxRate: decimal.NewFromInt(28)},
			{ID: "prod-inverter", Name: "Luminous 1100VA Inverter", PartNo: "LM-1100", HSNCode: "8504", UOM: "nos", Price: decimal.NewFromInt(6200), TaxRate: decimal.NewFromInt(18)},
			{ID: "prod-cable", Name: "Solar DC Cable 4sqmm", PartNo: "SC-4", HSNCode: "8544", UOM: "mtr", Price: decimal.NewFromInt(45), TaxRate: decimal.NewFromInt(18)},
		},
		Customers: []Customer{
			{ID: "cust-1", Name: "Green Valley Apartments", Email: "office@greenvalley.example", Phone: "9000000001", Addresses: []Address{{Label: "billing", Line1: "12 MG Road", City: "Chennai", State: "TN", PostalCode: "600001"}}},
		},
		Locations: []Location{
			{ID: "loc-main", Name: "Main Warehouse"},
			{ID: "loc-branch", Name: "Branch Store"},
		},
		Stock: map[string][]StockRecord{
			"loc-main": {
				{Product: "prod-battery", Location: "loc-main", Room: "A", Rack: "1", Quantity: 8, ReservedQuantity: 3},
				{Product: "prod-battery", Location: "loc-main", Room: "A", Rack: "2", Quantity: 4, ReservedQuantity: 4},
				{Product: "prod-inverter", Location: "loc-main", Room: "B", Rack: "1", Quantity: 2, ReservedQuantity: 0},
			},
			"loc-branch": {
				{Product: "prod-cable", Location: "loc-branch", Room: "S", Rack: "1", Quantity: 500, ReservedQuantity: 120},
			},
		},
		NextNumber: "INV-0001",
	}
}

// ListStock returns the canned stock rows for the location.
func (m *Mock) ListStock(ctx context.Context, locationID string) ([]StockRecord, error) {
	_ = ctx
	if m.StockErr != nil {
		return nil, m.StockErr
	}
	return m.Stock[locationID], nil
}

// ListProducts returns the canned product catalog.
func (m *Mock) ListProducts(ctx context.Context) ([]Product, error) {
	_ = ctx
	if m.RefErr != nil {
		return nil, m.RefErr
	}
	return m.Products, nil
}

// ListCustomers returns the canned customer list.
func (m *Mock) ListCustomers(ctx context.Context) ([]Customer, error) {
	_ = ctx
	if m.RefErr != nil {
		return nil, m.RefErr
	}
	return m.Customers, nil
}

// ListLocations returns the canned location list.
func (m *Mock) ListLocations(ctx context.Context) ([]Location, error) {
	_ = ctx
	if m.RefErr != nil {
		return nil, m.RefErr
	}
	return m.Locations, nil
}

// CreateInvoice records the payload and returns a synthetic id.
func (m *Mock) CreateInvoice(ctx context.Context, payload InvoicePayload) (InvoiceResult, error) {
	_ = ctx
	if m.SubmitErr != nil {
		return InvoiceResult{}, m.SubmitErr
	}
	m.Submitted = append(m.Submitted, payload)
	return InvoiceResult{ID: "inv-mock-1", InvoiceNumber: m.NextNumber}, nil
}

// UpdateInvoice records the payload against the given id.
func (m *Mock) UpdateInvoice(ctx context.Context, id string, payload InvoicePayload) (InvoiceResult, error) {
	_ = ctx
	if m.SubmitErr != nil {
		return InvoiceResult{}, m.SubmitErr
	}
	m.Submitted = append(m.Submitted, payload)
	return InvoiceResult{ID: id, InvoiceNumber: m.NextNumber}, nil
}
