// Package erp holds the typed boundary to the ERP backend collaborator:
// reference data (products, customers, locations), stock listings and invoice
// persistence. Every response shape is parsed into an explicit type at the
// boundary; loosely-shaped JSON never crosses into the calculation pipeline.
package erp

import "github.com/shopspring/decimal"

// Product is the catalog snapshot used to populate line items. The copy into
// a line item happens once at selection time; later catalog changes do not
// retroactively update existing rows.
type Product struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	PartNo  string          `json:"partNo"`
	HSNCode string          `json:"hsnCode"`
	UOM     string          `json:"uom"`
	Price   decimal.Decimal `json:"price"`
	TaxRate decimal.Decimal `json:"gst"`
}

// Address is a postal address snapshot embedded into payloads.
type Address struct {
	Label      string `json:"label,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// Customer is the reference record used for billing.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Addresses []Address `json:"addresses"`
}

// Location identifies a stock-holding site.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// StockRecord is one room/rack-level stock row for a product at a location.
type StockRecord struct {
	Product          string `json:"product"`
	Location         string `json:"location"`
	Room             string `json:"room"`
	Rack             string `json:"rack"`
	Quantity         int64  `json:"quantity"`
	ReservedQuantity int64  `json:"reservedQuantity"`
}

// Available returns the sellable quantity of this record, floored at zero.
func (r StockRecord) Available() int64 {
	avail := r.Quantity - r.ReservedQuantity
	if avail < 0 {
		return 0
	}
	return avail
}

// InvoiceItem is one normalized payload row.
type InvoiceItem struct {
	Product          string          `json:"product,omitempty"`
	Description      string          `json:"description"`
	PartNo           string          `json:"partNo,omitempty"`
	HSNCode          string          `json:"hsnCode,omitempty"`
	UOM              string          `json:"uom,omitempty"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	Discount         decimal.Decimal `json:"discount"`
	DiscountedAmount decimal.Decimal `json:"discountedAmount"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
}

// BankDetails is the company bank snapshot embedded into the payload.
type BankDetails struct {
	BankName  string `json:"bankName"`
	AccountNo string `json:"accountNo"`
	IFSC      string `json:"ifsc"`
	Branch    string `json:"branch"`
}

// CompanyDetails is the issuing-company snapshot embedded into the payload.
type CompanyDetails struct {
	Name    string      `json:"name"`
	Address string      `json:"address"`
	GSTIN   string      `json:"gstin,omitempty"`
	Bank    BankDetails `json:"bank"`
}

// InvoicePayload is the normalized submission body for invoice creation and
// updates. Addresses and company details are snapshots taken at submit time.
type InvoicePayload struct {
	DocType               string          `json:"invoiceType" validate:"required,oneof=sales_invoice quotation delivery_challan"`
	CustomerID            string          `json:"customer" validate:"required"`
	LocationID            string          `json:"location" validate:"required"`
	BillingAddress        Address         `json:"billingAddress"`
	ShippingAddress       Address         `json:"shippingAddress"`
	Items                 []InvoiceItem   `json:"items" validate:"required,min=1,dive"`
	ServiceCharges        []InvoiceItem   `json:"serviceCharges,omitempty"`
	BatteryBuyBack        *InvoiceItem    `json:"batteryBuyBack,omitempty"`
	OverallDiscount       decimal.Decimal `json:"overallDiscount"`
	OverallDiscountAmount decimal.Decimal `json:"overallDiscountAmount"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	TotalDiscount         decimal.Decimal `json:"totalDiscount"`
	TotalTax              decimal.Decimal `json:"totalTax"`
	GrandTotal            decimal.Decimal `json:"grandTotal"`
	RoundOff              decimal.Decimal `json:"roundOff"`
	Company               CompanyDetails  `json:"company"`
	Notes                 string          `json:"notes,omitempty"`
	ReduceStock           bool            `json:"reduceStock"`
}

// InvoiceResult is the backend acknowledgement for a create or update.
type InvoiceResult struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
}
