// Package draft owns the invoice/quotation composition state: the document
// being edited, its line items and totals, and the per-row stock statuses.
// All mutation flows through a pure reducer so totals are always recomputed
// from scratch, never patched incrementally.
package draft

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunpower-services/invoicing-api/internal/erp"
	"github.com/sunpower-services/invoicing-api/internal/pricing"
	"github.com/sunpower-services/invoicing-api/internal/stock"
)

// DocType tags the document variant being composed.
type DocType string

const (
	DocSalesInvoice    DocType = "sales_invoice"
	DocQuotation       DocType = "quotation"
	DocDeliveryChallan DocType = "delivery_challan"
)

// Valid reports whether the tag is one of the known document types.
func (t DocType) Valid() bool {
	switch t {
	case DocSalesInvoice, DocQuotation, DocDeliveryChallan:
		return true
	}
	return false
}

// ReducesStock reports whether submitting this document type deducts
// inventory. Quotations are offers and challans track goods movement without
// deduction; only a sales invoice reduces stock.
func (t DocType) ReducesStock() bool {
	return t == DocSalesInvoice
}

// Draft is the full composition state of one document. It is a value: the
// reducer returns a new Draft and never mutates its input.
type Draft struct {
	ID         string  `json:"id"`
	DocType    DocType `json:"invoiceType"`
	InvoiceID  string  `json:"invoiceId,omitempty"`
	CustomerID string  `json:"customer,omitempty"`

	BillingAddress  erp.Address `json:"billingAddress"`
	ShippingAddress erp.Address `json:"shippingAddress"`
	LocationID      string      `json:"location,omitempty"`

	Items           []pricing.LineItem      `json:"items"`
	ServiceCharges  []pricing.ServiceCharge `json:"serviceCharges,omitempty"`
	BuyBack         *pricing.BuyBack        `json:"batteryBuyBack,omitempty"`
	OverallDiscount decimal.Decimal         `json:"overallDiscount"`

	Totals pricing.Totals `json:"totals"`
	Stock  []stock.Status `json:"stockStatus"`

	Focus    Field     `json:"focus"`
	Notes    string    `json:"notes,omitempty"`
	Revision int64     `json:"revision"`
	Created  time.Time `json:"createdAt"`
	Updated  time.Time `json:"updatedAt"`
}

// New returns an empty draft of the given type with a single blank row, the
// state a fresh form opens in.
func New(id string, docType DocType) Draft {
	now := time.Now().UTC()
	return Draft{
		ID:      id,
		DocType: docType,
		Items:   []pricing.LineItem{{}},
		Stock:   []stock.Status{{Valid: true}},
		Focus:   FieldCustomer,
		Created: now,
		Updated: now,
	}
}

// clone deep-copies the mutable parts so the reducer can return a fresh value.
func (d Draft) clone() Draft {
	out := d
	out.Items = append([]pricing.LineItem(nil), d.Items...)
	out.ServiceCharges = append([]pricing.ServiceCharge(nil), d.ServiceCharges...)
	out.Stock = append([]stock.Status(nil), d.Stock...)
	if d.BuyBack != nil {
		bb := *d.BuyBack
		out.BuyBack = &bb
	}
	return out
}
