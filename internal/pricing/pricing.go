// Package pricing implements the totals pipeline for quotations and invoices:
// per-line discount and tax amounts, aggregate subtotal/discount/tax, the
// overall invoice-level discount, the battery buy-back deduction and the
// final rounding step.
//
// All money values are decimal.Decimal. Intermediate sums keep full precision;
// rounding (half-up, two decimals) happens once, at the grand-total step.
// Negative inputs are clamped at the data-entry boundary (see Sanitize
// helpers) and never inside Compute.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineItem is one billable row referencing a product. Descriptive fields are
// copied from the product at selection time and not live-linked afterwards.
type LineItem struct {
	ProductID   string          `json:"product"`
	Description string          `json:"description"`
	PartNo      string          `json:"partNo"`
	HSNCode     string          `json:"hsnCode"`
	UOM         string          `json:"uom"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Discount    decimal.Decimal `json:"discount"`

	// Computed fields, never set directly by callers.
	DiscountedAmount decimal.Decimal `json:"discountedAmount"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
}

// ServiceCharge follows the same computed-field contract as LineItem but has
// no product reference.
type ServiceCharge struct {
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Discount    decimal.Decimal `json:"discount"`

	DiscountedAmount decimal.Decimal `json:"discountedAmount"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
}

// BuyBack is the battery buy-back row. Its TotalPrice is a deduction: it is
// subtracted from the grand total instead of added.
type BuyBack struct {
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`

	DiscountedAmount decimal.Decimal `json:"discountedAmount"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
}

// Totals aggregates the computed pricing components of a document.
type Totals struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	TotalDiscount         decimal.Decimal `json:"totalDiscount"`
	TotalTax              decimal.Decimal `json:"totalTax"`
	OverallDiscountAmount decimal.Decimal `json:"overallDiscountAmount"`
	GrandTotal            decimal.Decimal `json:"grandTotal"`
	RoundOff              decimal.Decimal `json:"roundOff"`
}

// lineAmounts derives the computed components of a single row.
//
//	lineSubtotal   = qty * unit
//	discountAmount = lineSubtotal * discount%
//	taxableAmount  = lineSubtotal - discountAmount
//	taxAmount      = taxableAmount * taxRate%
//	total          = taxableAmount + taxAmount
func lineAmounts(qty int64, unit, discountPct, taxPct decimal.Decimal) (lineSubtotal, discountAmount, taxAmount, total decimal.Decimal) {
	lineSubtotal = decimal.NewFromInt(qty).Mul(unit)
	discountAmount = lineSubtotal.Mul(discountPct).Div(hundred)
	taxable := lineSubtotal.Sub(discountAmount)
	taxAmount = taxable.Mul(taxPct).Div(hundred)
	total = taxable.Add(taxAmount)
	return lineSubtotal, discountAmount, taxAmount, total
}

// Recalculate refreshes the computed fields from the editable ones.
func (li *LineItem) Recalculate() {
	_, li.DiscountedAmount, li.TaxAmount, li.TotalPrice = lineAmounts(li.Quantity, li.UnitPrice, li.Discount, li.TaxRate)
}

// Recalculate refreshes the computed fields from the editable ones.
func (sc *ServiceCharge) Recalculate() {
	_, sc.DiscountedAmount, sc.TaxAmount, sc.TotalPrice = lineAmounts(sc.Quantity, sc.UnitPrice, sc.Discount, sc.TaxRate)
}

// Recalculate refreshes the computed fields. Buy-back rows carry no tax.
func (bb *BuyBack) Recalculate() {
	_, bb.DiscountedAmount, _, bb.TotalPrice = lineAmounts(bb.Quantity, bb.UnitPrice, bb.Discount, decimal.Zero)
}

// Compute derives aggregate totals from scratch. It is pure and idempotent:
// computed fields on the inputs are ignored and re-derived, so totals can
// never drift from their constituents. A nil buyBack contributes a zero
// deduction; empty inputs yield all-zero totals.
func Compute(items []LineItem, charges []ServiceCharge, buyBack *BuyBack, overallDiscountPct decimal.Decimal) Totals {
	var subtotal, totalDiscount, totalTax decimal.Decimal

	for _, li := range items {
		lineSubtotal, discountAmount, taxAmount, _ := lineAmounts(li.Quantity, li.UnitPrice, li.Discount, li.TaxRate)
		subtotal = subtotal.Add(lineSubtotal)
		totalDiscount = totalDiscount.Add(discountAmount)
		totalTax = totalTax.Add(taxAmount)
	}
	for _, sc := range charges {
		lineSubtotal, discountAmount, taxAmount, _ := lineAmounts(sc.Quantity, sc.UnitPrice, sc.Discount, sc.TaxRate)
		subtotal = subtotal.Add(lineSubtotal)
		totalDiscount = totalDiscount.Add(discountAmount)
		totalTax = totalTax.Add(taxAmount)
	}

	overallDiscountAmount := subtotal.Mul(overallDiscountPct).Div(hundred)
	totalDiscount = totalDiscount.Add(overallDiscountAmount)

	var deduction decimal.Decimal
	if buyBack != nil {
		_, _, _, deduction = lineAmounts(buyBack.Quantity, buyBack.UnitPrice, buyBack.Discount, decimal.Zero)
	}

	raw := subtotal.Sub(totalDiscount).Add(totalTax).Sub(deduction)
	grand := raw.Round(2)

	return Totals{
		Subtotal:              subtotal,
		TotalDiscount:         totalDiscount,
		TotalTax:              totalTax,
		OverallDiscountAmount: overallDiscountAmount,
		GrandTotal:            grand,
		RoundOff:              grand.Sub(raw),
	}
}
