package pricing

import "github.com/shopspring/decimal"

// ClampQuantity rejects negative quantities at the data-entry boundary.
func ClampQuantity(qty int64) int64 {
	if qty < 0 {
		return 0
	}
	return qty
}

// ClampAmount floors negative currency amounts to zero.
func ClampAmount(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// ClampPercent bounds a percentage to the 0..100 range.
func ClampPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
