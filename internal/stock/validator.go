package stock

import (
	"fmt"

	"github.com/sunpower-services/invoicing-api/internal/obs"
	"github.com/sunpower-services/invoicing-api/internal/pricing"
)

// Status is the validation outcome for one requested row.
type Status struct {
	Available int64  `json:"available"`
	Valid     bool   `json:"isValid"`
	Message   string `json:"message"`
}

// Validate cross-checks one requested quantity against the snapshot. The
// snapshot is consulted before the quantity: a row whose quantity was forced
// to zero because its product is out of stock (or unverifiable) keeps
// reporting that condition rather than reverting to "not applicable".
//
// Decision table:
//
//	no product / no snapshot             -> valid, not applicable
//	fetch failed or unknown product      -> invalid, "Unable to check stock"
//	available == 0                       -> invalid, "Out of stock"
//	qty <= 0 (product in stock)          -> valid, not applicable
//	quantity > available                 -> invalid, "Only N units available"
//	otherwise                            -> valid, "N units available"
func Validate(productID string, quantity int64, snap *Snapshot) Status {
	if productID == "" || snap == nil {
		return Status{Available: 0, Valid: true, Message: ""}
	}
	if snap.Failed {
		return record(Status{Available: 0, Valid: false, Message: MsgUnavailable})
	}
	entry, ok := snap.Lookup(productID)
	if !ok {
		return record(Status{Available: 0, Valid: false, Message: MsgUnavailable})
	}
	if entry.Available == 0 {
		return record(Status{Available: 0, Valid: false, Message: "Out of stock"})
	}
	if quantity <= 0 {
		return Status{Available: entry.Available, Valid: true, Message: ""}
	}
	if quantity > entry.Available {
		return record(Status{
			Available: entry.Available,
			Valid:     false,
			Message:   fmt.Sprintf("Only %d units available", entry.Available),
		})
	}
	return record(Status{
		Available: entry.Available,
		Valid:     true,
		Message:   fmt.Sprintf("%d units available", entry.Available),
	})
}

// ValidateItems re-validates every row against the snapshot, e.g. after a
// snapshot rebuild. Statuses are returned in row order.
func ValidateItems(items []pricing.LineItem, snap *Snapshot) []Status {
	statuses := make([]Status, len(items))
	for i, item := range items {
		statuses[i] = Validate(item.ProductID, item.Quantity, snap)
	}
	return statuses
}

// ClampQuantity returns the quantity actually grantable for the product:
// unchanged when within availability, the available amount when over, zero
// when out of stock. Used by the increment entry path where silently reducing
// the request is the desired behaviour.
func ClampQuantity(productID string, quantity int64, snap *Snapshot) int64 {
	if productID == "" || quantity <= 0 || snap == nil {
		return pricing.ClampQuantity(quantity)
	}
	if snap.Failed {
		return 0
	}
	entry, ok := snap.Lookup(productID)
	if !ok {
		return 0
	}
	if quantity > entry.Available {
		return entry.Available
	}
	return quantity
}

func record(s Status) Status {
	if obs.StockValidationTotal != nil {
		result := "valid"
		if !s.Valid {
			result = "invalid"
		}
		obs.StockValidationTotal.WithLabelValues(result).Inc()
	}
	return s
}
