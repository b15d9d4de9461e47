// Package stock maintains per-location availability snapshots and validates
// requested line-item quantities against them.
//
// A snapshot is always built and replaced whole: a location change discards
// the previous location's snapshot entirely, never merging entries. Snapshots
// are keyed by the location they were built for, so a slow fetch for an old
// location can never overwrite the snapshot of a newer selection.
package stock

import (
	"sort"
	"time"

	"github.com/sunpower-services/invoicing-api/internal/erp"
)

// MsgUnavailable is the fail-safe message used when stock cannot be checked.
const MsgUnavailable = "Unable to check stock"

// Detail is a per-room/rack availability breakdown kept for display.
type Detail struct {
	Room      string `json:"room"`
	Rack      string `json:"rack"`
	Available int64  `json:"available"`
}

// Entry is the aggregated availability of one product at the snapshot's
// location.
type Entry struct {
	ProductID string   `json:"product"`
	Available int64    `json:"available"`
	Valid     bool     `json:"isValid"`
	Details   []Detail `json:"stockDetails,omitempty"`
}

// Snapshot is the availability cache for a single location.
type Snapshot struct {
	LocationID string           `json:"locationId"`
	BuiltAt    time.Time        `json:"builtAt"`
	Failed     bool             `json:"failed"`
	Entries    map[string]Entry `json:"entries"`
}

// Lookup returns the entry for a product, if known.
func (s *Snapshot) Lookup(productID string) (Entry, bool) {
	if s == nil || s.Entries == nil {
		return Entry{}, false
	}
	entry, ok := s.Entries[productID]
	return entry, ok
}

// Build aggregates raw stock records into a snapshot. Records are grouped by
// product; each group's availability is the sum of max(0, quantity-reserved)
// across its room/rack rows, and only positive rows are kept as details.
// Products known to the catalog but absent from the records are inserted with
// zero availability so validation can distinguish "out of stock" from
// "unknown product".
func Build(locationID string, records []erp.StockRecord, catalogProductIDs []string) *Snapshot {
	entries := make(map[string]Entry, len(catalogProductIDs))

	for _, rec := range records {
		if rec.Product == "" {
			continue
		}
		entry := entries[rec.Product]
		entry.ProductID = rec.Product
		avail := rec.Available()
		entry.Available += avail
		if avail > 0 {
			entry.Details = append(entry.Details, Detail{Room: rec.Room, Rack: rec.Rack, Available: avail})
		}
		entries[rec.Product] = entry
	}

	for id, entry := range entries {
		entry.Valid = entry.Available > 0
		sort.Slice(entry.Details, func(i, j int) bool {
			if entry.Details[i].Room != entry.Details[j].Room {
				return entry.Details[i].Room < entry.Details[j].Room
			}
			return entry.Details[i].Rack < entry.Details[j].Rack
		})
		entries[id] = entry
	}

	for _, id := range catalogProductIDs {
		if id == "" {
			continue
		}
		if _, ok := entries[id]; !ok {
			entries[id] = Entry{ProductID: id, Available: 0, Valid: false}
		}
	}

	return &Snapshot{LocationID: locationID, BuiltAt: time.Now().UTC(), Entries: entries}
}

// BuildFailSafe marks every catalog product as unavailable. Used when the
// stock fetch fails: the safe default is "nothing is available", never a
// silent oversell.
func BuildFailSafe(locationID string, catalogProductIDs []string) *Snapshot {
	entries := make(map[string]Entry, len(catalogProductIDs))
	for _, id := range catalogProductIDs {
		if id == "" {
			continue
		}
		entries[id] = Entry{ProductID: id, Available: 0, Valid: false}
	}
	return &Snapshot{LocationID: locationID, BuiltAt: time.Now().UTC(), Failed: true, Entries: entries}
}
