package stock

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunpower-services/invoicing-api/internal/erp"
	"github.com/sunpower-services/invoicing-api/internal/lock"
	"github.com/sunpower-services/invoicing-api/internal/obs"
)

// ProductLister supplies the known catalog product ids so missing products
// can be seeded into snapshots with zero availability.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]erp.Product, error)
}

// Service orchestrates snapshot fetch, aggregation and storage.
type Service struct {
	Stock   erp.StockLister
	Catalog ProductLister
	Store   Store
	Locker  lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// Snapshot returns the cached snapshot for the location, rebuilding it on a
// miss.
func (s *Service) Snapshot(ctx context.Context, locationID string) (*Snapshot, error) {
	if s == nil || s.Stock == nil {
		return nil, errors.New("stock service not configured")
	}
	if locationID == "" {
		return nil, errors.New("location is required")
	}
	snap, ok, err := s.Store.Get(ctx, locationID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("location", locationID).Msg("snapshot store read failed")
	}
	if ok {
		return snap, nil
	}
	return s.Rebuild(ctx, locationID)
}

// Rebuild fetches the full stock listing for the location and replaces the
// stored snapshot. On fetch failure a fail-safe snapshot marking everything
// unavailable is stored and returned; the error is not surfaced because the
// fail-safe state is the designed degradation.
func (s *Service) Rebuild(ctx context.Context, locationID string) (*Snapshot, error) {
	if s == nil || s.Stock == nil {
		return nil, errors.New("stock service not configured")
	}
	if locationID == "" {
		return nil, errors.New("location is required")
	}

	var snap *Snapshot
	rebuild := func(ctx context.Context) error {
		start := time.Now()
		productIDs := s.catalogProductIDs(ctx)

		records, err := s.Stock.ListStock(ctx, locationID)
		if err != nil {
			s.Logger.Error().Err(err).Str("location", locationID).Msg("stock fetch failed, storing fail-safe snapshot")
			snap = BuildFailSafe(locationID, productIDs)
			recordRebuild("failsafe", start)
		} else {
			snap = Build(locationID, records, productIDs)
			recordRebuild("success", start)
		}
		if err := s.Store.Set(ctx, snap); err != nil {
			s.Logger.Warn().Err(err).Str("location", locationID).Msg("snapshot store write failed")
		}
		return nil
	}

	if s.Locker.R != nil {
		if err := s.Locker.WithLock(ctx, "stock:rebuild:"+locationID, s.LockTTL, rebuild); err != nil {
			return nil, err
		}
		return snap, nil
	}
	if err := rebuild(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) catalogProductIDs(ctx context.Context) []string {
	if s.Catalog == nil {
		return nil
	}
	products, err := s.Catalog.ListProducts(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("catalog fetch failed during snapshot build")
		return nil
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func recordRebuild(result string, start time.Time) {
	if obs.SnapshotRebuildTotal != nil {
		obs.SnapshotRebuildTotal.WithLabelValues(result).Inc()
	}
	if obs.SnapshotBuildLatency != nil {
		obs.SnapshotBuildLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
}
