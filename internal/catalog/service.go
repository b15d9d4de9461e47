// Package catalog serves the reference data drafts are composed from:
// products, customers and stock locations. The ERP backend owns the data;
// this package caches it and exposes lookup helpers.
package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sunpower-services/invoicing-api/internal/common"
	"github.com/sunpower-services/invoicing-api/internal/erp"
)

const (
	keyProducts  = "catalog:products"
	keyCustomers = "catalog:customers"
	keyLocations = "catalog:locations"
)

// ErrNotFound is returned when a referenced entity is unknown.
var ErrNotFound = errors.New("not found")

// Service caches reference data fetched from the ERP backend.
type Service struct {
	Backend erp.Reference
	Cache   *Cache
	Logger  zerolog.Logger
}

// Products returns the product catalog, cached.
func (s *Service) Products(ctx context.Context) ([]erp.Product, error) {
	if s == nil || s.Backend == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []erp.Product
	if ok, err := s.Cache.GetJSON(ctx, keyProducts, &cached); err == nil && ok {
		return cached, nil
	}
	products, err := s.Backend.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, keyProducts, products); err != nil {
		s.Logger.Warn().Err(err).Msg("product cache write failed")
	}
	return products, nil
}

// Customers returns the customer list, cached.
func (s *Service) Customers(ctx context.Context) ([]erp.Customer, error) {
	if s == nil || s.Backend == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []erp.Customer
	if ok, err := s.Cache.GetJSON(ctx, keyCustomers, &cached); err == nil && ok {
		return cached, nil
	}
	customers, err := s.Backend.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, keyCustomers, customers); err != nil {
		s.Logger.Warn().Err(err).Msg("customer cache write failed")
	}
	return customers, nil
}

// Locations returns the stock locations, cached.
func (s *Service) Locations(ctx context.Context) ([]erp.Location, error) {
	if s == nil || s.Backend == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []erp.Location
	if ok, err := s.Cache.GetJSON(ctx, keyLocations, &cached); err == nil && ok {
		return cached, nil
	}
	locations, err := s.Backend.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, keyLocations, locations); err != nil {
		s.Logger.Warn().Err(err).Msg("location cache write failed")
	}
	return locations, nil
}

// ListProducts aliases Products so the service satisfies the stock package's
// product lister.
func (s *Service) ListProducts(ctx context.Context) ([]erp.Product, error) {
	return s.Products(ctx)
}

// ProductByID resolves a single product from the cached catalog.
func (s *Service) ProductByID(ctx context.Context, id string) (erp.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return erp.Product{}, ErrNotFound
	}
	products, err := s.Products(ctx)
	if err != nil {
		return erp.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return erp.Product{}, ErrNotFound
}

// CustomerByID resolves a single customer from the cached list.
func (s *Service) CustomerByID(ctx context.Context, id string) (erp.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return erp.Customer{}, ErrNotFound
	}
	customers, err := s.Customers(ctx)
	if err != nil {
		return erp.Customer{}, err
	}
	for _, c := range customers {
		if c.ID == id {
			return c, nil
		}
	}
	return erp.Customer{}, ErrNotFound
}

// LocationByID resolves a single location from the cached list.
func (s *Service) LocationByID(ctx context.Context, id string) (erp.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return erp.Location{}, ErrNotFound
	}
	locations, err := s.Locations(ctx)
	if err != nil {
		return erp.Location{}, err
	}
	for _, l := range locations {
		if l.ID == id {
			return l, nil
		}
	}
	return erp.Location{}, ErrNotFound
}

// Refresh drops the cached reference lists and re-fetches them, so a changed
// backend catalog replaces stale data immediately instead of waiting out the
// TTL. Used by the worker's periodic warm task.
func (s *Service) Refresh(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx, keyProducts, keyCustomers, keyLocations); err != nil {
		s.Logger.Warn().Err(err).Msg("reference cache invalidation failed")
	}
	s.Warm(ctx)
}

// Warm pre-populates all three reference caches. Used by the worker and at
// startup; individual failures are logged, not fatal.
func (s *Service) Warm(ctx context.Context) {
	if _, err := s.Products(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("product cache warm failed")
	}
	if _, err := s.Customers(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("customer cache warm failed")
	}
	if _, err := s.Locations(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("location cache warm failed")
	}
}

func mapError(err error) *common.AppError {
	switch {
	case errors.Is(err, erp.ErrUnavailable):
		return common.NewAppError("BACKEND_UNAVAILABLE", "backend is unreachable", http.StatusServiceUnavailable, err)
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("NOT_FOUND", "not found", http.StatusNotFound, err)
	default:
		return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
}
