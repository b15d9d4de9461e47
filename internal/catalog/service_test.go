package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sunpower-services/invoicing-api/internal/catalog"
	"github.com/sunpower-services/invoicing-api/internal/erp"
)

type countingBackend struct {
	*erp.Mock
	productCalls int
}

func (b *countingBackend) ListProducts(ctx context.Context) ([]erp.Product, error) {
	b.productCalls++
	return b.Mock.ListProducts(ctx)
}

func newCachedService(t *testing.T) (*catalog.Service, *countingBackend) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := &countingBackend{Mock: erp.NewMock()}
	svc := &catalog.Service{
		Backend: backend,
		Cache:   catalog.NewCache(client, time.Minute),
	}
	return svc, backend
}

func TestProductsCachesSecondRead(t *testing.T) {
	svc, backend := newCachedService(t)
	ctx := context.Background()

	first, err := svc.Products(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.Products(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, backend.productCalls)
}

func TestRefreshDropsStaleCache(t *testing.T) {
	svc, backend := newCachedService(t)
	ctx := context.Background()

	_, err := svc.Products(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, backend.productCalls)

	// Without invalidation the warm pass would be served from cache.
	svc.Refresh(ctx)
	require.Equal(t, 2, backend.productCalls)

	_, err = svc.Products(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, backend.productCalls, "refreshed list is cached again")
}

func TestProductByID(t *testing.T) {
	svc, _ := newCachedService(t)
	ctx := context.Background()

	product, err := svc.ProductByID(ctx, "prod-battery")
	require.NoError(t, err)
	require.Equal(t, "prod-battery", product.ID)
	require.NotEmpty(t, product.Name)

	_, err = svc.ProductByID(ctx, "prod-nope")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.ProductByID(ctx, "  ")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestHandlersServeReferenceData(t *testing.T) {
	svc, _ := newCachedService(t)
	h := &catalog.Handler{Service: svc}

	for name, fn := range map[string]http.HandlerFunc{
		"products":  h.Products,
		"customers": h.Customers,
		"locations": h.Locations,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fn(rec, httptest.NewRequest(http.MethodGet, "/api/v1/"+name, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			require.Contains(t, rec.Body.String(), `"data"`)
		})
	}
}

func TestHandlersBackendUnavailable(t *testing.T) {
	backend := erp.NewMock()
	backend.RefErr = erp.ErrUnavailable
	h := &catalog.Handler{Service: &catalog.Service{Backend: backend}}

	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "BACKEND_UNAVAILABLE")
}
