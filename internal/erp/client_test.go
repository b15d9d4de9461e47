package erp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sunpower-services/invoicing-api/internal/resilience"
)

func TestDecodeListBareArray(t *testing.T) {
	records, err := decodeList[StockRecord]("/stock", []byte(`[{"product":"p1","quantity":5,"reservedQuantity":2}]`), "data")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.EqualValues(t, 3, records[0].Available())
}

func TestDecodeListWrapped(t *testing.T) {
	body := []byte(`{"total":1,"data":[{"product":"p1","quantity":1,"reservedQuantity":0}]}`)
	records, err := decodeList[StockRecord]("/stock", body, "data", "stocks")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDecodeListUnknownShape(t *testing.T) {
	_, err := decodeList[StockRecord]("/stock", []byte(`{"rows":[]}`), "data", "stocks")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "/stock", decodeErr.Endpoint)
}

func TestAvailableFloorsAtZero(t *testing.T) {
	rec := StockRecord{Quantity: 2, ReservedQuantity: 5}
	require.EqualValues(t, 0, rec.Available())
}

func newTestClient(serverURL string) *Client {
	return &Client{
		BaseURL: serverURL,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Timeout: 2 * time.Second},
			MaxAttempts: 1,
		},
	}
}

func TestClientListStock(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"product":"p1","location":"loc-1","room":"A","rack":"2","quantity":7,"reservedQuantity":3}]}`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).ListStock(context.Background(), "loc-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "A", records[0].Room)
	require.Contains(t, gotQuery, "location=loc-1")
	require.Contains(t, gotQuery, "limit=0")
}

func TestClientRejectionMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"customer is required"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateInvoice(context.Background(), InvoicePayload{})
	var rejected *ErrRejected
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, http.StatusUnprocessableEntity, rejected.Status)
	require.Equal(t, "customer is required", rejected.Message)
}

func TestClientUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListProducts(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}
