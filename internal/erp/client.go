package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sunpower-services/invoicing-api/internal/resilience"
)

// ErrUnavailable indicates the backend could not be reached or answered with
// a server error after retries were exhausted.
var ErrUnavailable = errors.New("erp: backend unavailable")

// ErrRejected indicates the backend refused the request with a 4xx status.
// The backend's message is preserved so it can be surfaced verbatim.
type ErrRejected struct {
	Status  int
	Message string
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("erp: request rejected (%d): %s", e.Status, e.Message)
}

// StockLister fetches the full stock listing for one location.
type StockLister interface {
	ListStock(ctx context.Context, locationID string) ([]StockRecord, error)
}

// Reference serves the dropdown reference data consumed by drafts.
type Reference interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	ListLocations(ctx context.Context) ([]Location, error)
}

// InvoiceWriter persists submitted invoices in the backend.
type InvoiceWriter interface {
	CreateInvoice(ctx context.Context, payload InvoicePayload) (InvoiceResult, error)
	UpdateInvoice(ctx context.Context, id string, payload InvoicePayload) (InvoiceResult, error)
}

// Client talks to the ERP backend over HTTP. It satisfies StockLister,
// Reference and InvoiceWriter.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
}

// ListStock issues one bulk query scoped to the location, requesting the full
// set of records so callers get a complete snapshot rather than per-row round
// trips. limit=0 is the backend's "no page limit" contract.
func (c *Client) ListStock(ctx context.Context, locationID string) ([]StockRecord, error) {
	query := url.Values{}
	query.Set("location", locationID)
	query.Set("limit", "0")
	body, err := c.get(ctx, "/stock", query)
	if err != nil {
		return nil, err
	}
	return decodeList[StockRecord]("/stock", body, "data", "stocks", "results")
}

// ListProducts fetches the product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	body, err := c.get(ctx, "/products", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Product]("/products", body, "data", "products", "results")
}

// ListCustomers fetches the customer reference list.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	body, err := c.get(ctx, "/customers", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Customer]("/customers", body, "data", "customers", "results")
}

// ListLocations fetches the stock location list.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	body, err := c.get(ctx, "/locations", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Location]("/locations", body, "data", "locations", "results")
}

// CreateInvoice submits a new invoice payload.
func (c *Client) CreateInvoice(ctx context.Context, payload InvoicePayload) (InvoiceResult, error) {
	body, err := c.send(ctx, http.MethodPost, "/invoices", payload)
	if err != nil {
		return InvoiceResult{}, err
	}
	return decodeObject[InvoiceResult]("/invoices", body)
}

// UpdateInvoice replaces an existing invoice.
func (c *Client) UpdateInvoice(ctx context.Context, id string, payload InvoicePayload) (InvoiceResult, error) {
	body, err := c.send(ctx, http.MethodPut, "/invoices/"+url.PathEscape(id), payload)
	if err != nil {
		return InvoiceResult{}, err
	}
	return decodeObject[InvoiceResult]("/invoices/{id}", body)
}

// Ping reports backend reachability. Any HTTP response counts as reachable;
// only transport failures surface as errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/locations", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req)
}

func (c *Client) send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erp: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &ErrRejected{Status: resp.StatusCode, Message: rejectionMessage(body)}
	}
	return body, nil
}

// rejectionMessage pulls a human-readable message out of a backend error
// body, falling back to the raw text.
func rejectionMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		switch v := envelope.Error.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(body))
}
