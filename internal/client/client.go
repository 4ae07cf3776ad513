// Package client implements store.Store against a remote fieldops
// server: REST for the row operations, the SSE endpoint for the
// change feed. Callers swap it in for a local backend without touching
// anything above the interface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tedtam/fieldops/internal/store"
)

// Client talks to a fieldops server. Satisfies store.Store; report
// and spreadsheet operations ride alongside as plain methods.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	mu   sync.Mutex
	subs []*subscription
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. The default
// carries a 30s timeout, which the SSE stream bypasses with its own
// timeout-free client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger for feed lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the server at baseURL (scheme and host, no
// trailing slash).
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return resp, nil
}

// decodeJSON drains the response into v, mapping error statuses onto
// the store error taxonomy so callers never see HTTP codes.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if v == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", store.ErrConstraint, detail(body.Error, store.ErrConstraint))
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", store.ErrUnavailable, detail(body.Error, store.ErrUnavailable))
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
}

// detail strips the taxonomy prefix the server body already carries so
// wrapping the sentinel does not repeat it.
func detail(msg string, sentinel error) string {
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}

// GetJSON fetches an arbitrary API path and decodes the response into
// v. Escape hatch for endpoints without a dedicated method.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, v)
}

// List retrieves the complete collection.
func (c *Client) List(ctx context.Context) ([]store.Customer, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/customers", nil)
	if err != nil {
		return nil, err
	}
	var records []store.Customer
	if err := decodeJSON(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get fetches one record by id.
func (c *Client) Get(ctx context.Context, id string) (store.Customer, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/customers/"+id, nil)
	if err != nil {
		return store.Customer{}, err
	}
	var rec store.Customer
	if err := decodeJSON(resp, &rec); err != nil {
		return store.Customer{}, err
	}
	return rec, nil
}

// Create inserts a record; the server assigns id and createdAt.
func (c *Client) Create(ctx context.Context, rec store.Customer) (store.Customer, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/customers", rec)
	if err != nil {
		return store.Customer{}, err
	}
	var created store.Customer
	if err := decodeJSON(resp, &created); err != nil {
		return store.Customer{}, err
	}
	return created, nil
}

// Update replaces the mutable fields of the record with the given id.
func (c *Client) Update(ctx context.Context, id string, rec store.Customer) (store.Customer, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/api/customers/"+id, rec)
	if err != nil {
		return store.Customer{}, err
	}
	var updated store.Customer
	if err := decodeJSON(resp, &updated); err != nil {
		return store.Customer{}, err
	}
	return updated, nil
}

// Patch applies a partial update: only the fields present in raw
// change, everything else keeps its current value. Unlike Update it
// never round-trips through Customer, so absent fields stay absent on
// the wire.
func (c *Client) Patch(ctx context.Context, id string, raw json.RawMessage) (store.Customer, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/api/customers/"+id, raw)
	if err != nil {
		return store.Customer{}, err
	}
	var updated store.Customer
	if err := decodeJSON(resp, &updated); err != nil {
		return store.Customer{}, err
	}
	return updated, nil
}

// Delete removes a record; false means it was already gone.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/api/customers/"+id, nil)
	if err != nil {
		return false, err
	}
	var body struct {
		Removed bool `json:"removed"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return false, err
	}
	return body.Removed, nil
}

// SnapshotReports asks the server to summarize the current collection
// and persist one row per team and work group, dated date (YYYY-MM-DD,
// empty means today). Returns the saved rows.
func (c *Client) SnapshotReports(ctx context.Context, date string) ([]store.PerformanceReport, error) {
	path := "/api/reports/performance"
	if date != "" {
		path += "?date=" + date
	}
	resp, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	var saved []store.PerformanceReport
	if err := decodeJSON(resp, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// ListReports retrieves snapshot rows, optionally bounded by date
// (YYYY-MM-DD, inclusive).
func (c *Client) ListReports(ctx context.Context, from, to string) ([]store.PerformanceReport, error) {
	path := "/api/reports/performance"
	if from != "" || to != "" {
		path += "?from=" + from + "&to=" + to
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var rows []store.PerformanceReport
	if err := decodeJSON(resp, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Close tears down every live subscription.
func (c *Client) Close() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
	return nil
}
