// Package backend talks to the external sales backend that owns clients,
// products and sales. Requests are paced by a token bucket and never retried;
// a failed fetch surfaces to the caller as is.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/vanchoco/backend-go/internal/config"
	"github.com/vanchoco/backend-go/internal/domain"
)

// ErrNotFound is returned when the backend answers 404.
var ErrNotFound = errors.New("backend resource not found")

const maxErrorBody = 4 << 10

// StatusError carries a non-2xx backend answer.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client fetches raw sales and stock data from the sales backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client from configuration.
func NewClient(cfg config.BackendConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ListSales returns every sale with its line items. Elements that cannot be
// decoded are skipped so one bad record does not hide the rest.
func (c *Client) ListSales(ctx context.Context) ([]domain.Sale, error) {
	body, err := c.get(ctx, "/api/ventes")
	if err != nil {
		return nil, err
	}

	var sales []domain.Sale
	skipped, err := decodeEach(body, func(raw json.RawMessage) error {
		var w wireSale
		if err := json.Unmarshal(raw, &w); err != nil {
			log.Warn().Err(err).Str("payload", truncate(raw)).Msg("skipping malformed sale")
			return err
		}
		sales = append(sales, w.toDomain())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("decoded", len(sales)).Msg("some sales could not be decoded")
	}

	return sales, nil
}

// StockSummary returns the backend's current stock aggregate per product key.
func (c *Client) StockSummary(ctx context.Context) ([]domain.StockSummaryRow, error) {
	body, err := c.get(ctx, "/api/reports/stock-summary")
	if err != nil {
		return nil, err
	}

	var rows []domain.StockSummaryRow
	if _, err := decodeEach(body, func(raw json.RawMessage) error {
		var w wireStockRow
		if err := json.Unmarshal(raw, &w); err != nil {
			log.Warn().Err(err).Msg("skipping malformed stock summary row")
			return err
		}
		rows = append(rows, w.toDomain())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("decode stock summary: %w", err)
	}

	return rows, nil
}

// DailyComparison returns the backend's own daily stock comparison for today.
// It returns ErrNotFound when the backend does not compute one.
func (c *Client) DailyComparison(ctx context.Context) ([]domain.DailyMovementRow, error) {
	body, err := c.get(ctx, "/api/reports/daily-stock-comparison")
	if err != nil {
		return nil, err
	}

	var rows []domain.DailyMovementRow
	if _, err := decodeEach(body, func(raw json.RawMessage) error {
		var w wireDailyRow
		if err := json.Unmarshal(raw, &w); err != nil {
			log.Warn().Err(err).Msg("skipping malformed daily comparison row")
			return err
		}
		rows = append(rows, w.toDomain())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("decode daily comparison: %w", err)
	}

	return rows, nil
}

// ListProducts returns the inventory entries.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	body, err := c.get(ctx, "/api/products")
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	if _, err := decodeEach(body, func(raw json.RawMessage) error {
		var w wireProduct
		if err := json.Unmarshal(raw, &w); err != nil {
			log.Warn().Err(err).Msg("skipping malformed product")
			return err
		}
		products = append(products, w.toDomain())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	return products, nil
}

// ConsolidatedInvoicePDF fetches the rendered invoice of a client's outstanding items.
func (c *Client) ConsolidatedInvoicePDF(ctx context.Context, clientName string) ([]byte, error) {
	return c.get(ctx, "/api/ventes/consolidated-invoice/"+url.PathEscape(clientName)+"/pdf")
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/pdf")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     http.MethodGet,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(msg),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", endpoint, err)
	}
	return body, nil
}

// errorMessage extracts the {"error": "..."} message the backend sends on failure.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

func truncate(raw []byte) string {
	const limit = 200
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
