// Package storefront is the Go client for the fotomart API. It mirrors what
// the web storefront does: browsing the catalog, paying for a photo through
// the hosted card widget and, for admins, managing products over a cookie
// session.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

// Product is a catalog entry as served by the API.
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
}

// Order is a recorded purchase as returned by the checkout endpoints.
type Order struct {
	OrderID         string  `json:"order_id"`
	Email           string  `json:"email"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	AmountPaid      float64 `json:"amount_paid"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Status          string  `json:"status"`
	OrderDate       string  `json:"order_date"`
}

// APIError is the decoded error envelope returned by the API.
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront: api error %q (%d): %s", e.Code, e.Status, e.Message)
}

// Client talks to the fotomart API. The embedded cookie jar carries the admin
// session between calls, the way a browser would.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// ClientOption customises Client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client. The provided client
// should carry a cookie jar if admin flows are used.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Client against the given API base URL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storefront: base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("storefront: invalid base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("storefront: cookie jar: %w", err)
	}

	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultRequestTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("storefront: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("storefront: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("storefront: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("storefront: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

func (c *Client) doDelete(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("storefront: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storefront: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("storefront: read response: %w", err)
	}

	c.logger.Debug("api response",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "unexpected_error"
			apiErr.Message = strings.TrimSpace(string(data))
		}
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("storefront: decode response: %w", err)
	}
	return nil
}
