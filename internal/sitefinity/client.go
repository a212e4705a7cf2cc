// Package sitefinity is a small client for the Sitefinity OData services:
// the content service for published reads and the management service for
// drafts.
package sitefinity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitefinity-mcp-server/internal/config"
)

// APIError is returned for non-success HTTP responses.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("sitefinity %s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether the request is worth retrying.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

const maxErrorBody = 512

// ListOptions map onto OData query options.
type ListOptions struct {
	Top     int
	Skip    int
	Filter  string
	OrderBy string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Top > 0 {
		q.Set("$top", strconv.Itoa(o.Top))
	}
	if o.Skip > 0 {
		q.Set("$skip", strconv.Itoa(o.Skip))
	}
	if o.Filter != "" {
		q.Set("$filter", o.Filter)
	}
	if o.OrderBy != "" {
		q.Set("$orderby", o.OrderBy)
	}
	return q
}

// Client talks to one Sitefinity site.
type Client struct {
	contentURL    string
	managementURL string
	auth          config.AuthConfig
	retry         config.RetryConfig
	httpClient    *http.Client
	logger        *zap.Logger
	sleep         func(context.Context, time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a client from site configuration.
func NewClient(cfg config.SitefinityConfig, opts ...Option) *Client {
	c := &Client{
		contentURL:    cfg.ContentURL(),
		managementURL: cfg.ManagementURL(),
		auth:          cfg.Auth,
		retry:         cfg.Retry,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout()},
		logger:        zap.NewNop(),
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches a collection from the content service.
func (c *Client) List(ctx context.Context, ct ContentType, opts ListOptions) (Collection, error) {
	endpoint := c.contentURL + "/" + ct.EntitySet
	if q := opts.query(); len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var out Collection
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return Collection{}, fmt.Errorf("listing %s: %w", ct.EntitySet, err)
	}
	if out.Value == nil {
		out.Value = []Item{}
	}
	return out, nil
}

// Item fetches a single entity by key.
func (c *Client) Item(ctx context.Context, ct ContentType, id string) (Item, error) {
	endpoint := fmt.Sprintf("%s/%s(%s)", c.contentURL, ct.EntitySet, url.PathEscape(id))
	var out Item
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching %s %s: %w", ct.Noun, id, err)
	}
	return out, nil
}

// Parents lists the containers of ct in service order.
func (c *Client) Parents(ctx context.Context, ct ContentType) (ParentList, error) {
	col, err := c.List(ctx, ct, ListOptions{})
	if err != nil {
		return nil, err
	}
	out := make(ParentList, 0, len(col.Value))
	for _, it := range col.Value {
		id := it.ID()
		if id == "" {
			continue
		}
		out = append(out, Parent{ID: id, Title: it.String("Title")})
	}
	return out, nil
}

// Create posts a new entity. Drafts go to the management service, published
// items to the content service.
func (c *Client) Create(ctx context.Context, ct ContentType, payload map[string]any, draft bool) (Item, error) {
	base := c.contentURL
	if draft {
		base = c.managementURL
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", ct.Noun, err)
	}
	var out Item
	if err := c.do(ctx, http.MethodPost, base+"/"+ct.EntitySet, body, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Item{}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	attempts := c.retry.Attempts()
	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := c.backoff(i)
			c.logger.Debug("retrying sitefinity request",
				zap.String("method", method),
				zap.String("url", endpoint),
				zap.Int("attempt", i+1),
				zap.Duration("wait", wait),
				zap.Error(lastErr))
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}

		retry, err := c.once(ctx, method, endpoint, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, endpoint string, body []byte, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("sitefinity request",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			URL:        endpoint,
			Body:       excerpt(raw),
		}
		return apiErr.Temporary(), apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return false, nil
}

func (c *Client) authorize(req *http.Request) {
	switch strings.ToLower(c.auth.Type) {
	case config.AuthAPIKey:
		header := c.auth.APIKeyHeader
		if header == "" {
			header = "X-SF-APIKEY"
		}
		req.Header.Set(header, c.auth.APIKey)
	case config.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	case config.AuthBasic:
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	}
}

// backoff doubles from MinBackoff per retry, capped at MaxBackoff.
func (c *Client) backoff(retry int) time.Duration {
	wait := c.retry.MinBackoff()
	limit := c.retry.MaxBackoff()
	for i := 1; i < retry && wait < limit; i++ {
		wait *= 2
	}
	if wait > limit {
		wait = limit
	}
	return wait
}

func excerpt(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
