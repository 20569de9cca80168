// Package catalog talks to the remote Wix Stores catalog: SKU-keyed product
// upserts, collection resolution and product-to-collection links.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"preorderimport/internal/observability"
)

const (
	DefaultBaseURL     = "https://www.wixapis.com/stores/v1"
	DefaultMaxAttempts = 3
	DefaultTimeout     = 60 * time.Second

	defaultMinRetryDelay = 500 * time.Millisecond
	defaultMaxRetryDelay = 10 * time.Second
	maxErrorBody         = 64 << 10
)

// Config carries the already-resolved credentials and transport policy.
type Config struct {
	BaseURL string
	APIKey  string
	SiteID  string

	Timeout time.Duration
	// RPS caps outgoing calls per second; zero disables the limiter.
	RPS float64
	// MaxAttempts bounds every call, first attempt included.
	MaxAttempts   int
	MinRetryDelay time.Duration
	MaxRetryDelay time.Duration
}

type Client struct {
	baseURL    string
	apiKey     string
	siteID     string
	httpClient *http.Client
	limiter    *rate.Limiter

	maxAttempts   int
	minRetryDelay time.Duration
	maxRetryDelay time.Duration
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MinRetryDelay <= 0 {
		cfg.MinRetryDelay = defaultMinRetryDelay
	}
	if cfg.MaxRetryDelay < cfg.MinRetryDelay {
		cfg.MaxRetryDelay = max(defaultMaxRetryDelay, cfg.MinRetryDelay)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(cfg.RPS)))
	}

	return &Client{
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		siteID:        cfg.SiteID,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		limiter:       limiter,
		maxAttempts:   cfg.MaxAttempts,
		minRetryDelay: cfg.MinRetryDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
	}
}

// do sends in as JSON and decodes the response into out. Transient failures
// (network errors, 5xx, 408, 429) are retried with exponential backoff and full
// jitter up to maxAttempts; Retry-After is honoured up to maxRetryDelay.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("catalog %s: marshal request: %w", op, err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay(attempt-1, lastErr)
			observability.CatalogRetriesTotal.WithLabelValues(op).Inc()
			slog.Debug("retrying catalog call", "op", op, "attempt", attempt, "delay", delay, "error", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("catalog %s: %w", op, ctx.Err())
			case <-timer.C:
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("catalog %s: rate limiter: %w", op, err)
		}

		lastErr = c.send(ctx, op, method, path, body, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(ctx, lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("catalog %s: giving up after %d attempts: %w", op, c.maxAttempts, lastErr)
}

func (c *Client) send(ctx context.Context, op, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("catalog %s: create request: %w", op, err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("wix-site-id", c.siteID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.CatalogRequestsTotal.WithLabelValues(op, "error").Inc()
		return err
	}
	defer resp.Body.Close()
	observability.CatalogRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(b),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("catalog %s: decode response: %w", op, err)
	}
	return nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (c *Client) retryDelay(retry int, lastErr error) time.Duration {
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
		return min(apiErr.RetryAfter, c.maxRetryDelay)
	}

	delay := c.minRetryDelay << (retry - 1)
	if delay <= 0 || delay > c.maxRetryDelay {
		delay = c.maxRetryDelay
	}
	return time.Duration(rand.Int64N(int64(delay) + 1))
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
