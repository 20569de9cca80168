// Package crawler fetches manufacturer product pages and extracts fallback
// values (image, SKU, EAN, weight, description) for the import pipeline.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"preorderimport/internal/model"
)

const (
	DefaultTimeout = 20 * time.Second

	maxBodySize = 5 << 20
	userAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ScrapeError is returned when a page cannot be fetched: invalid URL,
// unreachable host, non-success status or timeout. Callers degrade to CSV-only
// data.
type ScrapeError struct {
	URL        string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *ScrapeError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("scrape %s: status %d", e.URL, e.StatusCode)
	case e.Timeout:
		return fmt.Sprintf("scrape %s: timeout: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("scrape %s: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// Cache memoises scrape results by URL across runs.
type Cache interface {
	Get(ctx context.Context, pageURL string) (*model.ScrapeResult, bool)
	Set(ctx context.Context, pageURL string, res *model.ScrapeResult) error
}

type Scraper struct {
	client *http.Client
	cache  Cache
}

// New returns a Scraper whose fetches are bounded by timeout. cache may be nil.
func New(timeout time.Duration, cache Cache) *Scraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		cache:  cache,
	}
}

// Scrape fetches pageURL and extracts what it can. Fields that cannot be found
// are left empty; only fetch failures return an error.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*model.ScrapeResult, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = errors.New("not an absolute http(s) url")
		}
		return nil, &ScrapeError{URL: pageURL, Err: err}
	}

	if s.cache != nil {
		if res, ok := s.cache.Get(ctx, pageURL); ok {
			slog.Debug("scrape cache hit", "url", pageURL)
			return res, nil
		}
	}

	doc, err := s.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	res := ParseProduct(u, doc)
	slog.Debug("scraped product page", "url", pageURL,
		"image", res.ImageURL != "", "sku", res.SKU, "ean", res.EAN, "weight", res.Weight.Valid)

	if s.cache != nil && !res.Empty() {
		if err := s.cache.Set(ctx, pageURL, res); err != nil {
			slog.Warn("failed to cache scrape result", "url", pageURL, "error", err)
		}
	}
	return res, nil
}

// Fetch downloads u and parses it as HTML, decoding the declared charset.
func (s *Scraper) Fetch(ctx context.Context, u *url.URL) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ScrapeError{URL: u.String(), Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ScrapeError{URL: u.String(), Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &ScrapeError{URL: u.String(), StatusCode: resp.StatusCode}
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &ScrapeError{URL: u.String(), Err: fmt.Errorf("decode charset: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &ScrapeError{URL: u.String(), Timeout: isTimeout(err), Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
