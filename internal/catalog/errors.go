package catalog

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-success response from the catalog API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("catalog %s: status %d: %s", e.Op, e.StatusCode, strings.TrimSpace(body))
}

// Temporary reports whether the call may succeed if retried.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported, http.StatusNetworkAuthenticationRequired:
		return false
	}
	return e.StatusCode >= 500
}

func (e *APIError) conflict(markers ...string) bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	body := strings.ToLower(e.Body)
	for _, m := range markers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}

// UpsertError fails a row: authentication failure, validation rejection or
// retries exhausted.
type UpsertError struct {
	SKU       string
	Op        string
	ProductID string // set when the product exists but a follow-up call failed
	Err       error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert sku %q: %s: %v", e.SKU, e.Op, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }

// CollectionError means a collection could neither be found nor created.
type CollectionError struct {
	Name      string
	LookupErr error
	CreateErr error
}

func (e *CollectionError) Error() string {
	switch {
	case e.LookupErr != nil && e.CreateErr != nil:
		return fmt.Sprintf("collection %q: lookup: %v; create: %v", e.Name, e.LookupErr, e.CreateErr)
	case e.CreateErr != nil:
		return fmt.Sprintf("collection %q: create: %v", e.Name, e.CreateErr)
	}
	return fmt.Sprintf("collection %q: lookup: %v", e.Name, e.LookupErr)
}

func (e *CollectionError) Unwrap() []error {
	var errs []error
	if e.LookupErr != nil {
		errs = append(errs, e.LookupErr)
	}
	if e.CreateErr != nil {
		errs = append(errs, e.CreateErr)
	}
	return errs
}

// CollectionLinkError marks a product that was created or updated but could
// not be attached to some of its collections. It is a partial success.
type CollectionLinkError struct {
	ProductID   string
	Collections []string
	Err         error
}

func (e *CollectionLinkError) Error() string {
	return fmt.Sprintf("link product %s to collections %s: %v", e.ProductID, strings.Join(e.Collections, ", "), e.Err)
}

func (e *CollectionLinkError) Unwrap() error { return e.Err }
