package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	testAPIKey = "test-key"
	testSiteID = "site-1"
)

// fakeWix is an in-memory Stores v1 backend.
type fakeWix struct {
	mu sync.Mutex

	products    map[string]*Product
	productIDs  []string
	variants    map[string][]VariantUpdate
	media       map[string][]string
	collections map[string]string
	links       map[string][]string
	preorder    map[string]bool
	hits        map[string]int
	nextID      int

	// fail returns a status to answer with instead of handling the request.
	fail func(r *http.Request) int
	// hideSKU and hideCollection make the next n filtered queries return nothing.
	hideSKU         int
	hideCollection  int
	rejectSKUFilter bool
	createDelay     time.Duration
	// preorderField is the only preorder flag shape PATCH accepts; other
	// shapes are rejected as unknown fields. Empty rejects all of them.
	preorderField string
}

func newFakeWix(t *testing.T) (*fakeWix, *httptest.Server) {
	t.Helper()
	f := &fakeWix{
		products:    make(map[string]*Product),
		variants:    make(map[string][]VariantUpdate),
		media:       make(map[string][]string),
		collections: make(map[string]string),
		links:       make(map[string][]string),
		preorder:    make(map[string]bool),
		hits:        make(map[string]int),

		preorderField: "preorderInfo",
	}

	mux := http.NewServeMux()
	f.route(mux, "POST /products/query", f.queryProducts)
	f.route(mux, "POST /products", f.createProduct)
	f.route(mux, "PATCH /products/{id}", f.updateProduct)
	f.route(mux, "PATCH /products/{id}/variants", f.updateVariants)
	f.route(mux, "POST /products/{id}/media", f.addMedia)
	f.route(mux, "POST /collections/query", f.queryCollections)
	f.route(mux, "POST /collections", f.createCollection)
	f.route(mux, "POST /collections/{id}/products/add", f.addToCollection)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeWix) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[pattern]++
		fail := f.fail
		f.mu.Unlock()

		if r.Header.Get("Authorization") != testAPIKey || r.Header.Get("wix-site-id") != testSiteID {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if fail != nil {
			if code := fail(r); code != 0 {
				http.Error(w, `{"message":"injected failure"}`, code)
				return
			}
		}
		h(w, r)
	})
}

func (f *fakeWix) hitCount(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[pattern]
}

func (f *fakeWix) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeWix) seedProduct(p Product) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id("prod")
	f.products[p.ID] = &p
	f.productIDs = append(f.productIDs, p.ID)
	return p.ID
}

func (f *fakeWix) seedCollection(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("col")
	f.collections[id] = name
	return id
}

func (f *fakeWix) collectionByName(name string) (string, bool) {
	for id, n := range f.collections {
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return "", false
}

func eqFilter(q queryRequest, field string) (string, bool) {
	cond, ok := q.Query.Filter[field].(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := cond["$eq"].(string)
	return v, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeWix) queryProducts(w http.ResponseWriter, r *http.Request) {
	var q queryRequest
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	sku, filtered := eqFilter(q, "sku")
	if filtered && f.rejectSKUFilter {
		http.Error(w, `{"message":"unsupported filter"}`, http.StatusBadRequest)
		return
	}
	if filtered && f.hideSKU > 0 {
		f.hideSKU--
		writeJSON(w, productsResponse{})
		return
	}

	var out []Product
	for _, id := range f.productIDs {
		p := f.products[id]
		if filtered && !strings.EqualFold(p.SKU, sku) {
			continue
		}
		out = append(out, *p)
	}
	if !filtered {
		lo := min(q.Query.Paging.Offset, len(out))
		hi := min(lo+q.Query.Paging.Limit, len(out))
		out = out[lo:hi]
	}
	writeJSON(w, productsResponse{Products: out, TotalResults: len(out)})
}

func (f *fakeWix) createProduct(w http.ResponseWriter, r *http.Request) {
	var env productEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if strings.EqualFold(p.SKU, env.Product.SKU) {
			http.Error(w, `{"message":"product.sku is not unique"}`, http.StatusBadRequest)
			return
		}
	}
	p := env.Product
	p.ID = f.id("prod")
	f.products[p.ID] = &p
	f.productIDs = append(f.productIDs, p.ID)
	writeJSON(w, productEnvelope{Product: p})
}

// updateProduct merges the PATCH body into the stored product field by field.
func (f *fakeWix) updateProduct(w http.ResponseWriter, r *http.Request) {
	var env struct {
		Product map[string]json.RawMessage `json:"product"`
	}
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	old, ok := f.products[id]
	if !ok {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		return
	}

	for _, field := range []string{"isPreOrder", "preorderInfo", "preOrder"} {
		raw, ok := env.Product[field]
		if !ok {
			continue
		}
		if field != f.preorderField {
			http.Error(w, `{"message":"unknown field `+field+`"}`, http.StatusBadRequest)
			return
		}
		var on bool
		if field == "preorderInfo" {
			var info struct {
				IsPreOrder bool `json:"isPreOrder"`
			}
			_ = json.Unmarshal(raw, &info)
			on = info.IsPreOrder
		} else {
			_ = json.Unmarshal(raw, &on)
		}
		f.preorder[id] = on
		delete(env.Product, field)
	}

	current, _ := json.Marshal(old)
	fields := make(map[string]json.RawMessage)
	_ = json.Unmarshal(current, &fields)
	for k, v := range env.Product {
		fields[k] = v
	}
	merged, _ := json.Marshal(fields)

	var p Product
	if err := json.Unmarshal(merged, &p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.ID = id
	p.Media = old.Media
	f.products[id] = &p
	writeJSON(w, productEnvelope{Product: p})
}

func (f *fakeWix) updateVariants(w http.ResponseWriter, r *http.Request) {
	var req variantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variants[r.PathValue("id")] = req.Variants
	writeJSON(w, map[string]any{})
}

func (f *fakeWix) addMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	for _, m := range req.Media {
		f.media[id] = append(f.media[id], m.URL)
	}
	writeJSON(w, map[string]any{})
}

func (f *fakeWix) queryCollections(w http.ResponseWriter, r *http.Request) {
	var q queryRequest
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	name, filtered := eqFilter(q, "name")
	if filtered && f.hideCollection > 0 {
		f.hideCollection--
		writeJSON(w, collectionsResponse{})
		return
	}
	var out []Collection
	for id, n := range f.collections {
		if filtered && !strings.EqualFold(n, name) {
			continue
		}
		out = append(out, Collection{ID: id, Name: n})
	}
	writeJSON(w, collectionsResponse{Collections: out, TotalResults: len(out)})
}

func (f *fakeWix) createCollection(w http.ResponseWriter, r *http.Request) {
	var env collectionEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	delay := f.createDelay
	f.mu.Unlock()
	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collectionByName(env.Collection.Name); ok {
		http.Error(w, `{"message":"collection already exists"}`, http.StatusBadRequest)
		return
	}
	id := f.id("col")
	f.collections[id] = env.Collection.Name
	writeJSON(w, collectionEnvelope{Collection: Collection{ID: id, Name: env.Collection.Name}})
}

func (f *fakeWix) addToCollection(w http.ResponseWriter, r *http.Request) {
	var req productIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	f.links[id] = append(f.links[id], req.ProductIDs...)
	writeJSON(w, map[string]any{})
}

func newTestClient(srv *httptest.Server, attempts int) *Client {
	return NewClient(Config{
		BaseURL:       srv.URL,
		APIKey:        testAPIKey,
		SiteID:        testSiteID,
		MaxAttempts:   attempts,
		MinRetryDelay: time.Millisecond,
		MaxRetryDelay: 5 * time.Millisecond,
	})
}
