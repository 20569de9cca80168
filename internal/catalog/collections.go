package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"preorderimport/internal/observability"
)

// BrandPrefix namespaces brand collections so a brand never collides with a
// category of the same name.
const BrandPrefix = "Brand: "

func BrandCollectionName(brand string) string {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return ""
	}
	return BrandPrefix + brand
}

type collectionAPI interface {
	FindCollection(ctx context.Context, name string) (*Collection, error)
	ListCollections(ctx context.Context) ([]Collection, error)
	CreateCollection(ctx context.Context, name string) (*Collection, error)
}

// Collections holds the resolved identifiers for one row. An empty ID means
// the axis had no name or could not be resolved.
type Collections struct {
	CategoryName string
	CategoryID   string
	BrandName    string
	BrandID      string
}

// IDs returns the non-empty collection IDs, category first.
func (c Collections) IDs() []string {
	var ids []string
	for _, id := range []string{c.CategoryID, c.BrandID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Resolver maps names to collection IDs for the duration of one run, creating
// missing collections. Concurrent callers for the same name share one
// lookup/create; unrelated names proceed in parallel.
type Resolver struct {
	api   collectionAPI
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]string
}

func NewResolver(api collectionAPI) *Resolver {
	return &Resolver{api: api, cache: make(map[string]string)}
}

// Preload fills the cache from a full collection listing.
func (r *Resolver) Preload(ctx context.Context) error {
	cols, err := r.api.ListCollections(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cols {
		if c.ID != "" && strings.TrimSpace(c.Name) != "" {
			r.cache[collectionKey(c.Name)] = c.ID
		}
	}
	slog.Info("collections preloaded", "count", len(cols))
	return nil
}

// Resolve resolves the category collection and the brand collection
// concurrently. Whatever resolved is returned even when the other axis fails;
// failures are *CollectionError values joined together.
func (r *Resolver) Resolve(ctx context.Context, category, brand string) (Collections, error) {
	out := Collections{
		CategoryName: strings.TrimSpace(category),
		BrandName:    BrandCollectionName(brand),
	}

	var g errgroup.Group
	var catErr, brandErr error
	g.Go(func() error {
		out.CategoryID, catErr = r.resolveOne(ctx, out.CategoryName)
		return nil
	})
	g.Go(func() error {
		out.BrandID, brandErr = r.resolveOne(ctx, out.BrandName)
		return nil
	})
	_ = g.Wait()

	return out, errors.Join(catErr, brandErr)
}

func (r *Resolver) resolveOne(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	key := collectionKey(name)
	if id, ok := r.cached(key); ok {
		return id, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if id, ok := r.cached(key); ok {
			return id, nil
		}
		id, err := r.lookupOrCreate(ctx, name)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.cache[key] = id
		r.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) cached(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.cache[key]
	return id, ok
}

func (r *Resolver) lookupOrCreate(ctx context.Context, name string) (string, error) {
	found, lookupErr := r.api.FindCollection(ctx, name)
	if lookupErr == nil && found != nil {
		return found.ID, nil
	}
	if lookupErr != nil {
		slog.Warn("collection lookup failed, trying create", "collection", name, "error", lookupErr)
	}

	created, createErr := r.api.CreateCollection(ctx, name)
	if createErr == nil {
		observability.CollectionsCreatedTotal.Inc()
		slog.Info("collection created", "collection", name, "collection_id", created.ID)
		return created.ID, nil
	}

	var apiErr *APIError
	if errors.As(createErr, &apiErr) && apiErr.conflict("already exists", "not unique", "duplicate") {
		if again, err := r.api.FindCollection(ctx, name); err == nil && again != nil {
			return again.ID, nil
		}
	}

	return "", &CollectionError{Name: name, LookupErr: lookupErr, CreateErr: createErr}
}
