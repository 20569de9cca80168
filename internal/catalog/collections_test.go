package catalog

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrandCollectionName(t *testing.T) {
	assert.Equal(t, "Brand: Acme", BrandCollectionName("Acme"))
	assert.Equal(t, "Brand: Acme", BrandCollectionName("  Acme "))
	assert.Equal(t, "", BrandCollectionName("   "))
}

func TestResolverUsesExistingCollections(t *testing.T) {
	fake, srv := newFakeWix(t)
	catID := fake.seedCollection("Illuminazione")

	cols, err := NewResolver(newTestClient(srv, 1)).Resolve(context.Background(), "illuminazione", "")
	require.NoError(t, err)
	assert.Equal(t, catID, cols.CategoryID)
	assert.Empty(t, cols.BrandID)
	assert.Equal(t, []string{catID}, cols.IDs())
	assert.Equal(t, 0, fake.hitCount("POST /collections"))
}

func TestResolverConcurrentSameBrandCreatesOnce(t *testing.T) {
	fake, srv := newFakeWix(t)
	fake.createDelay = 20 * time.Millisecond
	r := NewResolver(newTestClient(srv, 1))

	const n = 16
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var cols Collections
			cols, errs[i] = r.Resolve(context.Background(), "", "Acme")
			ids[i] = cols.BrandID
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.NotEmpty(t, ids[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, fake.hitCount("POST /collections"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Len(t, fake.collections, 1)
}

func TestResolverCachesAcrossRows(t *testing.T) {
	fake, srv := newFakeWix(t)
	r := NewResolver(newTestClient(srv, 1))
	ctx := context.Background()

	first, err := r.Resolve(ctx, "Illuminazione", "Acme")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "ILLUMINAZIONE ", "Acme")
	require.NoError(t, err)

	assert.Equal(t, first.CategoryID, second.CategoryID)
	assert.Equal(t, first.BrandID, second.BrandID)
	assert.Equal(t, 2, fake.hitCount("POST /collections/query"))
	assert.Equal(t, 2, fake.hitCount("POST /collections"))
}

func TestResolverAlreadyExistsLooksUpAgain(t *testing.T) {
	fake, srv := newFakeWix(t)
	id := fake.seedCollection("Brand: Acme")
	fake.hideCollection = 1

	cols, err := NewResolver(newTestClient(srv, 1)).Resolve(context.Background(), "", "Acme")
	require.NoError(t, err)
	assert.Equal(t, id, cols.BrandID)
	assert.Equal(t, 1, fake.hitCount("POST /collections"))
	assert.Equal(t, 2, fake.hitCount("POST /collections/query"))
}

func TestResolverFailureIsNotCached(t *testing.T) {
	fake, srv := newFakeWix(t)
	fake.fail = func(r *http.Request) int {
		if strings.HasPrefix(r.URL.Path, "/collections") {
			return http.StatusInternalServerError
		}
		return 0
	}
	r := NewResolver(newTestClient(srv, 1))

	cols, err := r.Resolve(context.Background(), "Illuminazione", "Acme")
	require.Error(t, err)
	assert.Empty(t, cols.IDs())

	var colErr *CollectionError
	require.ErrorAs(t, err, &colErr)
	assert.Error(t, colErr.LookupErr)
	assert.Error(t, colErr.CreateErr)

	fake.mu.Lock()
	fake.fail = nil
	fake.mu.Unlock()

	cols, err = r.Resolve(context.Background(), "Illuminazione", "Acme")
	require.NoError(t, err)
	assert.Len(t, cols.IDs(), 2)
}

func TestResolverPartialFailureKeepsOtherAxis(t *testing.T) {
	fake, srv := newFakeWix(t)
	catID := fake.seedCollection("Illuminazione")
	fake.fail = func(r *http.Request) int {
		if r.URL.Path == "/collections" {
			return http.StatusForbidden
		}
		return 0
	}

	cols, err := NewResolver(newTestClient(srv, 1)).Resolve(context.Background(), "Illuminazione", "Acme")
	var colErr *CollectionError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "Brand: Acme", colErr.Name)
	assert.NoError(t, colErr.LookupErr)
	assert.Equal(t, catID, cols.CategoryID)
	assert.Empty(t, cols.BrandID)
}

func TestResolverPreload(t *testing.T) {
	fake, srv := newFakeWix(t)
	catID := fake.seedCollection("Illuminazione")
	brandID := fake.seedCollection("Brand: Acme")

	r := NewResolver(newTestClient(srv, 1))
	require.NoError(t, r.Preload(context.Background()))
	queries := fake.hitCount("POST /collections/query")

	cols, err := r.Resolve(context.Background(), "Illuminazione", "Acme")
	require.NoError(t, err)
	assert.Equal(t, catID, cols.CategoryID)
	assert.Equal(t, brandID, cols.BrandID)
	assert.Equal(t, queries, fake.hitCount("POST /collections/query"))
}
