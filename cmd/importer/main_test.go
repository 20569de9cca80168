package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preorderimport/internal/model"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		s    model.Summary
		want int
	}{
		{name: "empty run", s: model.Summary{}, want: exitOK},
		{name: "all created", s: model.Summary{Total: 2, Created: 2}, want: exitOK},
		{name: "some failed", s: model.Summary{Total: 3, Created: 1, Failed: 2}, want: exitOK},
		{name: "all failed", s: model.Summary{Total: 2, Failed: 2}, want: exitAllFail},
		{name: "attempted all failed", s: model.Summary{Total: 5, Failed: 1, NotAttempted: 4}, want: exitAllFail},
		{name: "nothing attempted", s: model.Summary{Total: 3, NotAttempted: 3}, want: exitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.s))
		})
	}
}

func TestOpenInput(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("name;sku\n"), 0o644))
	rc, label, err := openInput(ctx, path, "")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, path, label)
	assert.Equal(t, "name;sku\n", string(body))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("name,sku\n"))
	}))
	defer srv.Close()

	rc, label, err = openInput(ctx, "", srv.URL+"/ok.csv")
	require.NoError(t, err)
	body, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, srv.URL+"/ok.csv", label)
	assert.Equal(t, "name,sku\n", string(body))

	_, _, err = openInput(ctx, "", srv.URL+"/missing.csv")
	assert.ErrorContains(t, err, "status 404")

	_, label, err = openInput(ctx, "-", "")
	require.NoError(t, err)
	assert.Equal(t, "stdin", label)

	_, _, err = openInput(ctx, "", "")
	assert.Error(t, err)
	_, _, err = openInput(ctx, path, srv.URL)
	assert.Error(t, err)
}

func TestDryRunCatalog(t *testing.T) {
	d := dryRunCatalog{}
	cols, err := d.Resolve(context.Background(), "Illuminazione", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Brand: Acme", cols.BrandName)
	assert.Empty(t, cols.IDs())

	res, err := d.Upsert(context.Background(), model.EnrichedProduct{Name: "Lampada X", SKU: "LX-1"}, cols)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestCleanSourcePath(t *testing.T) {
	assert.Equal(t, "internal/catalog/client.go", cleanSourcePath("/home/u/preorderimport/internal/catalog/client.go", "/preorderimport/"))
	assert.Equal(t, "pkg/x.go", cleanSourcePath("/go/src/pkg/x.go", "/nomatch/"))
}
