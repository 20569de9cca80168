package observability

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preorder_import_rows_total",
			Help: "Rows processed, by outcome status",
		},
		[]string{"status"},
	)

	ScrapeWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "preorder_import_scrape_warnings_total",
			Help: "Manufacturer pages that could not be scraped",
		},
	)

	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preorder_import_catalog_requests_total",
			Help: "Remote catalog calls, by operation and HTTP status code",
		},
		[]string{"op", "code"},
	)

	CatalogRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preorder_import_catalog_retries_total",
			Help: "Remote catalog calls retried after a transient failure",
		},
		[]string{"op"},
	)

	CollectionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "preorder_import_collections_created_total",
			Help: "Collections created in the remote catalog",
		},
	)
)

// Register adds the importer collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(RowsTotal, ScrapeWarningsTotal, CatalogRequestsTotal, CatalogRetriesTotal, CollectionsCreatedTotal)
}

// Start registers the collectors on the default registry and serves /metrics
// on port in the background.
func Start(port string) {
	Register(prometheus.DefaultRegisterer)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "port", port, "error", err)
		}
	}()
}
