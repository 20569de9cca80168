package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"preorderimport/internal/catalog"
	"preorderimport/internal/config"
	"preorderimport/internal/crawler"
	"preorderimport/internal/describe"
	"preorderimport/internal/model"
	"preorderimport/internal/normalizer"
	"preorderimport/internal/observability"
	"preorderimport/internal/pipeline"
)

const (
	exitOK       = 0
	exitAllFail  = 1
	exitBadInput = 2
)

// go run ./cmd/importer -csv products.csv
// go run ./cmd/importer -url https://example.com/preorder.csv -workers 8
// pbpaste | go run ./cmd/importer -csv - -dry-run
func main() {
	os.Exit(run())
}

func run() int {
	csvPath := flag.String("csv", "", "CSV file to import, '-' for stdin")
	csvURL := flag.String("url", "", "download the CSV from this URL")
	workers := flag.Int("workers", 0, "rows processed concurrently (overrides WORKERS)")
	dryRun := flag.Bool("dry-run", false, "scrape and price rows without writing to the catalog")
	flag.Parse()
	if *csvPath == "" && *csvURL == "" && flag.NArg() == 1 {
		*csvPath = flag.Arg(0)
	}

	cfg := config.Load()
	cfg.DryRun = *dryRun
	if *workers > 0 {
		cfg.Workers = *workers
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return exitBadInput
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	input, source, err := openInput(ctx, *csvPath, *csvURL)
	if err != nil {
		slog.Error("cannot open input", "error", err)
		return exitBadInput
	}
	rows, err := normalizer.Parse(input)
	input.Close()
	if err != nil {
		var schemaErr *normalizer.SchemaError
		if errors.As(err, &schemaErr) {
			slog.Error("csv header rejected", "source", source, "missing", schemaErr.Missing, "error", err)
		} else {
			slog.Error("csv unreadable", "source", source, "error", err)
		}
		return exitBadInput
	}
	slog.Info("csv loaded", "source", source, "rows", len(rows))

	if cfg.MetricsPort != "" {
		observability.Start(cfg.MetricsPort)
	}

	p := &pipeline.Pipeline{
		Scraper: crawler.New(cfg.ScrapeTimeout, openScrapeCache(ctx, cfg)),
		Workers: cfg.Workers,
	}
	if cfg.DryRun {
		p.Resolver, p.Upserter = dryRunCatalog{}, dryRunCatalog{}
	} else {
		client := catalog.NewClient(catalog.Config{
			BaseURL:     cfg.CatalogBaseURL,
			APIKey:      cfg.WixAPIKey,
			SiteID:      cfg.WixSiteID,
			Timeout:     cfg.CatalogTimeout,
			RPS:         cfg.CatalogRPS,
			MaxAttempts: cfg.CatalogMaxAttempts,
		})
		resolver := catalog.NewResolver(client)
		if err := resolver.Preload(ctx); err != nil {
			slog.Warn("collection preload failed, resolving per row", "error", err)
		}
		p.Resolver = resolver
		p.Upserter = catalog.NewUpserter(client)
	}
	if cfg.DescribeMissing {
		p.Describer = describe.New(cfg.OpenAIKey)
	}

	runID := uuid.New()
	journal := openJournal(ctx, cfg.DatabaseURL)
	defer journal.Close()
	journal.Start(ctx, runID, source)

	report := p.Run(ctx, rows)

	logOutcomes(report)
	journal.Finish(context.WithoutCancel(ctx), runID, report)
	slog.Info("import finished", "run_id", runID.String(), "dry_run", cfg.DryRun, "summary", report.Summary.String())

	return exitCode(report.Summary)
}

// exitCode is 1 when every attempted row failed, 0 otherwise.
func exitCode(s model.Summary) int {
	attempted := s.Total - s.NotAttempted
	if attempted > 0 && s.Failed == attempted {
		return exitAllFail
	}
	return exitOK
}

func logOutcomes(report pipeline.Report) {
	for _, o := range report.Outcomes {
		attrs := []any{
			"line", o.Line,
			"name", o.Name,
			"sku", o.SKU,
			"status", string(o.Status),
		}
		if o.ProductID != "" {
			attrs = append(attrs, "product_id", o.ProductID)
		}
		if len(o.Warnings) > 0 {
			attrs = append(attrs, "warnings", strings.Join(o.Warnings, "; "))
		}

		switch o.Status {
		case model.StatusFailed:
			attrs = append(attrs, "stage", string(o.Stage), "error", o.Err)
			slog.Error("row failed", attrs...)
		case model.StatusNotAttempted:
			slog.Warn("row not attempted", attrs...)
		default:
			if len(o.Warnings) > 0 {
				slog.Warn(fmt.Sprintf("row %s with warnings", o.Status), attrs...)
			} else {
				slog.Info("row "+string(o.Status), attrs...)
			}
		}
	}
}

// openScrapeCache connects to Redis when REDIS_URL is set. A full URL
// (redis://...) or a bare host:port is accepted. Any failure disables caching.
func openScrapeCache(ctx context.Context, cfg *config.Config) crawler.Cache {
	if cfg.RedisURL == "" {
		return nil
	}

	opts := &redis.Options{Addr: cfg.RedisURL}
	if strings.Contains(cfg.RedisURL, "://") {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Warn("invalid REDIS_URL, scrape cache disabled", "error", err)
			return nil
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, scrape cache disabled", "addr", opts.Addr, "error", err)
		client.Close()
		return nil
	}
	slog.Info("scrape cache enabled", "addr", opts.Addr, "ttl", cfg.ScrapeCacheTTL)
	return &crawler.RedisCache{Client: client, TTL: cfg.ScrapeCacheTTL}
}
