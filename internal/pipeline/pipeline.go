// Package pipeline drives CSV rows through enrichment, pricing, collection
// resolution and upsert with a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"preorderimport/internal/catalog"
	"preorderimport/internal/model"
	"preorderimport/internal/observability"
	"preorderimport/internal/pricing"
)

const DefaultWorkers = 4

var ErrMissingName = errors.New("product name is blank")

type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (*model.ScrapeResult, error)
}

type Resolver interface {
	Resolve(ctx context.Context, category, brand string) (catalog.Collections, error)
}

type Upserter interface {
	Upsert(ctx context.Context, p model.EnrichedProduct, cols catalog.Collections) (catalog.Result, error)
}

// Describer writes a description for a product that has none.
type Describer interface {
	Describe(ctx context.Context, p model.EnrichedProduct) (string, error)
}

// Pipeline holds the collaborators of a run. Scraper and Describer may be nil.
type Pipeline struct {
	Scraper   Scraper
	Resolver  Resolver
	Upserter  Upserter
	Describer Describer
	Workers   int
}

type Report struct {
	Outcomes []model.Outcome
	Summary  model.Summary
}

// Run processes rows and returns one outcome per row in input order. When ctx
// is cancelled no further rows are started; rows never started are reported
// as not attempted.
func (p *Pipeline) Run(ctx context.Context, rows []model.RawRow) Report {
	workers := p.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, max(len(rows), 1))

	outcomes := make([]model.Outcome, len(rows))
	for i, row := range rows {
		outcomes[i] = model.Outcome{
			Index:  i,
			Line:   row.Line,
			Name:   row.Get(model.ColName),
			SKU:    row.Get(model.ColSKU),
			Status: model.StatusNotAttempted,
			Stage:  model.StageParsed,
		}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				outcomes[i] = p.process(ctx, outcomes[i], rows[i])
			}
		}()
	}

feed:
	for i := range rows {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for _, o := range outcomes {
		observability.RowsTotal.WithLabelValues(string(o.Status)).Inc()
	}
	if err := ctx.Err(); err != nil {
		slog.Warn("run interrupted", "error", err)
	}
	return Report{Outcomes: outcomes, Summary: model.Summarize(outcomes)}
}

func (p *Pipeline) process(ctx context.Context, out model.Outcome, row model.RawRow) model.Outcome {
	fail := func(stage model.Stage, err error) model.Outcome {
		out.Status = model.StatusFailed
		out.Stage = stage
		out.Err = err
		slog.Debug("row failed", "line", out.Line, "stage", stage, "error", err)
		return out
	}

	// Enriched
	var scraped *model.ScrapeResult
	if u := row.Get(model.ColURL); u != "" && p.Scraper != nil && needsScrape(row) {
		res, err := p.Scraper.Scrape(ctx, u)
		if err != nil {
			observability.ScrapeWarningsTotal.Inc()
			out.Warn("scrape failed, using CSV values only: %v", err)
		} else {
			scraped = res
		}
	}

	product, warnings := Merge(row, scraped)
	out.Warnings = append(out.Warnings, warnings...)
	out.Name = product.Name
	if product.Name == "" {
		return fail(model.StageEnriched, ErrMissingName)
	}
	if product.SKU == "" {
		product.SKU = SynthesizeSKU(product.SourceURL, product.Name)
		out.Warn("sku missing, synthesized %s", product.SKU)
	}
	out.SKU = product.SKU

	if product.Description == "" && p.Describer != nil {
		desc, err := p.Describer.Describe(ctx, product)
		if err != nil {
			out.Warn("description not generated: %v", err)
		} else {
			product.Description = desc
		}
	}
	out.Stage = model.StageEnriched

	// Priced
	base, err := pricing.ParseBase(row.Get(model.ColBasePrice))
	if err != nil {
		return fail(model.StagePriced, err)
	}
	if product.Variants, err = pricing.Variants(base, product.IsPreorder); err != nil {
		return fail(model.StagePriced, err)
	}
	product.BasePrice = base
	out.Stage = model.StagePriced

	// CollectionsResolved
	cols, err := p.Resolver.Resolve(ctx, product.Category, product.Brand)
	if err != nil {
		out.Warn("collections: %v", err)
	}
	out.Stage = model.StageCollectionsResolved

	// Upserted
	res, err := p.Upserter.Upsert(ctx, product, cols)
	var linkErr *catalog.CollectionLinkError
	switch {
	case errors.As(err, &linkErr):
		out.Warn("%v", linkErr)
	case err != nil:
		return fail(model.StageUpserted, err)
	}

	out.ProductID = res.ProductID
	out.Warnings = append(out.Warnings, res.Warnings...)
	out.Stage = model.StageUpserted
	out.Status = model.StatusUpdated
	if res.Created {
		out.Status = model.StatusCreated
	}
	return out
}
