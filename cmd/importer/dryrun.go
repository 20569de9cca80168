package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"preorderimport/internal/catalog"
	"preorderimport/internal/model"
)

// dryRunCatalog stands in for the remote catalog: it logs the payload that
// would be sent and writes nothing.
type dryRunCatalog struct{}

func (dryRunCatalog) Resolve(_ context.Context, category, brand string) (catalog.Collections, error) {
	return catalog.Collections{CategoryName: category, BrandName: catalog.BrandCollectionName(brand)}, nil
}

func (dryRunCatalog) Upsert(_ context.Context, p model.EnrichedProduct, cols catalog.Collections) (catalog.Result, error) {
	payload, err := json.Marshal(catalog.BuildProduct(p))
	if err != nil {
		return catalog.Result{}, err
	}
	slog.Info("dry run: product not sent",
		"sku", p.SKU,
		"variants", len(p.Variants),
		"category", cols.CategoryName,
		"brand_collection", cols.BrandName,
		"payload", string(payload))
	return catalog.Result{Created: true}, nil
}
