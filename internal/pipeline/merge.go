package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"preorderimport/internal/model"
	"preorderimport/internal/normalizer"
)

const synthesizedSKUPrefix = "PRE-"

// Merge builds the product for row, filling blank CSV fields from scraped.
// A non-blank CSV value is never replaced. scraped may be nil. Price and
// variants are left for the pricing stage.
func Merge(row model.RawRow, scraped *model.ScrapeResult) (model.EnrichedProduct, []string) {
	if scraped == nil {
		scraped = &model.ScrapeResult{}
	}
	var warnings []string

	p := model.EnrichedProduct{
		Name:             row.Get(model.ColName),
		SKU:              firstNonBlank(row.Get(model.ColSKU), scraped.SKU),
		EAN:              firstNonBlank(row.Get(model.ColEAN), scraped.EAN),
		Description:      firstNonBlank(row.Get(model.ColDescription), scraped.Description),
		ImageURL:         firstNonBlank(row.Get(model.ColImage), scraped.ImageURL),
		Category:         row.Get(model.ColCategory),
		Brand:            row.Get(model.ColBrand),
		ArticleType:      row.Get(model.ColArticleType),
		IsPreorder:       normalizer.ParseBool(row.Get(model.ColPreorderOption)),
		PreorderDeadline: row.Get(model.ColPreorderDeadline),
		ETA:              row.Get(model.ColETA),
		SourceURL:        row.Get(model.ColURL),
	}

	if raw := row.Get(model.ColWeight); raw != "" {
		w, err := normalizer.ParseWeightKg(raw)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("weight %q ignored: %v", raw, err))
		case w.IsNegative():
			warnings = append(warnings, fmt.Sprintf("weight %q ignored: negative", raw))
		default:
			p.Weight.Decimal, p.Weight.Valid = w, true
		}
	}
	if !p.Weight.Valid && scraped.Weight.Valid && !scraped.Weight.Decimal.IsNegative() {
		p.Weight = scraped.Weight
	}

	return p, warnings
}

// needsScrape reports whether any field the scraper can supply is blank.
func needsScrape(row model.RawRow) bool {
	for _, col := range []string{model.ColSKU, model.ColEAN, model.ColWeight, model.ColDescription, model.ColImage} {
		if row.Get(col) == "" {
			return true
		}
	}
	return false
}

// SynthesizeSKU derives a stable SKU from the manufacturer URL, or from the
// product name when there is no URL.
func SynthesizeSKU(sourceURL, name string) string {
	key := strings.TrimSpace(sourceURL)
	if key == "" {
		key = strings.ToLower(strings.Join(strings.Fields(name), " "))
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))
	hex := strings.ReplaceAll(id.String(), "-", "")
	return synthesizedSKUPrefix + strings.ToUpper(hex[:10])
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
