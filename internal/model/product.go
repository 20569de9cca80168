package model

import "github.com/shopspring/decimal"

// Canonical column names produced by the normalizer.
const (
	ColName             = "name"
	ColBasePrice        = "base_price"
	ColURL              = "url"
	ColSKU              = "sku"
	ColEAN              = "ean"
	ColWeight           = "weight"
	ColDescription      = "description"
	ColArticleType      = "article_type"
	ColPreorderOption   = "preorder_option"
	ColBrand            = "brand"
	ColCategory         = "category"
	ColImage            = "image"
	ColPreorderDeadline = "preorder_deadline"
	ColETA              = "eta"
)

// RawRow is one CSV data line keyed by canonical column name.
type RawRow struct {
	Line   int // 1-based line in the source file
	Values map[string]string
}

// Get returns the trimmed value of a canonical column, or "" when absent.
func (r RawRow) Get(col string) string {
	return r.Values[col]
}

// ScrapeResult holds the fallback values found on a manufacturer page.
// Any field may be empty.
type ScrapeResult struct {
	ImageURL    string              `json:"image_url,omitempty"`
	SKU         string              `json:"sku,omitempty"`
	EAN         string              `json:"ean,omitempty"`
	Weight      decimal.NullDecimal `json:"weight"` // kg
	Description string              `json:"description,omitempty"`
}

// Empty reports whether nothing was extracted.
func (s *ScrapeResult) Empty() bool {
	return s == nil || (s.ImageURL == "" && s.SKU == "" && s.EAN == "" && !s.Weight.Valid && s.Description == "")
}

type Variant struct {
	Label string
	Price decimal.Decimal
}

// EnrichedProduct is a RawRow after scrape fallback, ready for pricing and upsert.
type EnrichedProduct struct {
	Name        string
	SKU         string
	EAN         string
	BasePrice   decimal.Decimal
	Weight      decimal.NullDecimal // kg
	Description string
	ImageURL    string

	Category    string
	Brand       string
	ArticleType string
	IsPreorder  bool

	PreorderDeadline string
	ETA              string
	SourceURL        string

	Variants []Variant
}
