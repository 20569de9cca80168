package normalizer

import (
	"strings"

	"preorderimport/internal/model"
)

// reservedPrefix marks auxiliary columns that are dropped before mapping.
const reservedPrefix = "__"

// Required lists the canonical columns every header must carry.
var Required = []string{
	model.ColName,
	model.ColBasePrice,
	model.ColURL,
	model.ColSKU,
	model.ColEAN,
	model.ColWeight,
	model.ColDescription,
	model.ColArticleType,
	model.ColPreorderOption,
	model.ColBrand,
	model.ColCategory,
}

var aliases = map[string]string{
	"name":          model.ColName,
	"nome":          model.ColName,
	"nome_articolo": model.ColName,
	"titolo":        model.ColName,
	"title":         model.ColName,

	"base_price":  model.ColBasePrice,
	"prezzo":      model.ColBasePrice,
	"prezzo_eur":  model.ColBasePrice,
	"prezzo_base": model.ColBasePrice,
	"price":       model.ColBasePrice,

	"url":              model.ColURL,
	"manufacturer_url": model.ColURL,
	"url_produttore":   model.ColURL,
	"link":             model.ColURL,
	"link_produttore":  model.ColURL,

	"sku":    model.ColSKU,
	"codice": model.ColSKU,

	"ean":      model.ColEAN,
	"gtin":     model.ColEAN,
	"gtin_ean": model.ColEAN,
	"ean13":    model.ColEAN,

	"weight":    model.ColWeight,
	"weight_kg": model.ColWeight,
	"peso":      model.ColWeight,
	"peso_kg":   model.ColWeight,

	"description": model.ColDescription,
	"descrizione": model.ColDescription,

	"article_type":  model.ColArticleType,
	"tipo_articolo": model.ColArticleType,
	"tipo":          model.ColArticleType,
	"product_type":  model.ColArticleType,

	"preorder_option": model.ColPreorderOption,
	"preorder":        model.ColPreorderOption,
	"preordine":       model.ColPreorderOption,

	"brand": model.ColBrand,
	"marca": model.ColBrand,

	"category":  model.ColCategory,
	"categoria": model.ColCategory,

	"image":     model.ColImage,
	"immagine":  model.ColImage,
	"image_url": model.ColImage,

	"preorder_deadline": model.ColPreorderDeadline,
	"deadline":          model.ColPreorderDeadline,

	"eta": model.ColETA,
}

// Canonical maps a raw header to its canonical column name.
// The second result is false for reserved or unknown headers.
func Canonical(header string) (string, bool) {
	h := strings.TrimSpace(header)
	if strings.HasPrefix(h, reservedPrefix) {
		return "", false
	}
	col, ok := aliases[foldHeader(h)]
	return col, ok
}

// foldHeader lowercases a header and collapses runs of whitespace, '-' and '/'
// into a single underscore.
func foldHeader(h string) string {
	var sb strings.Builder
	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch r {
		case ' ', '\t', '-', '/', '_':
			sep = true
			continue
		}
		if sep && sb.Len() > 0 {
			sb.WriteByte('_')
		}
		sep = false
		sb.WriteRune(r)
	}
	return sb.String()
}
