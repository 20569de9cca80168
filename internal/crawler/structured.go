package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"preorderimport/internal/model"
)

var eanKeys = []string{"gtin13", "gtin", "gtin12", "gtin14", "gtin8", "ean"}

// fromJSONLD reads schema.org Product nodes from ld+json blocks.
func fromJSONLD(doc *goquery.Document, res *model.ScrapeResult) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if !gjson.Valid(raw) {
			return true
		}
		product := findProduct(gjson.Parse(raw))
		if !product.Exists() {
			return true
		}
		applyProduct(product, res)
		return false
	})
}

func findProduct(v gjson.Result) gjson.Result {
	switch {
	case v.IsArray():
		var found gjson.Result
		v.ForEach(func(_, item gjson.Result) bool {
			found = findProduct(item)
			return !found.Exists()
		})
		return found
	case v.IsObject():
		if isProductType(v.Get("@type")) {
			return v
		}
		for _, key := range []string{"@graph", "mainEntity"} {
			if nested := v.Get(key); nested.Exists() {
				if p := findProduct(nested); p.Exists() {
					return p
				}
			}
		}
	}
	return gjson.Result{}
}

func isProductType(t gjson.Result) bool {
	match := false
	check := func(s string) {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "http://schema.org/"), "https://schema.org/")
		if s == "Product" || s == "IndividualProduct" || s == "ProductModel" {
			match = true
		}
	}
	if t.IsArray() {
		t.ForEach(func(_, item gjson.Result) bool {
			check(item.String())
			return !match
		})
		return match
	}
	check(t.String())
	return match
}

func applyProduct(p gjson.Result, res *model.ScrapeResult) {
	if res.ImageURL == "" {
		res.ImageURL = imageOf(p.Get("image"))
	}
	if res.SKU == "" {
		res.SKU = strings.TrimSpace(p.Get("sku").String())
	}
	if res.SKU == "" {
		res.SKU = strings.TrimSpace(firstOffer(p).Get("sku").String())
	}
	if res.EAN == "" {
		for _, key := range eanKeys {
			if v := strings.TrimSpace(p.Get(key).String()); validEAN(v) {
				res.EAN = v
				break
			}
		}
	}
	if !res.Weight.Valid {
		applyWeight(p.Get("weight"), res)
	}
	if res.Description == "" {
		res.Description = cleanText(p.Get("description").String())
	}
}

func firstOffer(p gjson.Result) gjson.Result {
	offers := p.Get("offers")
	if offers.IsArray() {
		return offers.Get("0")
	}
	return offers
}

func imageOf(v gjson.Result) string {
	switch {
	case v.IsArray():
		return imageOf(v.Get("0"))
	case v.IsObject():
		if u := v.Get("url").String(); u != "" {
			return u
		}
		return v.Get("contentUrl").String()
	}
	return strings.TrimSpace(v.String())
}

// applyWeight accepts a QuantitativeValue ({value, unitCode}) or a plain
// number/string such as "1.2 kg".
func applyWeight(v gjson.Result, res *model.ScrapeResult) {
	if !v.Exists() {
		return
	}
	if !v.IsObject() {
		setWeight(res, v.String())
		return
	}

	value := v.Get("value").String()
	if value == "" {
		return
	}
	unit := strings.ToUpper(strings.TrimSpace(v.Get("unitCode").String() + v.Get("unitText").String()))
	switch unit {
	case "GRM", "G", "GR", "GRAMS":
		setWeight(res, value+"g")
	case "LBR", "LB", "LBS":
		setWeight(res, value)
		if res.Weight.Valid {
			res.Weight.Decimal = res.Weight.Decimal.Mul(decimal.RequireFromString("0.45359237"))
		}
	default:
		setWeight(res, value)
	}
}
