package crawler

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	xhtml "golang.org/x/net/html"

	"preorderimport/internal/model"
	"preorderimport/internal/normalizer"
)

var (
	reTags       = regexp.MustCompile(`<[^>]*>`)
	reSpaces     = regexp.MustCompile(`[ \t\r\f\v]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)

	reSKU    = regexp.MustCompile(`(?i)\b(?:sku|cod(?:ice)?\.?\s*(?:articolo|prodotto))\s*[:#]?\s*([a-z0-9][a-z0-9._/-]{2,40})`)
	reEAN    = regexp.MustCompile(`(?i)\b(?:ean(?:13)?|gtin(?:13)?)\s*[:#]?\s*(\d{8,14})\b`)
	reWeight = regexp.MustCompile(`(?i)\b(?:peso|weight)(?:\s+(?:netto|lordo|net|gross))?\s*[:=]?\s*(\d+(?:[.,]\d+)?)\s*(kg|gr|g)\b`)
	reDigits = regexp.MustCompile(`^\d{8,14}$`)
)

// ParseProduct extracts fallback values from a product page. Structured data
// wins over markup, markup wins over free-text heuristics.
func ParseProduct(pageURL *url.URL, doc *goquery.Document) *model.ScrapeResult {
	res := &model.ScrapeResult{}

	fromJSONLD(doc, res)
	fromMarkup(doc, res)
	fromText(doc, res)

	if res.ImageURL != "" && pageURL != nil {
		if ref, err := pageURL.Parse(res.ImageURL); err == nil {
			res.ImageURL = ref.String()
		}
	}
	return res
}

func fromMarkup(doc *goquery.Document, res *model.ScrapeResult) {
	if res.ImageURL == "" {
		res.ImageURL = firstAttr(doc,
			`meta[property="og:image"]`, "content",
			`meta[property="og:image:url"]`, "content",
			`[itemprop="image"]`, "content",
			`img[itemprop="image"]`, "src",
			`link[rel="image_src"]`, "href",
		)
	}
	if res.SKU == "" {
		res.SKU = itemprop(doc, "sku")
	}
	if res.EAN == "" {
		for _, prop := range []string{"gtin13", "gtin", "gtin12", "gtin14", "gtin8"} {
			if v := itemprop(doc, prop); validEAN(v) {
				res.EAN = v
				break
			}
		}
	}
	if !res.Weight.Valid {
		raw := firstAttr(doc, `meta[property="product:weight:value"]`, "content")
		if raw != "" {
			raw += firstAttr(doc, `meta[property="product:weight:units"]`, "content")
		} else {
			raw = itemprop(doc, "weight")
		}
		setWeight(res, raw)
	}
	if res.Description == "" {
		res.Description = cleanText(itemprop(doc, "description"))
	}
	if res.Description == "" {
		res.Description = cleanText(doc.Find(`[class*="product-description"], [class*="product__description"], #description`).First().Text())
	}
	if res.Description == "" {
		res.Description = cleanText(firstAttr(doc,
			`meta[property="og:description"]`, "content",
			`meta[name="description"]`, "content",
		))
	}
}

func fromText(doc *goquery.Document, res *model.ScrapeResult) {
	if res.SKU != "" && res.EAN != "" && res.Weight.Valid {
		return
	}
	text := visibleText(doc.Find("body"))

	if res.SKU == "" {
		if m := reSKU.FindStringSubmatch(text); len(m) > 1 {
			res.SKU = m[1]
		}
	}
	if res.EAN == "" {
		if m := reEAN.FindStringSubmatch(text); len(m) > 1 {
			res.EAN = m[1]
		}
	}
	if !res.Weight.Valid {
		if m := reWeight.FindStringSubmatch(text); len(m) > 2 {
			setWeight(res, m[1]+m[2])
		}
	}
}

// firstAttr takes (selector, attribute) pairs and returns the first non-blank value.
func firstAttr(doc *goquery.Document, pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		var found string
		doc.Find(pairs[i]).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(pairs[i+1]); ok && strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// itemprop reads a microdata property from its content attribute or its text.
func itemprop(doc *goquery.Document, name string) string {
	s := doc.Find(`[itemprop="` + name + `"]`).First()
	if s.Length() == 0 {
		return ""
	}
	if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(s.Text())
}

func setWeight(res *model.ScrapeResult, raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	w, err := normalizer.ParseWeightKg(raw)
	if err != nil || w.IsNegative() {
		return
	}
	res.Weight = decimal.NullDecimal{Decimal: w, Valid: true}
}

func validEAN(v string) bool {
	return reDigits.MatchString(v)
}

// visibleText joins the text nodes under sel, one per line, skipping scripts
// and styles so adjacent labels and values do not run together.
func visibleText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == xhtml.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return sb.String()
}

// cleanText strips tags and entities and normalises whitespace.
func cleanText(s string) string {
	s = reTags.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = reSpaces.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
