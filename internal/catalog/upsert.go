package catalog

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"preorderimport/internal/model"
	"preorderimport/internal/pricing"
)

const (
	maxNameRunes = 80
	PreorderMark = "PREORDER"
	eanSection   = "EAN"
)

type productAPI interface {
	FindProductBySKU(ctx context.Context, sku string) (*Product, error)
	CreateProduct(ctx context.Context, p Product) (*Product, error)
	UpdateProduct(ctx context.Context, id string, p Product) (*Product, error)
	UpdateVariants(ctx context.Context, productID string, variants []VariantUpdate) error
	AddMedia(ctx context.Context, productID string, imageURLs ...string) error
	SetPreorder(ctx context.Context, productID string, enabled bool) error
	AddProductsToCollection(ctx context.Context, collectionID string, productIDs ...string) error
}

// Result describes a product that now exists remotely.
type Result struct {
	ProductID string
	Created   bool
	Warnings  []string
}

// Upserter creates or updates one product per SKU.
type Upserter struct {
	api productAPI
}

func NewUpserter(api productAPI) *Upserter {
	return &Upserter{api: api}
}

// Upsert writes p to the catalog keyed by SKU, then its variants, native
// preorder flag, image and collection links. A *CollectionLinkError is returned together with a valid
// Result; any other error is an *UpsertError and the Result is empty.
func (u *Upserter) Upsert(ctx context.Context, p model.EnrichedProduct, cols Collections) (Result, error) {
	payload := BuildProduct(p)

	existing, err := u.api.FindProductBySKU(ctx, p.SKU)
	if err != nil {
		return Result{}, &UpsertError{SKU: p.SKU, Op: "lookup", Err: err}
	}

	var res Result
	var saved *Product
	if existing != nil {
		if saved, err = u.api.UpdateProduct(ctx, existing.ID, forUpdate(payload)); err != nil {
			return Result{}, &UpsertError{SKU: p.SKU, Op: "update", ProductID: existing.ID, Err: err}
		}
	} else {
		saved, existing, err = u.create(ctx, payload)
		if err != nil {
			return Result{}, err
		}
		res.Created = existing == nil
	}
	res.ProductID = saved.ID
	if res.ProductID == "" {
		return Result{}, &UpsertError{SKU: p.SKU, Op: "create", Err: errors.New("catalog returned no product id")}
	}

	if p.IsPreorder && len(p.Variants) > 0 {
		if err := u.api.UpdateVariants(ctx, res.ProductID, variantUpdates(p)); err != nil {
			return Result{}, &UpsertError{SKU: p.SKU, Op: "variants", ProductID: res.ProductID, Err: err}
		}
	}

	// A fresh product starts without the flag, so only a previous preorder
	// needs switching off.
	if p.IsPreorder || (existing != nil && existing.Ribbon == PreorderMark) {
		if err := u.api.SetPreorder(ctx, res.ProductID, p.IsPreorder); err != nil {
			slog.Warn("setting preorder flag failed", "sku", p.SKU, "product_id", res.ProductID, "enabled", p.IsPreorder, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("preorder flag not set: %v", err))
		}
	}

	if p.ImageURL != "" && (existing == nil || !hasMedia(existing)) {
		if err := u.api.AddMedia(ctx, res.ProductID, p.ImageURL); err != nil {
			slog.Warn("adding product image failed", "sku", p.SKU, "product_id", res.ProductID, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("image not attached: %v", err))
		}
	}

	return res, u.link(ctx, res.ProductID, cols)
}

// create posts payload. When the catalog reports the SKU as taken, the
// existing product is looked up again and patched instead; it is returned as
// the second value in that case.
func (u *Upserter) create(ctx context.Context, payload Product) (*Product, *Product, error) {
	saved, err := u.api.CreateProduct(ctx, payload)
	if err == nil {
		return saved, nil, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.conflict("sku is not unique", "already exists") {
		return nil, nil, &UpsertError{SKU: payload.SKU, Op: "create", Err: err}
	}

	slog.Info("sku already taken, switching to update", "sku", payload.SKU)
	existing, findErr := u.api.FindProductBySKU(ctx, payload.SKU)
	if findErr != nil || existing == nil {
		return nil, nil, &UpsertError{SKU: payload.SKU, Op: "create", Err: errors.Join(err, findErr)}
	}
	if saved, err = u.api.UpdateProduct(ctx, existing.ID, forUpdate(payload)); err != nil {
		return nil, nil, &UpsertError{SKU: payload.SKU, Op: "update", ProductID: existing.ID, Err: err}
	}
	return saved, existing, nil
}

func (u *Upserter) link(ctx context.Context, productID string, cols Collections) error {
	var failed []string
	var errs []error
	for _, id := range cols.IDs() {
		if err := u.api.AddProductsToCollection(ctx, id, productID); err != nil {
			failed = append(failed, id)
			errs = append(errs, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &CollectionLinkError{ProductID: productID, Collections: failed, Err: errors.Join(errs...)}
}

// forUpdate prepares a payload for PATCH. PATCH keeps fields it does not
// receive, so a product that is no longer a preorder sends them empty.
func forUpdate(p Product) Product {
	p.clearPreorder = p.Ribbon != PreorderMark
	return p
}

func hasMedia(p *Product) bool {
	return p.Media != nil && len(p.Media.Items) > 0
}

// BuildProduct maps an enriched row onto the catalog product payload.
func BuildProduct(p model.EnrichedProduct) Product {
	out := Product{
		Name:        truncateRunes(strings.TrimSpace(p.Name), maxNameRunes),
		SKU:         p.SKU,
		ProductType: productType(p.ArticleType),
		Description: BuildDescription(p.Description, p.PreorderDeadline, p.ETA),
		Brand:       strings.TrimSpace(p.Brand),
		PriceData:   &PriceData{Price: p.BasePrice.InexactFloat64()},
	}

	if p.Weight.Valid && out.ProductType == "physical" {
		w := p.Weight.Decimal.InexactFloat64()
		out.Weight = &w
	}
	if p.EAN != "" {
		out.AdditionalInfoSections = []AdditionalInfoSection{{Title: eanSection, Description: p.EAN}}
	}
	if p.IsPreorder {
		manage := true
		out.Ribbon = PreorderMark
		out.Tags = []string{PreorderMark}
		out.ManageVariants = &manage
		out.ProductOptions = []ProductOption{{
			Name: pricing.OptionName,
			Choices: []Choice{
				{Value: pricing.LabelDeposit, Description: pricing.LabelDeposit},
				{Value: pricing.LabelPrepay, Description: pricing.LabelPrepay},
			},
		}}
	}
	return out
}

func variantUpdates(p model.EnrichedProduct) []VariantUpdate {
	out := make([]VariantUpdate, 0, len(p.Variants))
	for _, v := range p.Variants {
		vu := VariantUpdate{
			Choices:   map[string]string{pricing.OptionName: v.Label},
			PriceData: PriceData{Price: v.Price.InexactFloat64()},
			SKU:       pricing.VariantSKU(p.SKU, v.Label),
		}
		if v.Label == pricing.LabelPrepay {
			compare := pricing.Round(p.BasePrice).InexactFloat64()
			vu.PriceData.CompareAtPrice = &compare
		}
		out = append(out, vu)
	}
	return out
}

// BuildDescription renders the product description as HTML, prefixed with
// the preorder deadline and ETA when known.
func BuildDescription(body, deadline, eta string) string {
	var head []string
	if d := strings.TrimSpace(deadline); d != "" {
		head = append(head, "<strong>PREORDER DEADLINE:</strong> "+html.EscapeString(d))
	}
	if e := strings.TrimSpace(eta); e != "" {
		head = append(head, "<strong>ETA:</strong> "+html.EscapeString(e))
	}
	headHTML := strings.Join(head, "<br>")

	bodyHTML := strings.TrimSpace(body)
	if bodyHTML != "" {
		bodyHTML = strings.ReplaceAll(html.EscapeString(bodyHTML), "\n", "<br>")
	}

	switch {
	case headHTML != "" && bodyHTML != "":
		return "<p>" + headHTML + "</p><p><br></p><p>" + bodyHTML + "</p>"
	case headHTML != "":
		return "<p>" + headHTML + "</p>"
	case bodyHTML != "":
		return "<p>" + bodyHTML + "</p>"
	}
	return ""
}

func productType(articleType string) string {
	if strings.Contains(strings.ToLower(articleType), "digital") {
		return "digital"
	}
	return "physical"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
