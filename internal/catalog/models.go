package catalog

import "encoding/json"

// Wix Stores v1 payloads. Only the fields the importer reads or writes are
// declared.

type Product struct {
	ID                     string                  `json:"id,omitempty"`
	Name                   string                  `json:"name,omitempty"`
	SKU                    string                  `json:"sku,omitempty"`
	ProductType            string                  `json:"productType,omitempty"`
	Description            string                  `json:"description,omitempty"`
	Brand                  string                  `json:"brand,omitempty"`
	Ribbon                 string                  `json:"ribbon,omitempty"`
	Tags                   []string                `json:"tags,omitempty"`
	Weight                 *float64                `json:"weight,omitempty"`
	Visible                *bool                   `json:"visible,omitempty"`
	ManageVariants         *bool                   `json:"manageVariants,omitempty"`
	PriceData              *PriceData              `json:"priceData,omitempty"`
	ProductOptions         []ProductOption         `json:"productOptions,omitempty"`
	AdditionalInfoSections []AdditionalInfoSection `json:"additionalInfoSections,omitempty"`
	Media                  *Media                  `json:"media,omitempty"`

	// clearPreorder makes the encoded payload carry empty ribbon, tags and
	// options so that a PATCH removes them.
	clearPreorder bool
}

func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	if !p.clearPreorder {
		return json.Marshal(plain(p))
	}
	return json.Marshal(struct {
		plain
		Ribbon         string          `json:"ribbon"`
		Tags           []string        `json:"tags"`
		ProductOptions []ProductOption `json:"productOptions"`
	}{plain: plain(p), Tags: []string{}, ProductOptions: []ProductOption{}})
}

type PriceData struct {
	Price          float64  `json:"price"`
	CompareAtPrice *float64 `json:"compareAtPrice,omitempty"`
}

type ProductOption struct {
	Name    string   `json:"name"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

type AdditionalInfoSection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type VariantUpdate struct {
	Choices   map[string]string `json:"choices"`
	PriceData PriceData         `json:"priceData"`
	SKU       string            `json:"sku,omitempty"`
}

type Collection struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Media is read back from the catalog; it is never sent with a product.
type Media struct {
	Items []MediaItem `json:"items,omitempty"`
}

type MediaItem struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`
}

type query struct {
	Filter map[string]any `json:"filter,omitempty"`
	Paging paging         `json:"paging"`
}

type paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset,omitempty"`
}

type queryRequest struct {
	Query query `json:"query"`
}

// Stores has used several field names for the native preorder switch; they
// are tried in this order.
var preorderPatches = []func(on bool) map[string]any{
	func(on bool) map[string]any { return map[string]any{"isPreOrder": on} },
	func(on bool) map[string]any { return map[string]any{"preorderInfo": map[string]any{"isPreOrder": on}} },
	func(on bool) map[string]any { return map[string]any{"preOrder": on} },
}

type productEnvelope struct {
	Product Product `json:"product"`
}

type productsResponse struct {
	Products     []Product `json:"products"`
	TotalResults int       `json:"totalResults"`
}

type collectionEnvelope struct {
	Collection Collection `json:"collection"`
}

type collectionsResponse struct {
	Collections  []Collection `json:"collections"`
	TotalResults int          `json:"totalResults"`
}

type variantsRequest struct {
	Variants []VariantUpdate `json:"variants"`
}

type mediaRequest struct {
	Media []MediaItem `json:"media"`
}

type productIDsRequest struct {
	ProductIDs []string `json:"productIds"`
}
