package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const pageSize = 100

// FindProductBySKU returns the product whose SKU matches (case-insensitive),
// or nil. When the filtered query is rejected or its results do not match,
// the catalog is scanned page by page.
func (c *Client) FindProductBySKU(ctx context.Context, sku string) (*Product, error) {
	req := queryRequest{Query: query{
		Filter: map[string]any{"sku": map[string]any{"$eq": sku}},
		Paging: paging{Limit: pageSize},
	}}
	var resp productsResponse
	err := c.do(ctx, "product.query", http.MethodPost, "/products/query", req, &resp)

	var apiErr *APIError
	switch {
	case err == nil:
		if p := matchSKU(resp.Products, sku); p != nil {
			return p, nil
		}
		if len(resp.Products) == 0 {
			return nil, nil
		}
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest:
	default:
		return nil, err
	}

	return c.scanProductsForSKU(ctx, sku)
}

func (c *Client) scanProductsForSKU(ctx context.Context, sku string) (*Product, error) {
	for offset := 0; ; offset += pageSize {
		req := queryRequest{Query: query{Paging: paging{Limit: pageSize, Offset: offset}}}
		var resp productsResponse
		if err := c.do(ctx, "product.scan", http.MethodPost, "/products/query", req, &resp); err != nil {
			return nil, err
		}
		if p := matchSKU(resp.Products, sku); p != nil {
			return p, nil
		}
		if len(resp.Products) < pageSize {
			return nil, nil
		}
	}
}

func matchSKU(products []Product, sku string) *Product {
	want := strings.ToLower(strings.TrimSpace(sku))
	for i := range products {
		if strings.ToLower(strings.TrimSpace(products[i].SKU)) == want {
			return &products[i]
		}
	}
	return nil
}

func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	var resp productEnvelope
	if err := c.do(ctx, "product.create", http.MethodPost, "/products", productEnvelope{Product: p}, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, p Product) (*Product, error) {
	p.ID = id
	var resp productEnvelope
	if err := c.do(ctx, "product.update", http.MethodPatch, "/products/"+url.PathEscape(id), productEnvelope{Product: p}, &resp); err != nil {
		return nil, err
	}
	if resp.Product.ID == "" {
		resp.Product.ID = id
	}
	return &resp.Product, nil
}

// SetPreorder flips the product's native preorder flag. Each known payload
// shape is tried until one is accepted.
func (c *Client) SetPreorder(ctx context.Context, productID string, enabled bool) error {
	path := "/products/" + url.PathEscape(productID)
	var errs []error
	for _, patch := range preorderPatches {
		err := c.do(ctx, "product.preorder", http.MethodPatch, path, map[string]any{"product": patch(enabled)}, nil)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func (c *Client) UpdateVariants(ctx context.Context, productID string, variants []VariantUpdate) error {
	path := "/products/" + url.PathEscape(productID) + "/variants"
	return c.do(ctx, "product.variants", http.MethodPatch, path, variantsRequest{Variants: variants}, nil)
}

func (c *Client) AddMedia(ctx context.Context, productID string, imageURLs ...string) error {
	media := make([]MediaItem, 0, len(imageURLs))
	for _, u := range imageURLs {
		media = append(media, MediaItem{URL: u})
	}
	path := "/products/" + url.PathEscape(productID) + "/media"
	return c.do(ctx, "product.media", http.MethodPost, path, mediaRequest{Media: media}, nil)
}

// FindCollection returns the collection named name, compared case- and
// space-insensitively, or nil.
func (c *Client) FindCollection(ctx context.Context, name string) (*Collection, error) {
	req := queryRequest{Query: query{
		Filter: map[string]any{"name": map[string]any{"$eq": name}},
		Paging: paging{Limit: pageSize},
	}}
	var resp collectionsResponse
	if err := c.do(ctx, "collection.query", http.MethodPost, "/collections/query", req, &resp); err != nil {
		return nil, err
	}
	return matchCollection(resp.Collections, name), nil
}

// ListCollections pages through every collection.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	var all []Collection
	for offset := 0; ; offset += pageSize {
		req := queryRequest{Query: query{Paging: paging{Limit: pageSize, Offset: offset}}}
		var resp collectionsResponse
		if err := c.do(ctx, "collection.list", http.MethodPost, "/collections/query", req, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Collections...)
		if len(resp.Collections) < pageSize {
			return all, nil
		}
	}
}

func (c *Client) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	var resp collectionEnvelope
	if err := c.do(ctx, "collection.create", http.MethodPost, "/collections", collectionEnvelope{Collection: Collection{Name: name}}, &resp); err != nil {
		return nil, err
	}
	return &resp.Collection, nil
}

func (c *Client) AddProductsToCollection(ctx context.Context, collectionID string, productIDs ...string) error {
	path := "/collections/" + url.PathEscape(collectionID) + "/products/add"
	return c.do(ctx, "collection.link", http.MethodPost, path, productIDsRequest{ProductIDs: productIDs}, nil)
}

func matchCollection(cols []Collection, name string) *Collection {
	want := collectionKey(name)
	for i := range cols {
		if collectionKey(cols[i].Name) == want {
			return &cols[i]
		}
	}
	return nil
}

// collectionKey folds a collection name for comparison and caching.
func collectionKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}
