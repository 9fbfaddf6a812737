package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/pkg/money"
)

// ErrProductNotFound is returned for unknown or inactive products
var ErrProductNotFound = errors.New("product not found")

// Catalog reads product display data from the catalog service.
type Catalog struct {
	client *Client
}

func NewCatalog(baseURL string, opts ...Option) *Catalog {
	return &Catalog{client: NewClient(baseURL, opts...)}
}

// GetProduct fetches one product by id
func (c *Catalog) GetProduct(ctx context.Context, id string) (storefront.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return storefront.Product{}, ErrProductNotFound
	}

	var dto productDTO
	err := c.client.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &dto)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return storefront.Product{}, ErrProductNotFound
		}
		return storefront.Product{}, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	if dto.ID == "" {
		return storefront.Product{}, ErrProductNotFound
	}
	return dto.toProduct(), nil
}

func (d productDTO) toProduct() storefront.Product {
	p := storefront.Product{
		ID:          d.ID,
		Name:        d.Name,
		Price:       money.Cents(d.PriceCents),
		Images:      d.Images,
		Category:    d.Category,
		Sizes:       d.Sizes,
		Colors:      d.Colors,
		Description: d.Description,
	}
	if d.OriginalPriceCents != nil {
		op := money.Cents(*d.OriginalPriceCents)
		p.OriginalPrice = &op
	}
	return p
}
