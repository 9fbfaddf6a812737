package client

import (
	"context"
	"errors"
	"time"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/internal/storefront/remote"
	"github.com/tair/storefront/pkg/breaker"
	"github.com/tair/storefront/pkg/logger"
)

// CatalogClient resolves products through the catalog service HTTP API
type CatalogClient struct {
	catalog *remote.Catalog
}

// NewCatalogClient creates a catalog client guarded by its own breaker
func NewCatalogClient(baseURL string) *CatalogClient {
	logger.Logger.Info().
		Str("address", baseURL).
		Msg("Catalog client configured")

	return &CatalogClient{
		catalog: remote.NewCatalog(baseURL, remote.WithBreaker(breaker.New("catalog", 5, 30*time.Second))),
	}
}

// GetProduct translates the catalog's not-found into domain.ErrProductNotFound
func (c *CatalogClient) GetProduct(ctx context.Context, id string) (storefront.Product, error) {
	p, err := c.catalog.GetProduct(ctx, id)
	if errors.Is(err, remote.ErrProductNotFound) {
		return storefront.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

var _ domain.ProductReader = (*CatalogClient)(nil)
