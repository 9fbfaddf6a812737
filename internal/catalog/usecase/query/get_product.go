package query

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/catalog/domain"
)

// GetProductQuery represents the query to get a product by ID
type GetProductQuery struct {
	ID string
	// IncludeInactive lets back-office callers read hidden products
	IncludeInactive bool
}

// GetProductHandler handles get product query
type GetProductHandler struct {
	repo domain.ProductRepository
}

// NewGetProductHandler creates a new get product handler
func NewGetProductHandler(repo domain.ProductRepository) *GetProductHandler {
	return &GetProductHandler{repo: repo}
}

// Handle executes the get product query. Inactive products read as not found
// for storefront callers.
func (h *GetProductHandler) Handle(ctx context.Context, q GetProductQuery) (*domain.Product, error) {
	if q.ID == "" {
		return nil, fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}

	product, err := h.repo.FindByID(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive && !q.IncludeInactive {
		return nil, domain.ErrNotFound
	}
	return product, nil
}
