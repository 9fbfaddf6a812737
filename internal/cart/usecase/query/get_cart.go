package query

import (
	"context"
	"fmt"
	"slices"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/pkg/logger"
)

// GetCartQuery represents the query to read a user's cart
type GetCartQuery struct {
	UserID string
}

// GetCartHandler handles get cart query
type GetCartHandler struct {
	repo     domain.CartRepository
	products domain.ProductReader
}

// NewGetCartHandler creates a new get cart handler
func NewGetCartHandler(repo domain.CartRepository, products domain.ProductReader) *GetCartHandler {
	return &GetCartHandler{repo: repo, products: products}
}

// Handle returns the cart lines with their snapshots refreshed from the
// catalog. Refreshing is best effort; stored snapshots are served when the
// catalog cannot answer.
func (h *GetCartHandler) Handle(ctx context.Context, q GetCartQuery) ([]domain.CartLine, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	lines, err := h.repo.ListLines(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	products := make(map[string]*storefront.Product)
	for i := range lines {
		line := &lines[i]

		product, seen := products[line.ProductID]
		if !seen {
			p, err := h.products.GetProduct(ctx, line.ProductID)
			if err == nil {
				product = &p
			}
			products[line.ProductID] = product
		}
		if product == nil || !stale(line, product) {
			continue
		}

		line.ProductName = product.Name
		line.UnitPriceCents = int64(product.Price)
		line.Images = product.Images
		if err := h.repo.UpdateSnapshot(ctx, line); err != nil {
			logger.Warn(ctx).Err(err).Str("product_id", line.ProductID).Msg("Failed to store refreshed snapshot")
		}
	}
	return lines, nil
}

func stale(line *domain.CartLine, p *storefront.Product) bool {
	return line.ProductName != p.Name ||
		line.UnitPriceCents != int64(p.Price) ||
		!slices.Equal(line.Images, p.Images)
}
