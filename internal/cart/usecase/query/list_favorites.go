package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/storefront"
)

// ListFavoritesQuery represents the query to read a user's favorites
type ListFavoritesQuery struct {
	UserID string
}

// ListFavoritesHandler handles list favorites query
type ListFavoritesHandler struct {
	repo     domain.FavoriteRepository
	products domain.ProductReader
}

// NewListFavoritesHandler creates a new list favorites handler
func NewListFavoritesHandler(repo domain.FavoriteRepository, products domain.ProductReader) *ListFavoritesHandler {
	return &ListFavoritesHandler{repo: repo, products: products}
}

// Handle returns the favorited products in the order they were added.
// Products gone from the catalog are skipped.
func (h *ListFavoritesHandler) Handle(ctx context.Context, q ListFavoritesQuery) ([]storefront.Product, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	favs, err := h.repo.List(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	products := make([]storefront.Product, 0, len(favs))
	for _, fav := range favs {
		p, err := h.products.GetProduct(ctx, fav.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve favorite %s: %w", fav.ProductID, err)
		}
		products = append(products, p)
	}
	return products, nil
}
