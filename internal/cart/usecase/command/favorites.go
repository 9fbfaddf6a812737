package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tair/storefront/internal/cart/domain"
)

// FavoriteCommand adds or removes one favorite
type FavoriteCommand struct {
	UserID    string
	ProductID string
}

func (c FavoriteCommand) validate() error {
	if strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.ProductID) == "" {
		return fmt.Errorf("%w: user_id and product_id are required", domain.ErrValidation)
	}
	return nil
}

// AddFavoriteHandler handles add favorite command
type AddFavoriteHandler struct {
	repo     domain.FavoriteRepository
	products domain.ProductReader
}

// NewAddFavoriteHandler creates a new add favorite handler
func NewAddFavoriteHandler(repo domain.FavoriteRepository, products domain.ProductReader) *AddFavoriteHandler {
	return &AddFavoriteHandler{repo: repo, products: products}
}

// Handle is idempotent. Unknown products are rejected; an unreachable
// catalog is not.
func (h *AddFavoriteHandler) Handle(ctx context.Context, cmd FavoriteCommand) error {
	if err := cmd.validate(); err != nil {
		return err
	}

	if _, err := h.products.GetProduct(ctx, cmd.ProductID); errors.Is(err, domain.ErrProductNotFound) {
		return err
	}

	if err := h.repo.Add(ctx, cmd.UserID, cmd.ProductID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavoriteHandler handles remove favorite command
type RemoveFavoriteHandler struct {
	repo domain.FavoriteRepository
}

// NewRemoveFavoriteHandler creates a new remove favorite handler
func NewRemoveFavoriteHandler(repo domain.FavoriteRepository) *RemoveFavoriteHandler {
	return &RemoveFavoriteHandler{repo: repo}
}

// Handle is idempotent: removing a missing favorite succeeds
func (h *RemoveFavoriteHandler) Handle(ctx context.Context, cmd FavoriteCommand) error {
	if err := cmd.validate(); err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, cmd.UserID, cmd.ProductID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}
