package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/cart/domain"
)

// ClearCartCommand empties a user's cart
type ClearCartCommand struct {
	UserID string
}

// ClearCartHandler handles clear cart command
type ClearCartHandler struct {
	repo domain.CartRepository
}

// NewClearCartHandler creates a new clear cart handler
func NewClearCartHandler(repo domain.CartRepository) *ClearCartHandler {
	return &ClearCartHandler{repo: repo}
}

// Handle returns the number of removed lines
func (h *ClearCartHandler) Handle(ctx context.Context, cmd ClearCartCommand) (int64, error) {
	if cmd.UserID == "" {
		return 0, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	n, err := h.repo.Clear(ctx, cmd.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return n, nil
}
