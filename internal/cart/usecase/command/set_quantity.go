package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/storefront"
)

// SetQuantityCommand overwrites the quantity of a cart line
type SetQuantityCommand struct {
	UserID    string
	ProductID string
	Size      string
	Color     string
	Quantity  int
}

// SetQuantityHandler handles set quantity command
type SetQuantityHandler struct {
	repo domain.CartRepository
}

// NewSetQuantityHandler creates a new set quantity handler
func NewSetQuantityHandler(repo domain.CartRepository) *SetQuantityHandler {
	return &SetQuantityHandler{repo: repo}
}

// Handle sets the quantity. Zero or less removes the line, and a line that
// does not exist is left absent.
func (h *SetQuantityHandler) Handle(ctx context.Context, cmd SetQuantityCommand) error {
	if cmd.UserID == "" || cmd.ProductID == "" {
		return fmt.Errorf("%w: user_id and product_id are required", domain.ErrValidation)
	}
	key := storefront.NewLineKey(cmd.ProductID, cmd.Size, cmd.Color)

	var err error
	if cmd.Quantity <= 0 {
		err = h.repo.DeleteLine(ctx, cmd.UserID, key)
	} else {
		err = h.repo.SetQuantity(ctx, cmd.UserID, key, cmd.Quantity)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to set quantity: %w", err)
	}
	return nil
}
