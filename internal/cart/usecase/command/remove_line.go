package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/storefront"
)

// RemoveLineCommand deletes one cart line
type RemoveLineCommand struct {
	UserID    string
	ProductID string
	Size      string
	Color     string
}

// RemoveLineHandler handles remove line command
type RemoveLineHandler struct {
	repo domain.CartRepository
}

// NewRemoveLineHandler creates a new remove line handler
func NewRemoveLineHandler(repo domain.CartRepository) *RemoveLineHandler {
	return &RemoveLineHandler{repo: repo}
}

// Handle is idempotent: removing a missing line succeeds
func (h *RemoveLineHandler) Handle(ctx context.Context, cmd RemoveLineCommand) error {
	if cmd.UserID == "" || cmd.ProductID == "" {
		return fmt.Errorf("%w: user_id and product_id are required", domain.ErrValidation)
	}

	err := h.repo.DeleteLine(ctx, cmd.UserID, storefront.NewLineKey(cmd.ProductID, cmd.Size, cmd.Color))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}
