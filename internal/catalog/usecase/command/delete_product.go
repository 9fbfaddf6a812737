package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/catalog/domain"
)

// DeleteProductCommand represents the command to delete a product
type DeleteProductCommand struct {
	ID string
}

// DeleteProductHandler soft-deletes products. Carts that still reference a
// deleted product drop it on their next refresh.
type DeleteProductHandler struct {
	repo domain.ProductRepository
}

// NewDeleteProductHandler creates a new delete product handler
func NewDeleteProductHandler(repo domain.ProductRepository) *DeleteProductHandler {
	return &DeleteProductHandler{repo: repo}
}

// Handle executes the delete product command
func (h *DeleteProductHandler) Handle(ctx context.Context, cmd DeleteProductCommand) error {
	if cmd.ID == "" {
		return fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}
	return h.repo.Delete(ctx, cmd.ID)
}
