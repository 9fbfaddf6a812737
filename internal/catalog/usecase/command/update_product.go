package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/catalog/domain"
)

// UpdateProductCommand replaces every editable field of a product
type UpdateProductCommand struct {
	ID string
	ProductFields
}

// UpdateProductHandler handles product update command
type UpdateProductHandler struct {
	repo    domain.ProductRepository
	fabrics domain.FabricRepository
}

// NewUpdateProductHandler creates a new update product handler
func NewUpdateProductHandler(repo domain.ProductRepository, fabrics domain.FabricRepository) *UpdateProductHandler {
	return &UpdateProductHandler{repo: repo, fabrics: fabrics}
}

// Handle executes the update product command
func (h *UpdateProductHandler) Handle(ctx context.Context, cmd UpdateProductCommand) (*domain.Product, error) {
	if cmd.ID == "" {
		return nil, fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}

	product, err := h.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	cmd.ProductFields.apply(product)
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := checkFabric(ctx, h.fabrics, product.FabricID); err != nil {
		return nil, err
	}

	if err := h.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}
