package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/pkg/logger"
)

// AddLineCommand adds Quantity units of a product variant to a user's cart
type AddLineCommand struct {
	UserID    string
	ProductID string
	Size      string
	Color     string
	Quantity  int
}

// AddLineHandler handles add line command
type AddLineHandler struct {
	repo     domain.CartRepository
	products domain.ProductReader
}

// NewAddLineHandler creates a new add line handler
func NewAddLineHandler(repo domain.CartRepository, products domain.ProductReader) *AddLineHandler {
	return &AddLineHandler{repo: repo, products: products}
}

// Handle upserts the line. An unreachable catalog does not block the add:
// the line is stored without a snapshot, which the next cart read fills in.
func (h *AddLineHandler) Handle(ctx context.Context, cmd AddLineCommand) (*domain.CartLine, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		return nil, fmt.Errorf("%w: product_id is required", domain.ErrValidation)
	}
	if cmd.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	line := &domain.CartLine{
		UserID:    strings.TrimSpace(cmd.UserID),
		ProductID: strings.TrimSpace(cmd.ProductID),
		Size:      strings.TrimSpace(cmd.Size),
		Color:     strings.TrimSpace(cmd.Color),
	}

	product, err := h.products.GetProduct(ctx, line.ProductID)
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return nil, err
	case err != nil:
		logger.Warn(ctx).Err(err).Str("product_id", line.ProductID).Msg("Catalog unavailable, storing line without snapshot")
	default:
		line.ProductName = product.Name
		line.UnitPriceCents = int64(product.Price)
		line.Images = product.Images
	}

	if err := h.repo.UpsertLine(ctx, line, cmd.Quantity); err != nil {
		return nil, fmt.Errorf("failed to add cart line: %w", err)
	}
	return line, nil
}
