package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tair/storefront/internal/catalog/domain"
)

// ProductFields are the editable attributes shared by create and update.
type ProductFields struct {
	Name               string
	PriceCents         int64
	OriginalPriceCents *int64
	Images             []string
	Category           string
	Sizes              []string
	Colors             []string
	Description        string
	FabricID           *uint
	IsActive           bool
}

func (f ProductFields) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(f.Name)
	p.PriceCents = f.PriceCents
	p.OriginalPriceCents = f.OriginalPriceCents
	p.Images = f.Images
	p.Category, _ = domain.ParseCategory(f.Category)
	if p.Category == "" {
		p.Category = domain.Category(f.Category)
	}
	p.Sizes = trimAll(f.Sizes)
	p.Colors = trimAll(f.Colors)
	p.Description = strings.TrimSpace(f.Description)
	p.FabricID = f.FabricID
	p.IsActive = f.IsActive
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CreateProductCommand represents the command to create a new product
type CreateProductCommand struct {
	// ID is generated when empty
	ID string
	ProductFields
}

// CreateProductHandler handles product creation command
type CreateProductHandler struct {
	repo    domain.ProductRepository
	fabrics domain.FabricRepository
}

// NewCreateProductHandler creates a new create product handler
func NewCreateProductHandler(repo domain.ProductRepository, fabrics domain.FabricRepository) *CreateProductHandler {
	return &CreateProductHandler{repo: repo, fabrics: fabrics}
}

// Handle executes the create product command
func (h *CreateProductHandler) Handle(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	product := &domain.Product{ID: strings.TrimSpace(cmd.ID)}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	cmd.ProductFields.apply(product)

	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := checkFabric(ctx, h.fabrics, product.FabricID); err != nil {
		return nil, err
	}

	if _, err := h.repo.FindByID(ctx, product.ID); err == nil {
		return nil, fmt.Errorf("product %s: %w", product.ID, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if err := h.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func checkFabric(ctx context.Context, fabrics domain.FabricRepository, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := fabrics.FindByID(ctx, *id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: fabric %d does not exist", domain.ErrValidation, *id)
		}
		return err
	}
	return nil
}
