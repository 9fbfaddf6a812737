package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tair/storefront/internal/catalog/domain"
)

// FabricCommand creates a fabric, or updates one when ID is set
type FabricCommand struct {
	ID          uint
	Name        string
	Composition string
	Description string
}

// SaveFabricHandler handles fabric create and update
type SaveFabricHandler struct {
	repo domain.FabricRepository
}

func NewSaveFabricHandler(repo domain.FabricRepository) *SaveFabricHandler {
	return &SaveFabricHandler{repo: repo}
}

func (h *SaveFabricHandler) Handle(ctx context.Context, cmd FabricCommand) (*domain.Fabric, error) {
	fabric := &domain.Fabric{}
	if cmd.ID != 0 {
		existing, err := h.repo.FindByID(ctx, cmd.ID)
		if err != nil {
			return nil, err
		}
		fabric = existing
	}

	fabric.Name = strings.TrimSpace(cmd.Name)
	fabric.Composition = strings.TrimSpace(cmd.Composition)
	fabric.Description = strings.TrimSpace(cmd.Description)
	if err := fabric.Validate(); err != nil {
		return nil, err
	}

	// names are unique regardless of case
	taken, err := h.repo.FindByName(ctx, fabric.Name)
	switch {
	case err == nil && taken.ID != fabric.ID:
		return nil, fmt.Errorf("fabric %q: %w", fabric.Name, domain.ErrConflict)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	if cmd.ID == 0 {
		err = h.repo.Create(ctx, fabric)
	} else {
		err = h.repo.Update(ctx, fabric)
	}
	if err != nil {
		return nil, err
	}
	return fabric, nil
}

// DeleteFabricHandler removes a fabric and unlinks its products
type DeleteFabricHandler struct {
	repo domain.FabricRepository
}

func NewDeleteFabricHandler(repo domain.FabricRepository) *DeleteFabricHandler {
	return &DeleteFabricHandler{repo: repo}
}

func (h *DeleteFabricHandler) Handle(ctx context.Context, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: invalid fabric id", domain.ErrValidation)
	}
	return h.repo.Delete(ctx, id)
}
