package query

import (
	"context"

	"github.com/tair/storefront/internal/catalog/domain"
)

type ListFabricsHandler struct {
	repo domain.FabricRepository
}

func NewListFabricsHandler(repo domain.FabricRepository) *ListFabricsHandler {
	return &ListFabricsHandler{repo: repo}
}

func (h *ListFabricsHandler) Handle(ctx context.Context) ([]domain.Fabric, error) {
	fabrics, err := h.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if fabrics == nil {
		fabrics = []domain.Fabric{}
	}
	return fabrics, nil
}

type GetFabricHandler struct {
	repo domain.FabricRepository
}

func NewGetFabricHandler(repo domain.FabricRepository) *GetFabricHandler {
	return &GetFabricHandler{repo: repo}
}

func (h *GetFabricHandler) Handle(ctx context.Context, id uint) (*domain.Fabric, error) {
	return h.repo.FindByID(ctx, id)
}
