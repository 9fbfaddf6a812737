package query

import (
	"context"

	"github.com/tair/storefront/internal/user/domain"
)

// GetStatsHandler handles get stats query
type GetStatsHandler struct {
	repo domain.UserRepository
}

// NewGetStatsHandler creates a new get stats handler
func NewGetStatsHandler(repo domain.UserRepository) *GetStatsHandler {
	return &GetStatsHandler{repo: repo}
}

// Handle executes the get stats query
func (h *GetStatsHandler) Handle(ctx context.Context) (*domain.UserStats, error) {
	return h.repo.Stats(ctx)
}
