package query

import (
	"context"

	"github.com/tair/storefront/internal/catalog/domain"
)

// CatalogStats represents catalog statistics
type CatalogStats struct {
	TotalProducts int64                  `json:"total_products"`
	OnSale        int64                  `json:"on_sale"`
	Categories    []domain.CategoryStats `json:"categories"`
}

// GetStatsHandler handles get stats query
type GetStatsHandler struct {
	repo domain.ProductRepository
}

// NewGetStatsHandler creates a new get stats handler
func NewGetStatsHandler(repo domain.ProductRepository) *GetStatsHandler {
	return &GetStatsHandler{repo: repo}
}

// Handle returns one entry per department, in display order, including
// departments with no active products.
func (h *GetStatsHandler) Handle(ctx context.Context) (*CatalogStats, error) {
	rows, err := h.repo.CategoryStats(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[domain.Category]domain.CategoryStats, len(rows))
	for _, r := range rows {
		byCategory[r.Category] = r
	}

	stats := &CatalogStats{Categories: make([]domain.CategoryStats, 0, len(domain.Categories))}
	for _, c := range domain.Categories {
		s, ok := byCategory[c]
		if !ok {
			s = domain.CategoryStats{Category: c}
		}
		stats.TotalProducts += s.ProductCount
		stats.OnSale += s.OnSaleCount
		stats.Categories = append(stats.Categories, s)
	}
	return stats, nil
}
