package query

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/catalog/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// ListProductsQuery represents the query to list products
type ListProductsQuery struct {
	Limit           int
	Offset          int
	Category        string // optional
	IncludeInactive bool
}

// ProductPage is one page of a listing
type ProductPage struct {
	Products []domain.Product `json:"products"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ListProductsHandler handles list products query
type ListProductsHandler struct {
	repo domain.ProductRepository
}

// NewListProductsHandler creates a new list products handler
func NewListProductsHandler(repo domain.ProductRepository) *ListProductsHandler {
	return &ListProductsHandler{repo: repo}
}

// Handle executes the list products query
func (h *ListProductsHandler) Handle(ctx context.Context, q ListProductsQuery) (*ProductPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	filter := domain.ProductFilter{
		IncludeInactive: q.IncludeInactive,
		Limit:           q.Limit,
		Offset:          q.Offset,
	}
	if q.Category != "" {
		c, ok := domain.ParseCategory(q.Category)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, q.Category)
		}
		filter.Category = c
	}

	products, total, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}

	return &ProductPage{
		Products: products,
		Total:    total,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}, nil
}
