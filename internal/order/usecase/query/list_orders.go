package query

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/order/domain"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// GetMyOrdersQuery represents the query to get the caller's own orders
type GetMyOrdersQuery struct {
	UserID string
	Limit  int
	Offset int
}

// GetMyOrdersHandler handles get my orders query
type GetMyOrdersHandler struct {
	repo domain.OrderRepository
}

// NewGetMyOrdersHandler creates a new get my orders handler
func NewGetMyOrdersHandler(repo domain.OrderRepository) *GetMyOrdersHandler {
	return &GetMyOrdersHandler{repo: repo}
}

// Handle executes the get my orders query
func (h *GetMyOrdersHandler) Handle(ctx context.Context, q GetMyOrdersQuery) ([]domain.Order, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return h.repo.ListByUser(ctx, q.UserID, clampLimit(q.Limit), q.Offset)
}

// ListOrdersQuery represents the admin listing
type ListOrdersQuery struct {
	Status string
	Limit  int
	Offset int
}

// OrderPage is one page of the admin listing
type OrderPage struct {
	Orders []domain.Order `json:"orders"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListOrdersHandler handles list orders query
type ListOrdersHandler struct {
	repo domain.OrderRepository
}

// NewListOrdersHandler creates a new list orders handler
func NewListOrdersHandler(repo domain.OrderRepository) *ListOrdersHandler {
	return &ListOrdersHandler{repo: repo}
}

// Handle executes the list orders query
func (h *ListOrdersHandler) Handle(ctx context.Context, q ListOrdersQuery) (*OrderPage, error) {
	filter := domain.OrderFilter{Limit: clampLimit(q.Limit), Offset: q.Offset}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if q.Status != "" {
		status, ok := domain.ParseStatus(q.Status)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, q.Status)
		}
		filter.Status = status
	}

	orders, total, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &OrderPage{Orders: orders, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}
