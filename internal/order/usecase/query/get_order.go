package query

import (
	"context"

	"github.com/tair/storefront/internal/order/domain"
)

// GetOrderQuery represents the query to get one order
type GetOrderQuery struct {
	OrderNumber string
	UserID      string
	IsAdmin     bool
}

// GetOrderHandler handles get order query
type GetOrderHandler struct {
	repo domain.OrderRepository
}

// NewGetOrderHandler creates a new get order handler
func NewGetOrderHandler(repo domain.OrderRepository) *GetOrderHandler {
	return &GetOrderHandler{repo: repo}
}

// Handle returns the order if the caller placed it or is an admin
func (h *GetOrderHandler) Handle(ctx context.Context, q GetOrderQuery) (*domain.Order, error) {
	order, err := h.repo.FindByNumber(ctx, q.OrderNumber)
	if err != nil {
		return nil, err
	}
	if !q.IsAdmin && !order.OwnedBy(q.UserID) {
		return nil, domain.ErrForbidden
	}
	return order, nil
}
