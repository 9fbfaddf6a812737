package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/order/domain"
)

// UpdateStatusCommand represents the command to move an order to a new status
type UpdateStatusCommand struct {
	OrderNumber string
	Status      string
}

// UpdateStatusHandler handles update status command
type UpdateStatusHandler struct {
	repo domain.OrderRepository
}

// NewUpdateStatusHandler creates a new update status handler
func NewUpdateStatusHandler(repo domain.OrderRepository) *UpdateStatusHandler {
	return &UpdateStatusHandler{repo: repo}
}

// Handle executes the update status command
func (h *UpdateStatusHandler) Handle(ctx context.Context, cmd UpdateStatusCommand) (*domain.Order, error) {
	status, ok := domain.ParseStatus(cmd.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, cmd.Status)
	}

	order, err := h.repo.FindByNumber(ctx, cmd.OrderNumber)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(order.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, order.Status, status)
	}

	if err := h.repo.UpdateStatus(ctx, order.OrderNumber, status); err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}
