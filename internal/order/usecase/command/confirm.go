package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/order/domain"
	"github.com/tair/storefront/internal/order/payment"
	"github.com/tair/storefront/pkg/logger"
)

// ConfirmPaymentCommand asks the processor whether an order was paid
type ConfirmPaymentCommand struct {
	OrderNumber string
	UserID      string
	IsAdmin     bool
}

// ConfirmPaymentHandler handles the confirm payment command
type ConfirmPaymentHandler struct {
	repo    domain.OrderRepository
	gateway payment.Gateway
}

// NewConfirmPaymentHandler creates a new confirm payment handler
func NewConfirmPaymentHandler(repo domain.OrderRepository, gateway payment.Gateway) *ConfirmPaymentHandler {
	return &ConfirmPaymentHandler{repo: repo, gateway: gateway}
}

// Handle reads the order's intent and settles the order. Orders that already
// settled are returned unchanged.
func (h *ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.Order, error) {
	order, err := h.repo.FindByNumber(ctx, cmd.OrderNumber)
	if err != nil {
		return nil, err
	}
	if !cmd.IsAdmin && !order.OwnedBy(cmd.UserID) {
		return nil, domain.ErrForbidden
	}

	switch order.Status {
	case domain.StatusPaid, domain.StatusFailed:
		return order, nil
	case domain.StatusAwaitingPayment:
	default:
		return nil, fmt.Errorf("%w: order is %s", domain.ErrInvalidTransition, order.Status)
	}

	intent, err := h.gateway.GetIntent(ctx, order.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	}

	var next domain.Status
	switch intent.Status {
	case payment.IntentSucceeded:
		next = domain.StatusPaid
	case payment.IntentFailed, payment.IntentCanceled:
		next = domain.StatusFailed
	default:
		return nil, domain.ErrPaymentPending
	}

	if err := h.repo.UpdateStatus(ctx, order.OrderNumber, next); err != nil {
		return nil, err
	}
	order.Status = next

	logger.Info(ctx).
		Str("order_number", order.OrderNumber).
		Str("intent_id", intent.ID).
		Str("status", string(next)).
		Msg("Order payment settled")
	return order, nil
}
