package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/order/domain"
	"github.com/tair/storefront/internal/order/payment"
	"github.com/tair/storefront/pkg/logger"
)

// CheckoutCommand turns the caller's cart into an order
type CheckoutCommand struct {
	UserID string
}

// CheckoutResult carries what the client needs to collect payment
type CheckoutResult struct {
	Order        *domain.Order `json:"order"`
	ClientSecret string        `json:"client_secret"`
}

// CheckoutHandler handles the checkout command
type CheckoutHandler struct {
	repo      domain.OrderRepository
	cart      domain.CartReader
	gateway   payment.Gateway
	publisher domain.EventPublisher
	currency  domain.Currency
}

// NewCheckoutHandler creates a new checkout handler. publisher may be nil.
func NewCheckoutHandler(
	repo domain.OrderRepository,
	cart domain.CartReader,
	gateway payment.Gateway,
	publisher domain.EventPublisher,
	currency domain.Currency,
) *CheckoutHandler {
	if currency == "" {
		currency = "USD"
	}
	return &CheckoutHandler{
		repo:      repo,
		cart:      cart,
		gateway:   gateway,
		publisher: publisher,
		currency:  currency,
	}
}

// Handle snapshots the cart into a pending order, opens a payment intent for
// its total and announces it. The cart itself is emptied by the cart service
// when it consumes order.placed.
func (h *CheckoutHandler) Handle(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	if cmd.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	lines, err := h.cart.ListCartLines(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCartUnavailable, err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	for _, l := range lines {
		if l.Name == "" {
			return nil, fmt.Errorf("%w: product %s has no price yet", domain.ErrValidation, l.ProductID)
		}
	}

	order := domain.NewOrder(cmd.UserID, h.currency, lines)
	if err := h.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	intent, err := h.gateway.CreateIntent(ctx, payment.IntentRequest{
		Reference:   order.OrderNumber,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
	})
	if err != nil {
		logger.Error(ctx).Err(err).Str("order_number", order.OrderNumber).Msg("Payment intent failed")
		if uerr := h.repo.UpdateStatus(ctx, order.OrderNumber, domain.StatusFailed); uerr != nil {
			logger.Error(ctx).Err(uerr).Str("order_number", order.OrderNumber).Msg("Failed to mark order failed")
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	}

	if err := h.repo.UpdatePayment(ctx, order.OrderNumber, intent.ID, intent.ClientToken, domain.StatusAwaitingPayment); err != nil {
		return nil, err
	}
	order.PaymentIntentID = intent.ID
	order.PaymentClientToken = intent.ClientToken
	order.Status = domain.StatusAwaitingPayment

	if h.publisher != nil {
		if err := h.publisher.PublishOrderPlaced(ctx, order.PlacedEvent()); err != nil {
			logger.Warn(ctx).Err(err).Str("order_number", order.OrderNumber).Msg("Failed to publish order.placed")
		}
	}

	logger.Info(ctx).
		Str("order_number", order.OrderNumber).
		Str("user_id", order.UserID).
		Int64("total_cents", order.TotalCents).
		Int("items", len(order.Items)).
		Msg("Order placed")

	return &CheckoutResult{Order: order, ClientSecret: intent.ClientToken}, nil
}
