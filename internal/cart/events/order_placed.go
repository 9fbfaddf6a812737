// Package events reacts to order events published on Kafka.
package events

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/cart/usecase/command"
	"github.com/tair/storefront/kafka"
	"github.com/tair/storefront/pkg/logger"
)

// OrderPlacedHandler empties the cart an order was created from
type OrderPlacedHandler struct {
	clearCart *command.ClearCartHandler
}

// NewOrderPlacedHandler creates the order.placed handler
func NewOrderPlacedHandler(clearCart *command.ClearCartHandler) *OrderPlacedHandler {
	return &OrderPlacedHandler{clearCart: clearCart}
}

// Handle matches kafka.EventHandler
func (h *OrderPlacedHandler) Handle(ctx context.Context, event kafka.OrderPlacedEvent) error {
	n, err := h.clearCart.Handle(ctx, command.ClearCartCommand{UserID: event.UserID})
	if err != nil {
		return fmt.Errorf("clear cart for order %s: %w", event.OrderNumber, err)
	}

	logger.Info(ctx).
		Str("order_number", event.OrderNumber).
		Str("user_id", event.UserID).
		Int64("removed_lines", n).
		Msg("Cart cleared after order")
	return nil
}

// Register subscribes the handler on consumer
func (h *OrderPlacedHandler) Register(consumer *kafka.Consumer) {
	consumer.RegisterHandler(kafka.EventTypeOrderPlaced, h.Handle)
}
