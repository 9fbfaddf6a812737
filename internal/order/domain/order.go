package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/kafka"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("order belongs to another user")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCartUnavailable    = errors.New("cart service unavailable")
	ErrPaymentUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPaymentPending     = errors.New("payment not settled yet")
)

// Status is an order's lifecycle state
type Status string

// Order statuses
const (
	StatusPending         Status = "pending"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:         {StatusAwaitingPayment, StatusFailed, StatusCancelled},
	StatusAwaitingPayment: {StatusPaid, StatusFailed, StatusCancelled},
	StatusPaid:            {StatusCancelled},
	StatusFailed:          {StatusCancelled},
}

// ParseStatus reports whether s names a status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusAwaitingPayment, StatusPaid, StatusFailed, StatusCancelled:
		return st, true
	}
	return "", false
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Currency is the settlement currency orders are created in
type Currency string

// Order represents an order placed from a user's cart
type Order struct {
	ID                 uint        `json:"id" gorm:"primaryKey"`
	OrderNumber        string      `json:"order_number" gorm:"size:32;not null;uniqueIndex"`
	UserID             string      `json:"user_id" gorm:"size:64;not null;index"`
	TotalCents         int64       `json:"total_cents" gorm:"not null"`
	Currency           string      `json:"currency" gorm:"size:3;not null"`
	Status             Status      `json:"status" gorm:"size:32;not null;index"`
	PaymentIntentID    string      `json:"payment_intent_id,omitempty" gorm:"size:128;index"`
	PaymentClientToken string      `json:"payment_client_token,omitempty" gorm:"size:255"`
	Items              []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a cart line frozen at checkout time
type OrderItem struct {
	ID             uint   `json:"-" gorm:"primaryKey"`
	OrderID        uint   `json:"-" gorm:"not null;index"`
	ProductID      string `json:"product_id" gorm:"size:64;not null"`
	ProductName    string `json:"product_name" gorm:"size:255"`
	Size           string `json:"size,omitempty" gorm:"size:32"`
	Color          string `json:"color,omitempty" gorm:"size:32"`
	Quantity       int    `json:"quantity" gorm:"not null"`
	UnitPriceCents int64  `json:"unit_price_cents" gorm:"not null"`
	SubtotalCents  int64  `json:"subtotal_cents" gorm:"not null"`
}

// TableName specifies the table name
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderNumber returns a fresh ORD-XXXXXXXX number.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%s", strings.ToUpper(uuid.New().String()[:8]))
}

// NewOrder builds a pending order from cart lines and totals it.
func NewOrder(userID string, currency Currency, lines []storefront.CartLine) *Order {
	order := &Order{
		OrderNumber: NewOrderNumber(),
		UserID:      userID,
		Currency:    string(currency),
		Status:      StatusPending,
		Items:       make([]OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		subtotal := int64(l.Subtotal())
		order.Items = append(order.Items, OrderItem{
			ProductID:      l.ProductID,
			ProductName:    l.Name,
			Size:           l.Size,
			Color:          l.Color,
			Quantity:       l.Quantity,
			UnitPriceCents: int64(l.Price),
			SubtotalCents:  subtotal,
		})
		order.TotalCents += subtotal
	}
	return order
}

// OwnedBy reports whether userID placed the order
func (o *Order) OwnedBy(userID string) bool {
	return o.UserID == userID
}

// PlacedEvent is the order.placed message for o.
func (o *Order) PlacedEvent() kafka.OrderPlacedEvent {
	lines := make([]kafka.OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, kafka.OrderLine{
			ProductID: it.ProductID,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
		})
	}
	return kafka.OrderPlacedEvent{
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		TotalCents:  o.TotalCents,
		Currency:    o.Currency,
		Lines:       lines,
	}
}

// OrderFilter narrows the admin listing
type OrderFilter struct {
	Status Status
	Limit  int
	Offset int
}

// OrderRepository defines the contract for order data access
type OrderRepository interface {
	// Create stores the order with its items
	Create(ctx context.Context, order *Order) error
	FindByNumber(ctx context.Context, number string) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	UpdatePayment(ctx context.Context, number, intentID, clientToken string, status Status) error
	UpdateStatus(ctx context.Context, number string, status Status) error
}

// CartReader reads a user's remote cart on their behalf
type CartReader interface {
	ListCartLines(ctx context.Context, userID string) ([]storefront.CartLine, error)
}

// EventPublisher announces placed orders
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event kafka.OrderPlacedEvent) error
}
