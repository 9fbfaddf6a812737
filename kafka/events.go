package kafka

import "time"

// OrderLine is one purchased cart line inside an order event
type OrderLine struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
}

// OrderPlacedEvent is emitted once an order has been created from a cart.
// The cart service consumes it and empties the user's remote cart.
type OrderPlacedEvent struct {
	EventID     string      `json:"event_id"`
	EventType   string      `json:"event_type"`
	OrderNumber string      `json:"order_number"`
	UserID      string      `json:"user_id"`
	TotalCents  int64       `json:"total_cents"`
	Currency    string      `json:"currency"`
	Lines       []OrderLine `json:"lines"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Event types
const (
	EventTypeOrderPlaced = "order.placed"
)

// Kafka topics
const (
	TopicOrderPlaced = "order.placed"
)
