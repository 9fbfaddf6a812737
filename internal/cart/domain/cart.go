package domain

import (
	"context"
	"errors"
	"time"

	"github.com/tair/storefront/internal/storefront"
)

var (
	// ErrNotFound is returned when a cart line or favorite does not exist
	ErrNotFound = errors.New("not found")
	// ErrProductNotFound is returned when the catalog does not know a product
	ErrProductNotFound = errors.New("product not found")
)

// CartLine is one persisted cart line. Size and Color are empty when the
// product has no such option, so (user, product, size, color) is unique.
type CartLine struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	UserID         string    `json:"-" gorm:"size:64;not null;uniqueIndex:idx_cart_line_key,priority:1"`
	ProductID      string    `json:"product_id" gorm:"size:64;not null;uniqueIndex:idx_cart_line_key,priority:2"`
	Size           string    `json:"size" gorm:"size:32;not null;default:'';uniqueIndex:idx_cart_line_key,priority:3"`
	Color          string    `json:"color" gorm:"size:32;not null;default:'';uniqueIndex:idx_cart_line_key,priority:4"`
	Quantity       int       `json:"quantity" gorm:"not null;check:quantity > 0"`
	ProductName    string    `json:"product_name" gorm:"size:255"`
	UnitPriceCents int64     `json:"unit_price_cents" gorm:"not null;default:0"`
	Images         []string  `json:"images" gorm:"serializer:json"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// TableName specifies the table name
func (CartLine) TableName() string {
	return "cart_lines"
}

// Key returns the line's identity
func (l CartLine) Key() storefront.LineKey {
	return storefront.NewLineKey(l.ProductID, l.Size, l.Color)
}

// Favorite marks a product as favorited by a user
type Favorite struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    string    `json:"-" gorm:"size:64;not null;uniqueIndex:idx_favorite_key,priority:1"`
	ProductID string    `json:"product_id" gorm:"size:64;not null;uniqueIndex:idx_favorite_key,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name
func (Favorite) TableName() string {
	return "favorites"
}

// CartRepository defines the contract for cart line data access
type CartRepository interface {
	// UpsertLine inserts line or adds delta to the quantity of the
	// existing line with the same key, refreshing its snapshot.
	UpsertLine(ctx context.Context, line *CartLine, delta int) error
	// SetQuantity overwrites the quantity of an existing line.
	SetQuantity(ctx context.Context, userID string, key storefront.LineKey, quantity int) error
	DeleteLine(ctx context.Context, userID string, key storefront.LineKey) error
	Clear(ctx context.Context, userID string) (int64, error)
	ListLines(ctx context.Context, userID string) ([]CartLine, error)
	UpdateSnapshot(ctx context.Context, line *CartLine) error
}

// FavoriteRepository defines the contract for favorites data access
type FavoriteRepository interface {
	// Add is idempotent
	Add(ctx context.Context, userID, productID string) error
	Delete(ctx context.Context, userID, productID string) error
	List(ctx context.Context, userID string) ([]Favorite, error)
}

// ProductReader resolves catalog products for denormalization
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (storefront.Product, error)
}

// ErrValidation marks requests rejected before touching storage
var ErrValidation = errors.New("validation failed")
