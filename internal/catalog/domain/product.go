package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/pkg/money"
)

var (
	// ErrNotFound is returned when a product or fabric does not exist
	ErrNotFound = errors.New("not found")
	// ErrValidation wraps every rejected command
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a unique name or id is already taken
	ErrConflict = errors.New("already exists")
)

// Category is one of the storefront's fixed departments
type Category string

const (
	CategoryWomen   Category = "women"
	CategoryMen     Category = "men"
	CategoryKids    Category = "kids"
	CategoryUnisex  Category = "unisex"
	CategoryFabrics Category = "fabrics"
)

// Categories lists every department in display order
var Categories = []Category{CategoryWomen, CategoryMen, CategoryKids, CategoryUnisex, CategoryFabrics}

// ParseCategory normalizes s and reports whether it names a department.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Product represents the product entity
type Product struct {
	ID                 string         `json:"id" gorm:"primaryKey;size:64"`
	Name               string         `json:"name" gorm:"size:255;not null"`
	PriceCents         int64          `json:"price_cents" gorm:"not null;check:price_cents >= 0"`
	OriginalPriceCents *int64         `json:"original_price_cents,omitempty"`
	Images             []string       `json:"images" gorm:"serializer:json"`
	Category           Category       `json:"category" gorm:"size:32;not null;index"`
	Sizes              []string       `json:"sizes,omitempty" gorm:"serializer:json"`
	Colors             []string       `json:"colors,omitempty" gorm:"serializer:json"`
	Description        string         `json:"description,omitempty"`
	FabricID           *uint          `json:"fabric_id,omitempty" gorm:"index"`
	IsActive           bool           `json:"is_active" gorm:"not null;index"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// Validate checks the invariants every stored product holds.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if _, ok := ParseCategory(string(p.Category)); !ok {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, p.Category)
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if p.OriginalPriceCents != nil && *p.OriginalPriceCents < p.PriceCents {
		return fmt.Errorf("%w: original price cannot be below price", ErrValidation)
	}
	return nil
}

// OnSale reports whether an original price above the current one is set
func (p *Product) OnSale() bool {
	return p.OriginalPriceCents != nil && *p.OriginalPriceCents > p.PriceCents
}

// ToStorefront converts p to the display shape carts and favorites read.
func (p *Product) ToStorefront() storefront.Product {
	out := storefront.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       money.Cents(p.PriceCents),
		Images:      p.Images,
		Category:    string(p.Category),
		Sizes:       p.Sizes,
		Colors:      p.Colors,
		Description: p.Description,
	}
	if p.OriginalPriceCents != nil {
		op := money.Cents(*p.OriginalPriceCents)
		out.OriginalPrice = &op
	}
	return out
}

// ProductFilter narrows a product listing
type ProductFilter struct {
	Category        Category
	IncludeInactive bool
	Limit           int
	Offset          int
}

// CategoryStats summarizes the active products of one department
type CategoryStats struct {
	Category      Category `json:"category"`
	ProductCount  int64    `json:"product_count"`
	MinPriceCents int64    `json:"min_price_cents"`
	MaxPriceCents int64    `json:"max_price_cents"`
	OnSaleCount   int64    `json:"on_sale_count"`
}

// ProductRepository defines the contract for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	Update(ctx context.Context, product *Product) error
	// Save inserts product or replaces the stored one with the same id.
	Save(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error
	CategoryStats(ctx context.Context) ([]CategoryStats, error)
}
