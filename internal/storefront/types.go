package storefront

import (
	"strings"

	"github.com/tair/storefront/pkg/money"
)

// Product is the display data the controller reads from the catalog. The
// controller never mutates products; it only snapshots them into cart lines.
type Product struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Price         money.Cents  `json:"price"`
	OriginalPrice *money.Cents `json:"originalPrice,omitempty"`
	Images        []string     `json:"images"`
	Category      string       `json:"category"`
	Sizes         []string     `json:"sizes,omitempty"`
	Colors        []string     `json:"colors,omitempty"`
	Description   string       `json:"description,omitempty"`
}

// LineKey identifies a cart line. Empty Size or Color means "not selected".
type LineKey struct {
	ProductID string
	Size      string
	Color     string
}

// NewLineKey builds a key with surrounding whitespace removed.
func NewLineKey(productID, size, color string) LineKey {
	return LineKey{
		ProductID: strings.TrimSpace(productID),
		Size:      strings.TrimSpace(size),
		Color:     strings.TrimSpace(color),
	}
}

func (k LineKey) String() string {
	return k.ProductID + "|" + k.Size + "|" + k.Color
}

// CartLine is one (product, size, color) entry with its quantity and a
// snapshot of the product's display fields.
type CartLine struct {
	ProductID string      `json:"productId"`
	Size      string      `json:"selectedSize,omitempty"`
	Color     string      `json:"selectedColor,omitempty"`
	Quantity  int         `json:"quantity"`
	Name      string      `json:"name"`
	Price     money.Cents `json:"price"`
	Images    []string    `json:"images,omitempty"`
}

// Key returns the line's identity
func (l CartLine) Key() LineKey {
	return NewLineKey(l.ProductID, l.Size, l.Color)
}

// Subtotal is unit price times quantity
func (l CartLine) Subtotal() money.Cents {
	return l.Price.Mul(l.Quantity)
}

func lineFromProduct(p Product, key LineKey, quantity int) CartLine {
	return CartLine{
		ProductID: key.ProductID,
		Size:      key.Size,
		Color:     key.Color,
		Quantity:  quantity,
		Name:      p.Name,
		Price:     p.Price,
		Images:    cloneStrings(p.Images),
	}
}

// Mode is the controller's persistence mode
type Mode int

const (
	ModeGuest Mode = iota
	ModeAuthenticated
)

func (m Mode) String() string {
	if m == ModeAuthenticated {
		return "authenticated"
	}
	return "guest"
}

// View is a consistent copy of everything the presentation layer renders.
type View struct {
	Mode           string      `json:"mode"`
	UserID         string      `json:"userId,omitempty"`
	Items          []CartLine  `json:"cartItems"`
	Favorites      []Product   `json:"favorites"`
	CartCount      int         `json:"cartCount"`
	FavoritesCount int         `json:"favoritesCount"`
	CartTotal      money.Cents `json:"cartTotal"`
	Migrating      bool        `json:"migrating"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneProduct(p Product) Product {
	p.Images = cloneStrings(p.Images)
	p.Sizes = cloneStrings(p.Sizes)
	p.Colors = cloneStrings(p.Colors)
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		p.OriginalPrice = &op
	}
	return p
}
