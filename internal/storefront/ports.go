package storefront

import "context"

// StorageKey names the persisted guest blob
const StorageKey = "storefront-state"

// State is the persisted guest blob: {"cartItems": [...], "favorites": [...]}.
type State struct {
	CartItems []CartLine `json:"cartItems"`
	Favorites []Product  `json:"favorites"`
}

// IsEmpty reports whether there is nothing to migrate
func (s State) IsEmpty() bool {
	return len(s.CartItems) == 0 && len(s.Favorites) == 0
}

// LocalStore persists the guest blob. The controller is its only writer.
type LocalStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// RemoteStore is the authoritative per-user store used in authenticated mode.
//
// UpsertCartLine adds delta to the line's quantity, creating the line when
// absent, atomically on the server. Deletes of missing rows succeed.
type RemoteStore interface {
	UpsertCartLine(ctx context.Context, userID string, key LineKey, delta int) error
	SetCartLineQuantity(ctx context.Context, userID string, key LineKey, quantity int) error
	DeleteCartLine(ctx context.Context, userID string, key LineKey) error
	ClearCart(ctx context.Context, userID string) error
	ListCartLines(ctx context.Context, userID string) ([]CartLine, error)

	UpsertFavorite(ctx context.Context, userID, productID string) error
	DeleteFavorite(ctx context.Context, userID, productID string) error
	ListFavorites(ctx context.Context, userID string) ([]Product, error)
}
