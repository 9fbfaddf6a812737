package routes

import "testing"

func TestServiceFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/auth/login", "user"},
		{"/api/users/me", "user"},
		{"/api/users", "user"},
		{"/api/users/42/cart", "cart"},
		{"/api/users/42/cart/items", "cart"},
		{"/api/users/42/favorites/p-1", "cart"},
		{"/api/products", "catalog"},
		{"/api/products/p-1", "catalog"},
		{"/api/categories", "catalog"},
		{"/api/fabrics/3", "catalog"},
		{"/api/orders/checkout", "order"},
		{"/api/session/state", ""},
		{"/health", ""},
		{"/api/productsx", ""},
	}

	for _, tt := range tests {
		if got := ServiceFor(tt.path); got != tt.want {
			t.Errorf("ServiceFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
