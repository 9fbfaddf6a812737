package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/cart/events"
	"github.com/tair/storefront/internal/cart/repository"
	"github.com/tair/storefront/internal/cart/usecase/command"
	"github.com/tair/storefront/internal/cart/usecase/query"
	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/kafka"
	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Nop()
	m.Run()
}

type catalogStub struct {
	products map[string]storefront.Product
	down     bool
}

func (c *catalogStub) GetProduct(_ context.Context, id string) (storefront.Product, error) {
	if c.down {
		return storefront.Product{}, errors.New("catalog down")
	}
	p, ok := c.products[id]
	if !ok {
		return storefront.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

type testEnv struct {
	router  *mux.Router
	repo    *repository.MemoryRepository
	catalog *catalogStub
	handler *CartHandler
	clear   *command.ClearCartHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewMemoryRepository()
	catalog := &catalogStub{products: map[string]storefront.Product{
		"p-1": {ID: "p-1", Name: "Linen Shirt", Price: 4999, Images: []string{"a.jpg"}, Category: "men"},
		"p-2": {ID: "p-2", Name: "Wool Scarf", Price: 1999, Category: "unisex"},
	}}

	clear := command.NewClearCartHandler(repo)
	h := NewCartHandler(
		command.NewAddLineHandler(repo, catalog),
		command.NewSetQuantityHandler(repo),
		command.NewRemoveLineHandler(repo),
		clear,
		command.NewAddFavoriteHandler(repo, catalog),
		command.NewRemoveFavoriteHandler(repo),
		query.NewGetCartHandler(repo, catalog),
		query.NewListFavoritesHandler(repo, catalog),
	)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return &testEnv{router: router, repo: repo, catalog: catalog, handler: h, clear: clear}
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, "someone", role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func (e *testEnv) lines(t *testing.T, tok string) []domain.CartLine {
	t.Helper()
	rec, resp := e.do(t, http.MethodGet, "/api/users/7/cart", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET cart status = %d, body %s", rec.Code, rec.Body.String())
	}
	raw, _ := json.Marshal(resp.Data)
	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		t.Fatalf("decode lines: %v", err)
	}
	return lines
}

func TestUpsertSumsQuantitiesPerKey(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, 7, auth.RoleUser)

	for _, q := range []int{2, 3} {
		rec, _ := env.do(t, http.MethodPut, "/api/users/7/cart/items", tok, lineRequest{ProductID: "p-1", Size: "M", Quantity: q})
		if rec.Code != http.StatusOK {
			t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
		}
	}
	env.do(t, http.MethodPut, "/api/users/7/cart/items", tok, lineRequest{ProductID: "p-1", Size: "L", Quantity: 1})

	lines := env.lines(t, tok)
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0].Size != "M" || lines[0].Quantity != 5 {
		t.Fatalf("first line = %+v, want size M quantity 5", lines[0])
	}
	if lines[0].ProductName != "Linen Shirt" || lines[0].UnitPriceCents != 4999 {
		t.Fatalf("snapshot = %q/%d", lines[0].ProductName, lines[0].UnitPriceCents)
	}
}

func TestSetQuantityAndRemove(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, 7, auth.RoleUser)
	env.do(t, http.MethodPut, "/api/users/7/cart/items", tok, lineRequest{ProductID: "p-1", Quantity: 1})

	env.do(t, http.MethodPatch, "/api/users/7/cart/items", tok, lineRequest{ProductID: "p-1", Quantity: 4})
	if got := env.lines(t, tok)[0].Quantity; got != 4 {
		t.Fatalf("quantity = %d, want 4", got)
	}

	// setting a missing line is a no-op
	rec, _ := env.do(t, http.MethodPatch, "/api/users/7/cart/items", tok, lineRequest{ProductID: "p-2", Quantity: 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH missing status = %d", rec.Code)
	}

	rec, _ = env.do(t, http.MethodPatch, "/api/users/7/cart/items", tok, lineRequest{ProductID: "p-1", Quantity: 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH zero status = %d", rec.Code)
	}
	if n := len(env.lines(t, tok)); n != 0 {
		t.Fatalf("len(lines) = %d after zero quantity, want 0", n)
	}

	// idempotent delete
	rec, _ = env.do(t, http.MethodDelete, "/api/users/7/cart/items?product_id=p-1", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE missing status = %d", rec.Code)
	}
}

func TestAddLineValidation(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, 7, auth.RoleUser)

	tests := []struct {
		name string
		req  lineRequest
		want int
	}{
		{"missing product", lineRequest{Quantity: 1}, http.StatusBadRequest},
		{"zero delta", lineRequest{ProductID: "p-1"}, http.StatusBadRequest},
		{"unknown product", lineRequest{ProductID: "nope", Quantity: 1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, http.MethodPut, "/api/users/7/cart/items", tok, tt.req)
			if rec.Code != tt.want || resp.Success {
				t.Fatalf("status = %d success = %v, want %d", rec.Code, resp.Success, tt.want)
			}
		})
	}
}

func TestAddLineWithCatalogDownStoresWithoutSnapshot(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, 7, auth.RoleUser)

	env.catalog.down = true
	rec, _ := env.do(t, http.MethodPut, "/api/users/7/cart/items", tok, lineRequest{ProductID: "p-1", Quantity: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", rec.Code)
	}

	env.catalog.down = false
	lines := env.lines(t, tok)
	if len(lines) != 1 || lines[0].ProductName != "Linen Shirt" {
		t.Fatalf("lines = %+v, want refreshed snapshot", lines)
	}
}

func TestCartOwnership(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		tok  string
		want int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"other user", token(t, 8, auth.RoleUser), http.StatusForbidden},
		{"owner", token(t, 7, auth.RoleUser), http.StatusOK},
		{"admin", token(t, 1, auth.RoleAdmin), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := env.do(t, http.MethodGet, "/api/users/7/cart", tt.tok, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestFavorites(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, 7, auth.RoleUser)

	for _, id := range []string{"p-2", "p-1", "p-2"} {
		rec, _ := env.do(t, http.MethodPut, "/api/users/7/favorites/"+id, tok, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("PUT favorite %s status = %d", id, rec.Code)
		}
	}
	if rec, _ := env.do(t, http.MethodPut, "/api/users/7/favorites/nope", tok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("PUT unknown favorite status = %d, want 404", rec.Code)
	}

	_, resp := env.do(t, http.MethodGet, "/api/users/7/favorites", tok, nil)
	raw, _ := json.Marshal(resp.Data)
	var products []productResponse
	if err := json.Unmarshal(raw, &products); err != nil {
		t.Fatalf("decode favorites: %v", err)
	}
	if len(products) != 2 || products[0].ID != "p-2" || products[1].ID != "p-1" {
		t.Fatalf("favorites = %+v, want [p-2 p-1]", products)
	}
	if products[0].PriceCents != 1999 {
		t.Fatalf("price_cents = %d, want 1999", products[0].PriceCents)
	}

	env.do(t, http.MethodDelete, "/api/users/7/favorites/p-2", tok, nil)
	if rec, _ := env.do(t, http.MethodDelete, "/api/users/7/favorites/p-2", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("second DELETE status = %d, want 200", rec.Code)
	}
}

func TestOrderPlacedClearsCart(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, 7, auth.RoleUser)
	env.do(t, http.MethodPut, "/api/users/7/cart/items", tok, lineRequest{ProductID: "p-1", Quantity: 2})

	h := events.NewOrderPlacedHandler(env.clear)
	if err := h.Handle(context.Background(), kafka.OrderPlacedEvent{OrderNumber: "ORD-1", UserID: "7"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if n := len(env.lines(t, tok)); n != 0 {
		t.Fatalf("len(lines) = %d after order, want 0", n)
	}
}
