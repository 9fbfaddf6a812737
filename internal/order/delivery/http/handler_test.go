package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/tair/storefront/internal/order/domain"
	"github.com/tair/storefront/internal/order/payment"
	"github.com/tair/storefront/internal/order/repository"
	"github.com/tair/storefront/internal/order/usecase/command"
	"github.com/tair/storefront/internal/order/usecase/query"
	"github.com/tair/storefront/internal/storefront/remote"
	"github.com/tair/storefront/kafka"
	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Nop()
	m.Run()
}

// cartServer serves one cart per user and requires a bearer token
func cartServer(t *testing.T, carts map[string]string) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/api/users/{user_id}/cart", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		data, ok := carts[mux.Vars(r)["user_id"]]
		if !ok {
			data = "[]"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":` + data + `}`))
	}).Methods("GET")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.OrderPlacedEvent
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, ev kafka.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type failingGateway struct{}

func (failingGateway) CreateIntent(context.Context, payment.IntentRequest) (payment.Intent, error) {
	return payment.Intent{}, errors.New("connection refused")
}

func (failingGateway) GetIntent(context.Context, string) (payment.Intent, error) {
	return payment.Intent{}, errors.New("connection refused")
}

type fixture struct {
	router    *mux.Router
	repo      *repository.MemoryRepository
	gateway   *payment.SandboxGateway
	publisher *recordingPublisher
}

func newFixture(t *testing.T, carts map[string]string, gw payment.Gateway) *fixture {
	t.Helper()
	f := &fixture{
		repo:      repository.NewMemoryRepository(),
		gateway:   payment.NewSandboxGateway(),
		publisher: &recordingPublisher{},
	}
	if gw == nil {
		gw = f.gateway
	}
	cart := remote.NewClient(cartServer(t, carts).URL)

	h := NewOrderHandler(
		command.NewCheckoutHandler(f.repo, cart, gw, f.publisher, "USD"),
		command.NewConfirmPaymentHandler(f.repo, gw),
		command.NewUpdateStatusHandler(f.repo),
		query.NewGetOrderHandler(f.repo),
		query.NewGetMyOrdersHandler(f.repo),
		query.NewListOrdersHandler(f.repo),
	)
	f.router = mux.NewRouter()
	h.RegisterRoutes(f.router)
	return f
}

func token(t *testing.T, id uint, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(id, "user", role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func do(t *testing.T, router http.Handler, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, Response) {
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
	router.ServeHTTP(rec, req)

	var resp Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func decode(t *testing.T, data interface{}, out interface{}) {
	t.Helper()
	raw, _ := json.Marshal(data)
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

const dressCart = `[
	{"product_id":"p1","size":"M","color":"Red","quantity":2,"product_name":"Silk Dress","unit_price_cents":4999},
	{"product_id":"p2","quantity":1,"product_name":"Scarf","unit_price_cents":1500}
]`

func TestCheckoutPlacesOrderAndConfirmsPayment(t *testing.T) {
	f := newFixture(t, map[string]string{"7": dressCart}, nil)
	buyer := token(t, 7, auth.RoleUser)

	rec, resp := do(t, f.router, "POST", "/api/orders/checkout", buyer, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout = %d %s", rec.Code, rec.Body)
	}
	var result command.CheckoutResult
	decode(t, resp.Data, &result)
	if result.Order.TotalCents != 11498 || result.Order.Status != domain.StatusAwaitingPayment {
		t.Fatalf("order = %+v", result.Order)
	}
	if result.ClientSecret == "" {
		t.Fatal("missing client secret")
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].OrderNumber != result.Order.OrderNumber {
		t.Fatalf("published = %+v", f.publisher.events)
	}

	number := result.Order.OrderNumber
	rec, resp = do(t, f.router, "POST", "/api/orders/"+number+"/confirm", buyer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm = %d %s", rec.Code, rec.Body)
	}
	var confirmed domain.Order
	decode(t, resp.Data, &confirmed)
	if confirmed.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want paid", confirmed.Status)
	}

	// confirming again is a no-op
	rec, _ = do(t, f.router, "POST", "/api/orders/"+number+"/confirm", buyer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second confirm = %d", rec.Code)
	}

	rec, resp = do(t, f.router, "GET", "/api/orders/me", buyer, nil)
	var mine []domain.Order
	decode(t, resp.Data, &mine)
	if rec.Code != http.StatusOK || len(mine) != 1 || len(mine[0].Items) != 2 {
		t.Fatalf("my orders = %d %+v", rec.Code, mine)
	}
}

func TestCheckoutFailures(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		rec, _ := do(t, f.router, "POST", "/api/orders/checkout", token(t, 7, auth.RoleUser), nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("checkout = %d, want 400", rec.Code)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		rec, _ := do(t, f.router, "POST", "/api/orders/checkout", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("checkout = %d, want 401", rec.Code)
		}
	})

	t.Run("line without price", func(t *testing.T) {
		f := newFixture(t, map[string]string{"7": `[{"product_id":"p1","quantity":1}]`}, nil)
		rec, _ := do(t, f.router, "POST", "/api/orders/checkout", token(t, 7, auth.RoleUser), nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("checkout = %d, want 400", rec.Code)
		}
	})

	t.Run("payment gateway down", func(t *testing.T) {
		f := newFixture(t, map[string]string{"7": dressCart}, failingGateway{})
		rec, _ := do(t, f.router, "POST", "/api/orders/checkout", token(t, 7, auth.RoleUser), nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("checkout = %d, want 503", rec.Code)
		}
		page, _, _ := f.repo.List(context.Background(), domain.OrderFilter{Status: domain.StatusFailed})
		if len(page) != 1 {
			t.Fatalf("failed orders = %d, want 1", len(page))
		}
		if len(f.publisher.events) != 0 {
			t.Fatal("published an order that never reached payment")
		}
	})

	t.Run("publish failure still places order", func(t *testing.T) {
		f := newFixture(t, map[string]string{"7": dressCart}, nil)
		f.publisher.err = errors.New("broker down")
		rec, _ := do(t, f.router, "POST", "/api/orders/checkout", token(t, 7, auth.RoleUser), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("checkout = %d, want 201", rec.Code)
		}
	})
}

func TestConfirmDeclinedPayment(t *testing.T) {
	f := newFixture(t, map[string]string{"7": dressCart}, nil)
	f.gateway.Outcome = payment.IntentFailed
	buyer := token(t, 7, auth.RoleUser)

	_, resp := do(t, f.router, "POST", "/api/orders/checkout", buyer, nil)
	var result command.CheckoutResult
	decode(t, resp.Data, &result)

	_, resp = do(t, f.router, "POST", "/api/orders/"+result.Order.OrderNumber+"/confirm", buyer, nil)
	var order domain.Order
	decode(t, resp.Data, &order)
	if order.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", order.Status)
	}
}

func TestOrderAccessControl(t *testing.T) {
	f := newFixture(t, map[string]string{"7": dressCart}, nil)
	_, resp := do(t, f.router, "POST", "/api/orders/checkout", token(t, 7, auth.RoleUser), nil)
	var result command.CheckoutResult
	decode(t, resp.Data, &result)
	path := "/api/orders/" + result.Order.OrderNumber

	if rec, _ := do(t, f.router, "GET", path, token(t, 8, auth.RoleUser), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger get = %d, want 403", rec.Code)
	}
	if rec, _ := do(t, f.router, "POST", path+"/confirm", token(t, 8, auth.RoleUser), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger confirm = %d, want 403", rec.Code)
	}
	if rec, _ := do(t, f.router, "GET", path, token(t, 1, auth.RoleAdmin), nil); rec.Code != http.StatusOK {
		t.Fatalf("admin get = %d, want 200", rec.Code)
	}
	if rec, _ := do(t, f.router, "GET", "/api/orders/ORD-NOPE", token(t, 7, auth.RoleUser), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing get = %d, want 404", rec.Code)
	}
	if rec, _ := do(t, f.router, "GET", "/api/orders", token(t, 7, auth.RoleUser), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("user list = %d, want 403", rec.Code)
	}
}

func TestAdminStatusAndListing(t *testing.T) {
	f := newFixture(t, map[string]string{"7": dressCart}, nil)
	_, resp := do(t, f.router, "POST", "/api/orders/checkout", token(t, 7, auth.RoleUser), nil)
	var result command.CheckoutResult
	decode(t, resp.Data, &result)
	admin := token(t, 1, auth.RoleAdmin)
	path := "/api/orders/" + result.Order.OrderNumber + "/status"

	if rec, _ := do(t, f.router, "PATCH", path, admin, statusRequest{Status: "pending"}); rec.Code != http.StatusConflict {
		t.Fatalf("awaiting_payment -> pending = %d, want 409", rec.Code)
	}
	if rec, _ := do(t, f.router, "PATCH", path, admin, statusRequest{Status: "shipped"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status = %d, want 400", rec.Code)
	}
	if rec, _ := do(t, f.router, "PATCH", path, admin, statusRequest{Status: "cancelled"}); rec.Code != http.StatusOK {
		t.Fatalf("cancel = %d, want 200", rec.Code)
	}

	rec, resp := do(t, f.router, "GET", "/api/orders?status=cancelled", admin, nil)
	var page query.OrderPage
	decode(t, resp.Data, &page)
	if rec.Code != http.StatusOK || page.Total != 1 || page.Orders[0].Status != domain.StatusCancelled {
		t.Fatalf("list = %d %+v", rec.Code, page)
	}

	// a cancelled order cannot be confirmed
	if rec, _ := do(t, f.router, "POST", "/api/orders/"+result.Order.OrderNumber+"/confirm", admin, nil); rec.Code != http.StatusConflict {
		t.Fatalf("confirm cancelled = %d, want 409", rec.Code)
	}
}
