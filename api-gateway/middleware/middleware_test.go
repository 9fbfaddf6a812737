package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/breaker"
	"github.com/tair/storefront/pkg/logger"
)

func init() {
	logger.Nop()
	auth.SetSigningKey([]byte("middleware-test-key"))
}

func run(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	app := fiber.New()
	var seenUser, seenHeader string
	app.Get("/private", AuthMiddleware(), func(c *fiber.Ctx) error {
		seenUser, _ = c.Locals(LocalUserID).(string)
		seenHeader = c.Get("X-User-ID")
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/admin", AuthMiddleware(), AdminMiddleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	userToken, _ := auth.GenerateToken(12, "ana", auth.RoleUser)
	adminToken, _ := auth.GenerateToken(1, "root", auth.RoleAdmin)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "missing header", path: "/private", want: http.StatusUnauthorized},
		{name: "bad token", path: "/private", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "user", path: "/private", header: "Bearer " + userToken, want: http.StatusOK},
		{name: "user on admin route", path: "/admin", header: "Bearer " + userToken, want: http.StatusForbidden},
		{name: "admin", path: "/admin", header: "Bearer " + adminToken, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := run(t, app, req); got != tt.want {
				t.Fatalf("status = %d, want %d", got, tt.want)
			}
		})
	}

	if seenUser != "12" || seenHeader != "12" {
		t.Fatalf("identity = %q / %q, want 12", seenUser, seenHeader)
	}
}

func TestCircuitBreakerMiddlewareOpensAfterServerErrors(t *testing.T) {
	manager := breaker.NewManager(2, time.Minute)
	resolve := func(path string) string {
		if path == "/api/orders" {
			return "order"
		}
		return ""
	}

	calls := 0
	app := fiber.New()
	app.Use(CircuitBreakerMiddleware(manager, resolve))
	app.Get("/api/orders", func(c *fiber.Ctx) error {
		calls++
		return c.SendStatus(fiber.StatusInternalServerError)
	})
	app.Get("/other", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusInternalServerError)
	})

	for i := 0; i < 2; i++ {
		if got := run(t, app, httptest.NewRequest(http.MethodGet, "/api/orders", nil)); got != http.StatusInternalServerError {
			t.Fatalf("call %d status = %d, want the backend's 500", i, got)
		}
	}
	if got := run(t, app, httptest.NewRequest(http.MethodGet, "/api/orders", nil)); got != http.StatusServiceUnavailable {
		t.Fatalf("status with open circuit = %d, want 503", got)
	}
	if calls != 2 {
		t.Fatalf("backend calls = %d, want 2", calls)
	}

	for i := 0; i < 3; i++ {
		if got := run(t, app, httptest.NewRequest(http.MethodGet, "/other", nil)); got != http.StatusInternalServerError {
			t.Fatalf("unguarded status = %d, want 500", got)
		}
	}
}

func TestIsCacheable(t *testing.T) {
	cfg := DefaultCacheConfig()
	app := fiber.New()
	var got bool
	app.All("/*", func(c *fiber.Ctx) error {
		got = isCacheable(c, cfg)
		return nil
	})

	tests := []struct {
		method, path string
		want         bool
	}{
		{http.MethodGet, "/api/products", true},
		{http.MethodGet, "/api/products/sm001", true},
		{http.MethodHead, "/api/fabrics", true},
		{http.MethodPost, "/api/products", false},
		{http.MethodGet, "/api/session/state", false},
		{http.MethodGet, "/api/users/7/cart", false},
	}
	for _, tt := range tests {
		run(t, app, httptest.NewRequest(tt.method, tt.path, nil))
		if got != tt.want {
			t.Fatalf("isCacheable(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}
