package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Nop()
	m.Run()
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(7, "ana", role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + token
}

func TestAuthAndAdmin(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) {
		claims, found := ClaimsFrom(r.Context())
		if !found || claims.UserID != 7 {
			t.Errorf("claims = %+v, %v", claims, found)
		}
		w.WriteHeader(http.StatusNoContent)
	}

	tests := []struct {
		name   string
		wrap   func(http.HandlerFunc) http.HandlerFunc
		header string
		want   int
	}{
		{"auth without header", Auth, "", http.StatusUnauthorized},
		{"auth with garbage", Auth, "Bearer nope", http.StatusUnauthorized},
		{"auth with user token", Auth, bearer(t, auth.RoleUser), http.StatusNoContent},
		{"admin with user token", Admin, bearer(t, auth.RoleUser), http.StatusForbidden},
		{"admin with admin token", Admin, bearer(t, auth.RoleAdmin), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.wrap(ok)(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRecoveryAndRequestID(t *testing.T) {
	h := RequestID(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestOptionalAuth(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantAdmin bool
	}{
		{"anonymous", "", false},
		{"garbage token", "Bearer nope", false},
		{"user", bearer(t, auth.RoleUser), false},
		{"admin", bearer(t, auth.RoleAdmin), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAdmin bool
			h := OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
				gotAdmin = IsAdmin(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if gotAdmin != tt.wantAdmin {
				t.Fatalf("IsAdmin = %v, want %v", gotAdmin, tt.wantAdmin)
			}
		})
	}
}
