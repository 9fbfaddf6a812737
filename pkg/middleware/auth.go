package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

// Response is the JSON envelope every service answers with
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WithClaims stores validated token claims in ctx
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the claims stored by Auth, if any
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// Auth requires a valid bearer token.
func Auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			logger.Warn(r.Context()).Err(err).Msg("Missing or malformed authorization header")
			RespondError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			logger.Warn(r.Context()).Err(err).Msg("Invalid token")
			RespondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

// Admin requires a valid bearer token carrying the admin role
func Admin(next http.HandlerFunc) http.HandlerFunc {
	return Auth(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFrom(r.Context())
		if !claims.IsAdmin() {
			logger.Warn(r.Context()).
				Uint("user_id", claims.UserID).
				Str("role", claims.Role).
				Msg("Admin access denied")
			RespondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalAuth attaches claims when the request carries a valid bearer token
// and otherwise serves the request anonymously.
func OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err == nil {
			if claims, err := auth.ValidateToken(token); err == nil {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	}
}

// IsAdmin reports whether ctx carries admin claims
func IsAdmin(ctx context.Context) bool {
	claims, ok := ClaimsFrom(ctx)
	return ok && claims.IsAdmin()
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// RespondError sends the error envelope
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, Response{Success: false, Error: message})
}
