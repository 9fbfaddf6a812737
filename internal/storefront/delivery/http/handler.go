package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/internal/storefront/remote"
	"github.com/tair/storefront/internal/storefront/session"
	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/metrics"
	"github.com/tair/storefront/pkg/money"
)

// ProductReader resolves the product snapshot stored in guest cart lines.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (storefront.Product, error)
}

// Config controls the session cookie and price display
type Config struct {
	CookieName   string
	CookieSecure bool
	CookieMaxAge time.Duration
	Currency     string
}

func DefaultConfig() Config {
	return Config{
		CookieName:   "sf_session",
		CookieMaxAge: 30 * 24 * time.Hour,
		Currency:     money.DefaultCurrency,
	}
}

// SessionHandler exposes the per-session storefront controller over HTTP.
type SessionHandler struct {
	sessions *session.Manager
	products ProductReader
	cfg      Config
	metrics  *metrics.HTTP
}

func NewSessionHandler(sessions *session.Manager, products ProductReader, cfg Config) *SessionHandler {
	if cfg.CookieName == "" {
		cfg.CookieName = "sf_session"
	}
	if cfg.Currency == "" {
		cfg.Currency = money.DefaultCurrency
	}
	return &SessionHandler{
		sessions: sessions,
		products: products,
		cfg:      cfg,
		metrics:  metrics.NewHTTP("storefront_session"),
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type stateResponse struct {
	storefront.View
	CartTotalDisplay string `json:"cartTotalDisplay"`
}

type lineRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// sessionCall is one request bound to its session's controller
type sessionCall struct {
	id   string
	ctrl *storefront.Controller
	ctx  context.Context
}

func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	g := router.Group("/api/session")

	g.Get("/state", h.metricsMiddleware("/api/session/state", h.withSession(h.GetState)))
	g.Post("/auth", h.metricsMiddleware("/api/session/auth", h.withSession(h.SignIn)))
	g.Delete("/auth", h.metricsMiddleware("/api/session/auth", h.withSession(h.SignOut)))
	g.Post("/migrate", h.metricsMiddleware("/api/session/migrate", h.withSession(h.Migrate)))

	g.Post("/cart/items", h.metricsMiddleware("/api/session/cart/items", h.withSession(h.AddCartItem)))
	g.Patch("/cart/items", h.metricsMiddleware("/api/session/cart/items", h.withSession(h.UpdateCartItem)))
	g.Delete("/cart/items", h.metricsMiddleware("/api/session/cart/items", h.withSession(h.RemoveCartItem)))
	g.Delete("/cart", h.metricsMiddleware("/api/session/cart", h.withSession(h.ClearCart)))

	g.Post("/favorites", h.metricsMiddleware("/api/session/favorites", h.withSession(h.AddFavorite)))
	g.Get("/favorites/:id", h.metricsMiddleware("/api/session/favorites/:id", h.withSession(h.IsFavorite)))
	g.Delete("/favorites/:id", h.metricsMiddleware("/api/session/favorites/:id", h.withSession(h.RemoveFavorite)))
}

func (h *SessionHandler) metricsMiddleware(endpoint string, next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := next(c)
		h.metrics.Observe(c.Method(), endpoint, strconv.Itoa(c.Response().StatusCode()), time.Since(start))
		return err
	}
}

// withSession resolves the session cookie, issuing a new one when absent.
func (h *SessionHandler) withSession(next func(*fiber.Ctx, sessionCall) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(h.cfg.CookieName)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     h.cfg.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(h.cfg.CookieMaxAge.Seconds()),
				Secure:   h.cfg.CookieSecure,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		ctx := c.UserContext()
		if token := h.bearer(c, id); token != "" {
			ctx = remote.WithBearer(ctx, token)
		}

		ctrl, err := h.sessions.Get(ctx, id)
		if err != nil {
			logger.Error(ctx).Err(err).Str("session_id", id).Msg("Failed to open session")
			return c.Status(fiber.StatusInternalServerError).JSON(Response{
				Success: false,
				Error:   "Failed to open session",
			})
		}
		return next(c, sessionCall{id: id, ctrl: ctrl, ctx: ctx})
	}
}

// bearer prefers the request's own token over the one remembered at sign-in.
func (h *SessionHandler) bearer(c *fiber.Ctx, sessionID string) string {
	if token, err := auth.BearerToken(c.Get("Authorization")); err == nil {
		return token
	}
	return h.sessions.Bearer(sessionID)
}

// GetState handles GET /api/session/state
func (h *SessionHandler) GetState(c *fiber.Ctx, s sessionCall) error {
	return h.respondState(c, fiber.StatusOK, s, "")
}

// SignIn handles POST /api/session/auth. The bearer token identifies the
// user; guest state is migrated on the first sign-in of the session.
func (h *SessionHandler) SignIn(c *fiber.Ctx, s sessionCall) error {
	token, err := auth.BearerToken(c.Get("Authorization"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(Response{Success: false, Error: "Authorization header required"})
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(Response{Success: false, Error: "Invalid token"})
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	s.ctx = remote.WithBearer(s.ctx, token)
	if err := h.sessions.SignIn(s.ctx, s.id, claims.Subject(), token, expires); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Signed in")
}

// SignOut handles DELETE /api/session/auth. Remote data is kept.
func (h *SessionHandler) SignOut(c *fiber.Ctx, s sessionCall) error {
	if err := h.sessions.SignOut(s.ctx, s.id); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Signed out")
}

// Migrate handles POST /api/session/migrate, retrying a partial migration.
func (h *SessionHandler) Migrate(c *fiber.Ctx, s sessionCall) error {
	if err := s.ctrl.MigrateLocalData(s.ctx); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Guest data migrated")
}

// AddCartItem handles POST /api/session/cart/items
func (h *SessionHandler) AddCartItem(c *fiber.Ctx, s sessionCall) error {
	var req lineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Response{Success: false, Error: "Invalid request body"})
	}

	product, err := h.lookup(s.ctx, req.ProductID)
	if err != nil {
		return h.respondError(c, s, err)
	}
	if err := s.ctrl.AddToCart(s.ctx, product, req.Size, req.Color, req.Quantity); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Added to cart")
}

// UpdateCartItem handles PATCH /api/session/cart/items
func (h *SessionHandler) UpdateCartItem(c *fiber.Ctx, s sessionCall) error {
	var req lineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Response{Success: false, Error: "Invalid request body"})
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return h.respondError(c, s, storefront.ErrInvalidProduct)
	}

	if err := s.ctrl.UpdateQuantity(s.ctx, req.ProductID, req.Quantity, req.Size, req.Color); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Cart updated")
}

// RemoveCartItem handles DELETE /api/session/cart/items?product_id=&size=&color=
func (h *SessionHandler) RemoveCartItem(c *fiber.Ctx, s sessionCall) error {
	productID := c.Query("product_id")
	if strings.TrimSpace(productID) == "" {
		return h.respondError(c, s, storefront.ErrInvalidProduct)
	}

	if err := s.ctrl.RemoveFromCart(s.ctx, productID, c.Query("size"), c.Query("color")); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Removed from cart")
}

// ClearCart handles DELETE /api/session/cart
func (h *SessionHandler) ClearCart(c *fiber.Ctx, s sessionCall) error {
	if err := s.ctrl.ClearCart(s.ctx); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Cart cleared")
}

// AddFavorite handles POST /api/session/favorites
func (h *SessionHandler) AddFavorite(c *fiber.Ctx, s sessionCall) error {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Response{Success: false, Error: "Invalid request body"})
	}

	product, err := h.lookup(s.ctx, req.ProductID)
	if err != nil {
		return h.respondError(c, s, err)
	}
	if err := s.ctrl.AddToFavorites(s.ctx, product); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Added to favorites")
}

// IsFavorite handles GET /api/session/favorites/:id
func (h *SessionHandler) IsFavorite(c *fiber.Ctx, s sessionCall) error {
	id := c.Params("id")
	return c.JSON(Response{
		Success: true,
		Data: fiber.Map{
			"product_id": id,
			"favorite":   s.ctrl.IsFavorite(id),
		},
	})
}

// RemoveFavorite handles DELETE /api/session/favorites/:id
func (h *SessionHandler) RemoveFavorite(c *fiber.Ctx, s sessionCall) error {
	if err := s.ctrl.RemoveFromFavorites(s.ctx, c.Params("id")); err != nil {
		return h.respondError(c, s, err)
	}
	return h.respondState(c, fiber.StatusOK, s, "Removed from favorites")
}

// lookup reads the product; anything but not-found means the catalog is down.
func (h *SessionHandler) lookup(ctx context.Context, id string) (storefront.Product, error) {
	if strings.TrimSpace(id) == "" {
		return storefront.Product{}, storefront.ErrInvalidProduct
	}
	p, err := h.products.GetProduct(ctx, id)
	if err != nil && !errors.Is(err, remote.ErrProductNotFound) {
		return storefront.Product{}, fmt.Errorf("catalog: %w: %w", storefront.ErrRemoteUnavailable, err)
	}
	return p, err
}

func (h *SessionHandler) respondState(c *fiber.Ctx, status int, s sessionCall, message string) error {
	view := s.ctrl.Snapshot()
	return c.Status(status).JSON(Response{
		Success: true,
		Message: message,
		Data: stateResponse{
			View:             view,
			CartTotalDisplay: money.Format(view.CartTotal, h.cfg.Currency),
		},
	})
}

// respondError maps controller failures to a status. A partial migration is
// reported as accepted with the current state so the client can retry.
func (h *SessionHandler) respondError(c *fiber.Ctx, s sessionCall, err error) error {
	status := fiber.StatusInternalServerError
	msg := "Internal error"

	switch {
	case errors.Is(err, storefront.ErrMigrationPartial):
		view := s.ctrl.Snapshot()
		return c.Status(fiber.StatusAccepted).JSON(Response{
			Success: false,
			Message: "Some items could not be merged, retry with POST /api/session/migrate",
			Error:   err.Error(),
			Data: stateResponse{
				View:             view,
				CartTotalDisplay: money.Format(view.CartTotal, h.cfg.Currency),
			},
		})
	case errors.Is(err, storefront.ErrRemoteUnauthorized):
		// The remembered token is stale; the session falls back to guest.
		if serr := h.sessions.SignOut(s.ctx, s.id); serr != nil {
			logger.Warn(s.ctx).Err(serr).Str("session_id", s.id).Msg("Failed to sign out rejected session")
		}
		status, msg = fiber.StatusUnauthorized, "Session expired, sign in again"
	case errors.Is(err, storefront.ErrRemoteUnavailable):
		status, msg = fiber.StatusServiceUnavailable, "Cart is temporarily unavailable, please retry"
	case errors.Is(err, storefront.ErrInvalidProduct):
		status, msg = fiber.StatusBadRequest, "product_id is required"
	case errors.Is(err, remote.ErrProductNotFound):
		status, msg = fiber.StatusNotFound, "Product not found"
	case errors.Is(err, storefront.ErrNotAuthenticated):
		status, msg = fiber.StatusConflict, "Sign in first"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status, msg = fiber.StatusGatewayTimeout, "Request timed out"
	}

	logger.Warn(s.ctx).
		Err(err).
		Str("session_id", s.id).
		Int("status", status).
		Str("path", c.Path()).
		Msg("Session operation failed")

	return c.Status(status).JSON(Response{Success: false, Error: msg})
}
