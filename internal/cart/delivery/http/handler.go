package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/cart/usecase/command"
	"github.com/tair/storefront/internal/cart/usecase/query"
	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/metrics"
	"github.com/tair/storefront/pkg/middleware"
)

// CartHandler handles HTTP requests for the remote cart store
type CartHandler struct {
	addLine        *command.AddLineHandler
	setQuantity    *command.SetQuantityHandler
	removeLine     *command.RemoveLineHandler
	clearCart      *command.ClearCartHandler
	addFavorite    *command.AddFavoriteHandler
	removeFavorite *command.RemoveFavoriteHandler
	getCart        *query.GetCartHandler
	listFavorites  *query.ListFavoritesHandler
	metrics        *metrics.HTTP
}

// NewCartHandler creates a new cart handler
func NewCartHandler(
	addLine *command.AddLineHandler,
	setQuantity *command.SetQuantityHandler,
	removeLine *command.RemoveLineHandler,
	clearCart *command.ClearCartHandler,
	addFavorite *command.AddFavoriteHandler,
	removeFavorite *command.RemoveFavoriteHandler,
	getCart *query.GetCartHandler,
	listFavorites *query.ListFavoritesHandler,
) *CartHandler {
	return &CartHandler{
		addLine:        addLine,
		setQuantity:    setQuantity,
		removeLine:     removeLine,
		clearCart:      clearCart,
		addFavorite:    addFavorite,
		removeFavorite: removeFavorite,
		getCart:        getCart,
		listFavorites:  listFavorites,
		metrics:        metrics.NewHTTP("cart_service"),
	}
}

type Response = middleware.Response

type lineRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// productResponse is the catalog wire shape of a favorited product
type productResponse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	PriceCents         int64    `json:"price_cents"`
	OriginalPriceCents *int64   `json:"original_price_cents,omitempty"`
	Images             []string `json:"images"`
	Category           string   `json:"category"`
	Sizes              []string `json:"sizes,omitempty"`
	Colors             []string `json:"colors,omitempty"`
	Description        string   `json:"description,omitempty"`
}

func toProductResponse(p storefront.Product) productResponse {
	out := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		PriceCents:  int64(p.Price),
		Images:      p.Images,
		Category:    p.Category,
		Sizes:       p.Sizes,
		Colors:      p.Colors,
		Description: p.Description,
	}
	if p.OriginalPrice != nil {
		op := int64(*p.OriginalPrice)
		out.OriginalPriceCents = &op
	}
	return out
}

func (h *CartHandler) RegisterRoutes(router *mux.Router) {
	const (
		items     = "/api/users/{user_id}/cart/items"
		cart      = "/api/users/{user_id}/cart"
		favorites = "/api/users/{user_id}/favorites"
		favorite  = "/api/users/{user_id}/favorites/{product_id}"
	)

	router.HandleFunc(items, h.metrics.Wrap(items, h.owner(h.AddLine))).Methods("PUT")
	router.HandleFunc(items, h.metrics.Wrap(items, h.owner(h.SetQuantity))).Methods("PATCH")
	router.HandleFunc(items, h.metrics.Wrap(items, h.owner(h.RemoveLine))).Methods("DELETE")
	router.HandleFunc(cart, h.metrics.Wrap(cart, h.owner(h.GetCart))).Methods("GET")
	router.HandleFunc(cart, h.metrics.Wrap(cart, h.owner(h.ClearCart))).Methods("DELETE")

	router.HandleFunc(favorites, h.metrics.Wrap(favorites, h.owner(h.ListFavorites))).Methods("GET")
	router.HandleFunc(favorite, h.metrics.Wrap(favorite, h.owner(h.AddFavorite))).Methods("PUT")
	router.HandleFunc(favorite, h.metrics.Wrap(favorite, h.owner(h.RemoveFavorite))).Methods("DELETE")
}

// owner lets a user act on their own cart only; admins may act on any.
func (h *CartHandler) owner(next http.HandlerFunc) http.HandlerFunc {
	return middleware.Auth(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.ClaimsFrom(r.Context())
		if userID := mux.Vars(r)["user_id"]; claims.Subject() != userID && !claims.IsAdmin() {
			logger.Warn(r.Context()).
				Str("user_id", userID).
				Str("caller", claims.Subject()).
				Msg("Cart access denied")
			middleware.RespondError(w, http.StatusForbidden, "Access to another user's cart denied")
			return
		}
		next(w, r)
	})
}

// AddLine handles PUT /api/users/{user_id}/cart/items
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	line, err := h.addLine.Handle(r.Context(), command.AddLineCommand{
		UserID:    mux.Vars(r)["user_id"],
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.respondError(w, r, "add cart line", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Cart line added",
		Data:    line,
	})
}

// SetQuantity handles PATCH /api/users/{user_id}/cart/items
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.setQuantity.Handle(r.Context(), command.SetQuantityCommand{
		UserID:    mux.Vars(r)["user_id"],
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.respondError(w, r, "set quantity", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Quantity updated",
	})
}

// RemoveLine handles DELETE /api/users/{user_id}/cart/items?product_id=&size=&color=
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := h.removeLine.Handle(r.Context(), command.RemoveLineCommand{
		UserID:    mux.Vars(r)["user_id"],
		ProductID: q.Get("product_id"),
		Size:      q.Get("size"),
		Color:     q.Get("color"),
	})
	if err != nil {
		h.respondError(w, r, "remove cart line", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Cart line removed",
	})
}

// GetCart handles GET /api/users/{user_id}/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.getCart.Handle(r.Context(), query.GetCartQuery{UserID: mux.Vars(r)["user_id"]})
	if err != nil {
		h.respondError(w, r, "get cart", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    lines,
	})
}

// ClearCart handles DELETE /api/users/{user_id}/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	n, err := h.clearCart.Handle(r.Context(), command.ClearCartCommand{UserID: mux.Vars(r)["user_id"]})
	if err != nil {
		h.respondError(w, r, "clear cart", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Cart cleared",
		Data:    map[string]int64{"removed": n},
	})
}

// ListFavorites handles GET /api/users/{user_id}/favorites
func (h *CartHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	products, err := h.listFavorites.Handle(r.Context(), query.ListFavoritesQuery{UserID: mux.Vars(r)["user_id"]})
	if err != nil {
		h.respondError(w, r, "list favorites", err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    out,
	})
}

// AddFavorite handles PUT /api/users/{user_id}/favorites/{product_id}
func (h *CartHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.addFavorite.Handle(r.Context(), command.FavoriteCommand{UserID: vars["user_id"], ProductID: vars["product_id"]})
	if err != nil {
		h.respondError(w, r, "add favorite", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Favorite added",
	})
}

// RemoveFavorite handles DELETE /api/users/{user_id}/favorites/{product_id}
func (h *CartHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.removeFavorite.Handle(r.Context(), command.FavoriteCommand{UserID: vars["user_id"], ProductID: vars["product_id"]})
	if err != nil {
		h.respondError(w, r, "remove favorite", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Favorite removed",
	})
}

// RegisterHealthCheck registers health check endpoint
func (h *CartHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			middleware.RespondError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}

		middleware.RespondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Cart service is healthy",
		})
	}).Methods("GET")
}

func (h *CartHandler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		middleware.RespondError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, domain.ErrNotFound):
		middleware.RespondError(w, http.StatusNotFound, "Not found")
	default:
		logger.Error(r.Context()).Err(err).Str("op", op).Msg("Cart operation failed")
		middleware.RespondError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}
