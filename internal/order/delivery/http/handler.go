package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/storefront/internal/order/domain"
	"github.com/tair/storefront/internal/order/usecase/command"
	"github.com/tair/storefront/internal/order/usecase/query"
	"github.com/tair/storefront/internal/storefront/remote"
	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/metrics"
	"github.com/tair/storefront/pkg/middleware"
)

// OrderHandler handles HTTP requests for orders using CQRS pattern
type OrderHandler struct {
	// Command handlers
	checkoutHandler     *command.CheckoutHandler
	confirmHandler      *command.ConfirmPaymentHandler
	updateStatusHandler *command.UpdateStatusHandler

	// Query handlers
	getOrderHandler *query.GetOrderHandler
	myOrdersHandler *query.GetMyOrdersHandler
	listHandler     *query.ListOrdersHandler

	metrics      *metrics.HTTP
	ordersPlaced *prometheus.CounterVec
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	checkoutHandler *command.CheckoutHandler,
	confirmHandler *command.ConfirmPaymentHandler,
	updateStatusHandler *command.UpdateStatusHandler,
	getOrderHandler *query.GetOrderHandler,
	myOrdersHandler *query.GetMyOrdersHandler,
	listHandler *query.ListOrdersHandler,
) *OrderHandler {
	ordersPlaced := metrics.Register(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_service_checkouts_total",
			Help: "Checkouts by outcome",
		},
		[]string{"outcome"},
	))

	return &OrderHandler{
		checkoutHandler:     checkoutHandler,
		confirmHandler:      confirmHandler,
		updateStatusHandler: updateStatusHandler,
		getOrderHandler:     getOrderHandler,
		myOrdersHandler:     myOrdersHandler,
		listHandler:         listHandler,
		metrics:             metrics.NewHTTP("order_service"),
		ordersPlaced:        ordersPlaced,
	}
}

type Response = middleware.Response

type statusRequest struct {
	Status string `json:"status"`
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(router *mux.Router) {
	const (
		orders = "/api/orders"
		order  = "/api/orders/{number}"
	)

	router.HandleFunc("/api/orders/checkout", h.metrics.Wrap("/api/orders/checkout", middleware.Auth(h.Checkout))).Methods("POST")
	router.HandleFunc("/api/orders/me", h.metrics.Wrap("/api/orders/me", middleware.Auth(h.GetMyOrders))).Methods("GET")
	router.HandleFunc(orders, h.metrics.Wrap(orders, middleware.Admin(h.ListOrders))).Methods("GET")
	router.HandleFunc(order, h.metrics.Wrap(order, middleware.Auth(h.GetOrder))).Methods("GET")
	router.HandleFunc("/api/orders/{number}/confirm", h.metrics.Wrap("/api/orders/{number}/confirm", middleware.Auth(h.ConfirmPayment))).Methods("POST")
	router.HandleFunc("/api/orders/{number}/status", h.metrics.Wrap("/api/orders/{number}/status", middleware.Admin(h.UpdateStatus))).Methods("PATCH")
}

// Checkout handles POST /api/orders/checkout. The caller's token is forwarded
// to the cart service so it reads the caller's own cart.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	token, _ := auth.BearerToken(r.Header.Get("Authorization"))
	ctx := remote.WithBearer(r.Context(), token)

	result, err := h.checkoutHandler.Handle(ctx, command.CheckoutCommand{UserID: claims.Subject()})
	if err != nil {
		h.ordersPlaced.WithLabelValues("error").Inc()
		h.respondError(w, r, "checkout", err)
		return
	}
	h.ordersPlaced.WithLabelValues("placed").Inc()

	middleware.RespondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Order placed",
		Data:    result,
	})
}

// GetMyOrders handles GET /api/orders/me?limit=&offset=
func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.myOrdersHandler.Handle(r.Context(), query.GetMyOrdersQuery{
		UserID: claims.Subject(),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondError(w, r, "list orders", err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    orders,
	})
}

// ListOrders handles GET /api/orders?status=&limit=&offset= for admins
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.listHandler.Handle(r.Context(), query.ListOrdersQuery{
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondError(w, r, "list orders", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    page,
	})
}

// GetOrder handles GET /api/orders/{number}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	order, err := h.getOrderHandler.Handle(r.Context(), query.GetOrderQuery{
		OrderNumber: mux.Vars(r)["number"],
		UserID:      claims.Subject(),
		IsAdmin:     claims.IsAdmin(),
	})
	if err != nil {
		h.respondError(w, r, "get order", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    order,
	})
}

// ConfirmPayment handles POST /api/orders/{number}/confirm
func (h *OrderHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	order, err := h.confirmHandler.Handle(r.Context(), command.ConfirmPaymentCommand{
		OrderNumber: mux.Vars(r)["number"],
		UserID:      claims.Subject(),
		IsAdmin:     claims.IsAdmin(),
	})
	if err != nil {
		h.respondError(w, r, "confirm payment", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Order is " + string(order.Status),
		Data:    order,
	})
}

// UpdateStatus handles PATCH /api/orders/{number}/status for admins
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.updateStatusHandler.Handle(r.Context(), command.UpdateStatusCommand{
		OrderNumber: mux.Vars(r)["number"],
		Status:      req.Status,
	})
	if err != nil {
		h.respondError(w, r, "update order status", err)
		return
	}

	logger.Info(r.Context()).
		Str("order_number", order.OrderNumber).
		Str("status", string(order.Status)).
		Msg("Order status updated")

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Order status updated successfully",
		Data:    order,
	})
}

// RegisterHealthCheck registers health check endpoint
func (h *OrderHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			middleware.RespondError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}

		middleware.RespondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Order service is healthy",
		})
	}).Methods("GET")
}

func (h *OrderHandler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrEmptyCart):
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		middleware.RespondError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, domain.ErrNotFound):
		middleware.RespondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		middleware.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPaymentPending):
		middleware.RespondError(w, http.StatusAccepted, err.Error())
	case errors.Is(err, domain.ErrCartUnavailable), errors.Is(err, domain.ErrPaymentUnavailable):
		logger.Error(r.Context()).Err(err).Str("op", op).Msg("Upstream unavailable")
		middleware.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error(r.Context()).Err(err).Str("op", op).Msg("Order operation failed")
		middleware.RespondError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}
