package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/storefront/internal/user/domain"
	"github.com/tair/storefront/internal/user/usecase/command"
	"github.com/tair/storefront/internal/user/usecase/query"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/metrics"
	"github.com/tair/storefront/pkg/middleware"
)

// UserHandler handles HTTP requests for users
type UserHandler struct {
	// Command handlers
	registerHandler     *command.RegisterUserHandler
	loginHandler        *command.LoginUserHandler
	updateHandler       *command.UpdateUserHandler
	deleteHandler       *command.DeleteUserHandler
	changeRoleHandler   *command.ChangeRoleHandler
	toggleActiveHandler *command.ToggleActiveHandler

	// Query handlers
	getUserHandler *query.GetUserHandler
	listHandler    *query.ListUsersHandler
	statsHandler   *query.GetStatsHandler

	metrics     *metrics.HTTP
	activeUsers prometheus.Gauge
	logins      *prometheus.CounterVec
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	registerHandler *command.RegisterUserHandler,
	loginHandler *command.LoginUserHandler,
	updateHandler *command.UpdateUserHandler,
	deleteHandler *command.DeleteUserHandler,
	changeRoleHandler *command.ChangeRoleHandler,
	toggleActiveHandler *command.ToggleActiveHandler,
	getUserHandler *query.GetUserHandler,
	listHandler *query.ListUsersHandler,
	statsHandler *query.GetStatsHandler,
) *UserHandler {
	activeUsers := metrics.Register(prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_service_active_users",
			Help: "Number of active users in the system",
		},
	))
	logins := metrics.Register(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_service_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	))

	return &UserHandler{
		registerHandler:     registerHandler,
		loginHandler:        loginHandler,
		updateHandler:       updateHandler,
		deleteHandler:       deleteHandler,
		changeRoleHandler:   changeRoleHandler,
		toggleActiveHandler: toggleActiveHandler,
		getUserHandler:      getUserHandler,
		listHandler:         listHandler,
		statsHandler:        statsHandler,
		metrics:             metrics.NewHTTP("user_service"),
		activeUsers:         activeUsers,
		logins:              logins,
	}
}

type Response = middleware.Response

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type profileRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// RegisterRoutes registers all routes
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	const (
		users = "/api/users"
		user  = "/api/users/{id:[0-9]+}"
	)

	// Public routes
	router.HandleFunc("/api/auth/register", h.metrics.Wrap("/api/auth/register", h.Register)).Methods("POST")
	router.HandleFunc("/api/auth/login", h.metrics.Wrap("/api/auth/login", h.Login)).Methods("POST")

	// Authenticated routes
	router.HandleFunc("/api/users/me", h.metrics.Wrap("/api/users/me", middleware.Auth(h.GetProfile))).Methods("GET")
	router.HandleFunc("/api/users/me", h.metrics.Wrap("/api/users/me", middleware.Auth(h.UpdateProfile))).Methods("PUT")

	// Admin routes
	router.HandleFunc("/api/users/stats", h.metrics.Wrap("/api/users/stats", middleware.Admin(h.GetStats))).Methods("GET")
	router.HandleFunc(users, h.metrics.Wrap(users, middleware.Admin(h.ListUsers))).Methods("GET")
	router.HandleFunc(users, h.metrics.Wrap(users, middleware.Admin(h.CreateUser))).Methods("POST")
	router.HandleFunc(user, h.metrics.Wrap("/api/users/{id}", middleware.Admin(h.GetUser))).Methods("GET")
	router.HandleFunc(user, h.metrics.Wrap("/api/users/{id}", middleware.Admin(h.UpdateUser))).Methods("PUT")
	router.HandleFunc(user, h.metrics.Wrap("/api/users/{id}", middleware.Admin(h.DeleteUser))).Methods("DELETE")
	router.HandleFunc(user+"/role", h.metrics.Wrap("/api/users/{id}/role", middleware.Admin(h.ChangeRole))).Methods("PUT")
	router.HandleFunc(user+"/active", h.metrics.Wrap("/api/users/{id}/active", middleware.Admin(h.ToggleActive))).Methods("PUT")
}

// Register handles POST /api/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.registerHandler.Handle(r.Context(), command.RegisterUserCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		h.respondError(w, r, "register", err)
		return
	}

	logger.Info(r.Context()).
		Uint("user_id", user.ID).
		Str("username", user.Username).
		Msg("User registered")

	middleware.RespondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "User registered successfully",
		Data:    user,
	})
}

// Login handles POST /api/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.loginHandler.Handle(r.Context(), command.LoginUserCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.logins.WithLabelValues("rejected").Inc()
		logger.Warn(r.Context()).Err(err).Str("username", req.Username).Msg("Login rejected")
		h.respondError(w, r, "login", err)
		return
	}
	h.logins.WithLabelValues("ok").Inc()

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Login successful",
		Data:    resp,
	})
}

// GetProfile handles GET /api/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	user, err := h.getUserHandler.Handle(r.Context(), query.GetUserQuery{ID: claims.UserID})
	if err != nil {
		h.respondError(w, r, "get profile", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    user,
	})
}

// UpdateProfile handles PUT /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	h.writeProfile(w, r, claims.UserID)
}

// UpdateUser handles PUT /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	h.writeProfile(w, r, id)
}

func (h *UserHandler) writeProfile(w http.ResponseWriter, r *http.Request, id uint) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.updateHandler.Handle(r.Context(), command.UpdateUserCommand{
		ID:       id,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(w, r, "update user", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Profile updated successfully",
		Data:    user,
	})
}

// CreateUser handles POST /api/users. Admins may create other admins.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		registerRequest
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.registerHandler.Handle(r.Context(), command.RegisterUserCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		h.respondError(w, r, "create user", err)
		return
	}

	middleware.RespondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "User created successfully",
		Data:    user,
	})
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.getUserHandler.Handle(r.Context(), query.GetUserQuery{ID: id})
	if err != nil {
		h.respondError(w, r, "get user", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    user,
	})
}

// ListUsers handles GET /api/users?role=&limit=&offset=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.listHandler.Handle(r.Context(), query.ListUsersQuery{
		Role:   q.Get("role"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondError(w, r, "list users", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    page,
	})
}

// DeleteUser handles DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	claims, _ := middleware.ClaimsFrom(r.Context())

	if err := h.deleteHandler.Handle(r.Context(), command.DeleteUserCommand{ID: id, ActorID: claims.UserID}); err != nil {
		h.respondError(w, r, "delete user", err)
		return
	}

	logger.Info(r.Context()).Uint("user_id", id).Uint("by", claims.UserID).Msg("User deleted")
	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "User deleted successfully",
	})
}

// ChangeRole handles PUT /api/users/{id}/role
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	claims, _ := middleware.ClaimsFrom(r.Context())

	user, err := h.changeRoleHandler.Handle(r.Context(), command.ChangeRoleCommand{
		UserID:  id,
		ActorID: claims.UserID,
		Role:    req.Role,
	})
	if err != nil {
		h.respondError(w, r, "change role", err)
		return
	}

	logger.Info(r.Context()).Uint("user_id", id).Str("role", user.Role).Msg("User role changed")
	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "User role updated successfully",
		Data:    user,
	})
}

// ToggleActive handles PUT /api/users/{id}/active
func (h *UserHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		middleware.RespondError(w, http.StatusBadRequest, "is_active is required")
		return
	}
	claims, _ := middleware.ClaimsFrom(r.Context())

	user, err := h.toggleActiveHandler.Handle(r.Context(), command.ToggleActiveCommand{
		UserID:   id,
		ActorID:  claims.UserID,
		IsActive: *req.IsActive,
	})
	if err != nil {
		h.respondError(w, r, "toggle active", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "User status updated successfully",
		Data:    user,
	})
}

// GetStats handles GET /api/users/stats
func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsHandler.Handle(r.Context())
	if err != nil {
		h.respondError(w, r, "get stats", err)
		return
	}
	h.activeUsers.Set(float64(stats.ActiveUsers))

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}

// RegisterHealthCheck registers health check endpoint
func (h *UserHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			middleware.RespondError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}

		middleware.RespondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "User service is healthy",
		})
	}).Methods("GET")
}

func userID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid user ID")
		return 0, false
	}
	return uint(id), true
}

func (h *UserHandler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		middleware.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		middleware.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrInactive):
		middleware.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.RespondError(w, http.StatusNotFound, "User not found")
	default:
		logger.Error(r.Context()).Err(err).Str("op", op).Msg("User operation failed")
		middleware.RespondError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}
