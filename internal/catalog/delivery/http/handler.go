package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/storefront/internal/catalog/domain"
	"github.com/tair/storefront/internal/catalog/usecase/command"
	"github.com/tair/storefront/internal/catalog/usecase/query"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/metrics"
	"github.com/tair/storefront/pkg/middleware"
)

// ProductHandler handles HTTP requests for the catalog using CQRS pattern
type ProductHandler struct {
	// Command handlers
	createHandler *command.CreateProductHandler
	updateHandler *command.UpdateProductHandler
	deleteHandler *command.DeleteProductHandler
	importHandler *command.ImportProductsHandler
	saveFabric    *command.SaveFabricHandler
	deleteFabric  *command.DeleteFabricHandler

	// Query handlers
	getProductHandler *query.GetProductHandler
	listHandler       *query.ListProductsHandler
	statsHandler      *query.GetStatsHandler
	listFabrics       *query.ListFabricsHandler
	getFabric         *query.GetFabricHandler

	metrics        *metrics.HTTP
	activeProducts prometheus.Gauge
}

// NewProductHandler creates a new product handler
func NewProductHandler(
	createHandler *command.CreateProductHandler,
	updateHandler *command.UpdateProductHandler,
	deleteHandler *command.DeleteProductHandler,
	importHandler *command.ImportProductsHandler,
	saveFabric *command.SaveFabricHandler,
	deleteFabric *command.DeleteFabricHandler,
	getProductHandler *query.GetProductHandler,
	listHandler *query.ListProductsHandler,
	statsHandler *query.GetStatsHandler,
	listFabrics *query.ListFabricsHandler,
	getFabric *query.GetFabricHandler,
) *ProductHandler {
	activeProducts := metrics.Register(prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_service_active_products",
			Help: "Number of active products in the catalog",
		},
	))

	return &ProductHandler{
		createHandler:     createHandler,
		updateHandler:     updateHandler,
		deleteHandler:     deleteHandler,
		importHandler:     importHandler,
		saveFabric:        saveFabric,
		deleteFabric:      deleteFabric,
		getProductHandler: getProductHandler,
		listHandler:       listHandler,
		statsHandler:      statsHandler,
		listFabrics:       listFabrics,
		getFabric:         getFabric,
		metrics:           metrics.NewHTTP("catalog_service"),
		activeProducts:    activeProducts,
	}
}

type Response = middleware.Response

type productRequest struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	PriceCents         int64    `json:"price_cents"`
	OriginalPriceCents *int64   `json:"original_price_cents"`
	Images             []string `json:"images"`
	Category           string   `json:"category"`
	Sizes              []string `json:"sizes"`
	Colors             []string `json:"colors"`
	Description        string   `json:"description"`
	FabricID           *uint    `json:"fabric_id"`
	IsActive           *bool    `json:"is_active"`
}

// fields maps the request; products are active unless stated otherwise.
func (req productRequest) fields() command.ProductFields {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return command.ProductFields{
		Name:               req.Name,
		PriceCents:         req.PriceCents,
		OriginalPriceCents: req.OriginalPriceCents,
		Images:             req.Images,
		Category:           req.Category,
		Sizes:              req.Sizes,
		Colors:             req.Colors,
		Description:        req.Description,
		FabricID:           req.FabricID,
		IsActive:           active,
	}
}

type fabricRequest struct {
	Name        string `json:"name"`
	Composition string `json:"composition"`
	Description string `json:"description"`
}

type categoryResponse struct {
	Name         domain.Category `json:"name"`
	ProductCount int64           `json:"product_count"`
}

// RegisterRoutes registers all catalog routes. Reads are public; writes
// require an admin token.
func (h *ProductHandler) RegisterRoutes(router *mux.Router) {
	const (
		products = "/api/products"
		product  = "/api/products/{id}"
		fabrics  = "/api/fabrics"
		fabric   = "/api/fabrics/{id}"
	)

	router.HandleFunc(products, h.metrics.Wrap(products, middleware.OptionalAuth(h.ListProducts))).Methods("GET")
	router.HandleFunc("/api/products/stats", h.metrics.Wrap("/api/products/stats", h.GetStats)).Methods("GET")
	router.HandleFunc("/api/products/import", h.metrics.Wrap("/api/products/import", middleware.Admin(h.ImportProducts))).Methods("POST")
	router.HandleFunc(product, h.metrics.Wrap(product, middleware.OptionalAuth(h.GetProduct))).Methods("GET")
	router.HandleFunc(products, h.metrics.Wrap(products, middleware.Admin(h.CreateProduct))).Methods("POST")
	router.HandleFunc(product, h.metrics.Wrap(product, middleware.Admin(h.UpdateProduct))).Methods("PUT")
	router.HandleFunc(product, h.metrics.Wrap(product, middleware.Admin(h.DeleteProduct))).Methods("DELETE")

	router.HandleFunc("/api/categories", h.metrics.Wrap("/api/categories", h.ListCategories)).Methods("GET")

	router.HandleFunc(fabrics, h.metrics.Wrap(fabrics, h.ListFabrics)).Methods("GET")
	router.HandleFunc(fabric, h.metrics.Wrap(fabric, h.GetFabric)).Methods("GET")
	router.HandleFunc(fabrics, h.metrics.Wrap(fabrics, middleware.Admin(h.CreateFabric))).Methods("POST")
	router.HandleFunc(fabric, h.metrics.Wrap(fabric, middleware.Admin(h.UpdateFabric))).Methods("PUT")
	router.HandleFunc(fabric, h.metrics.Wrap(fabric, middleware.Admin(h.DeleteFabric))).Methods("DELETE")
}

// ListProducts handles GET /api/products?category=&limit=&offset=
// Admins may pass include_inactive=true.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.listHandler.Handle(r.Context(), query.ListProductsQuery{
		Limit:           limit,
		Offset:          offset,
		Category:        q.Get("category"),
		IncludeInactive: q.Get("include_inactive") == "true" && middleware.IsAdmin(r.Context()),
	})
	if err != nil {
		h.respondError(w, r, "list products", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    page,
	})
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.getProductHandler.Handle(r.Context(), query.GetProductQuery{
		ID:              mux.Vars(r)["id"],
		IncludeInactive: middleware.IsAdmin(r.Context()),
	})
	if err != nil {
		h.respondError(w, r, "get product", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    product,
	})
}

// GetStats handles GET /api/products/stats
func (h *ProductHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsHandler.Handle(r.Context())
	if err != nil {
		h.respondError(w, r, "get stats", err)
		return
	}
	h.activeProducts.Set(float64(stats.TotalProducts))

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}

// ListCategories handles GET /api/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsHandler.Handle(r.Context())
	if err != nil {
		h.respondError(w, r, "list categories", err)
		return
	}

	out := make([]categoryResponse, 0, len(stats.Categories))
	for _, c := range stats.Categories {
		out = append(out, categoryResponse{Name: c.Category, ProductCount: c.ProductCount})
	}
	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    out,
	})
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.createHandler.Handle(r.Context(), command.CreateProductCommand{
		ID:            req.ID,
		ProductFields: req.fields(),
	})
	if err != nil {
		h.respondError(w, r, "create product", err)
		return
	}

	logger.Info(r.Context()).
		Str("product_id", product.ID).
		Str("category", string(product.Category)).
		Msg("Product created")

	middleware.RespondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Product created successfully",
		Data:    product,
	})
}

// UpdateProduct handles PUT /api/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.updateHandler.Handle(r.Context(), command.UpdateProductCommand{
		ID:            mux.Vars(r)["id"],
		ProductFields: req.fields(),
	})
	if err != nil {
		h.respondError(w, r, "update product", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Product updated successfully",
		Data:    product,
	})
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.deleteHandler.Handle(r.Context(), command.DeleteProductCommand{ID: id}); err != nil {
		h.respondError(w, r, "delete product", err)
		return
	}

	logger.Info(r.Context()).Str("product_id", id).Msg("Product deleted")
	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Product deleted successfully",
	})
}

// ImportProducts handles POST /api/products/import with a legacy JSON array
func (h *ProductHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.importHandler.Handle(r.Context(), command.ImportProductsCommand{Source: r.Body})
	if err != nil {
		h.respondError(w, r, "import products", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Import finished",
		Data:    result,
	})
}

// ListFabrics handles GET /api/fabrics
func (h *ProductHandler) ListFabrics(w http.ResponseWriter, r *http.Request) {
	fabrics, err := h.listFabrics.Handle(r.Context())
	if err != nil {
		h.respondError(w, r, "list fabrics", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    fabrics,
	})
}

// GetFabric handles GET /api/fabrics/{id}
func (h *ProductHandler) GetFabric(w http.ResponseWriter, r *http.Request) {
	id, ok := fabricID(w, r)
	if !ok {
		return
	}

	fabric, err := h.getFabric.Handle(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get fabric", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    fabric,
	})
}

// CreateFabric handles POST /api/fabrics
func (h *ProductHandler) CreateFabric(w http.ResponseWriter, r *http.Request) {
	h.writeFabric(w, r, 0, http.StatusCreated, "Fabric created successfully")
}

// UpdateFabric handles PUT /api/fabrics/{id}
func (h *ProductHandler) UpdateFabric(w http.ResponseWriter, r *http.Request) {
	id, ok := fabricID(w, r)
	if !ok {
		return
	}
	h.writeFabric(w, r, id, http.StatusOK, "Fabric updated successfully")
}

func (h *ProductHandler) writeFabric(w http.ResponseWriter, r *http.Request, id uint, status int, message string) {
	var req fabricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fabric, err := h.saveFabric.Handle(r.Context(), command.FabricCommand{
		ID:          id,
		Name:        req.Name,
		Composition: req.Composition,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, r, "save fabric", err)
		return
	}

	middleware.RespondJSON(w, status, Response{
		Success: true,
		Message: message,
		Data:    fabric,
	})
}

// DeleteFabric handles DELETE /api/fabrics/{id}
func (h *ProductHandler) DeleteFabric(w http.ResponseWriter, r *http.Request) {
	id, ok := fabricID(w, r)
	if !ok {
		return
	}

	if err := h.deleteFabric.Handle(r.Context(), id); err != nil {
		h.respondError(w, r, "delete fabric", err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Fabric deleted successfully",
	})
}

func fabricID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid fabric ID")
		return 0, false
	}
	return uint(id), true
}

// RegisterHealthCheck registers health check endpoint
func (h *ProductHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			middleware.RespondError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}

		middleware.RespondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Catalog service is healthy",
		})
	}).Methods("GET")
}

func (h *ProductHandler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		middleware.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.RespondError(w, http.StatusNotFound, "Not found")
	default:
		logger.Error(r.Context()).Err(err).Str("op", op).Msg("Catalog operation failed")
		middleware.RespondError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}
