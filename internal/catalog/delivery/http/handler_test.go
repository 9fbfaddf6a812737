package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/tair/storefront/internal/catalog/repository"
	"github.com/tair/storefront/internal/catalog/usecase/command"
	"github.com/tair/storefront/internal/catalog/usecase/query"
	"github.com/tair/storefront/internal/storefront/remote"
	"github.com/tair/storefront/pkg/auth"
	"github.com/tair/storefront/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Nop()
	m.Run()
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	repo := repository.NewMemoryRepository()
	fabrics := repo.Fabrics()

	h := NewProductHandler(
		command.NewCreateProductHandler(repo, fabrics),
		command.NewUpdateProductHandler(repo, fabrics),
		command.NewDeleteProductHandler(repo),
		command.NewImportProductsHandler(repo),
		command.NewSaveFabricHandler(fabrics),
		command.NewDeleteFabricHandler(fabrics),
		query.NewGetProductHandler(repo),
		query.NewListProductsHandler(repo),
		query.NewGetStatsHandler(repo),
		query.NewListFabricsHandler(fabrics),
		query.NewGetFabricHandler(fabrics),
	)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.GenerateToken(1, "root", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func do(t *testing.T, router http.Handler, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
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

func int64p(v int64) *int64 { return &v }

func TestCreateProductRequiresAdmin(t *testing.T) {
	router := newTestRouter(t)
	userTok, _ := auth.GenerateToken(5, "shopper", auth.RoleUser)
	req := productRequest{ID: "p-1", Name: "Shirt", PriceCents: 1000, Category: "men"}

	tests := []struct {
		name string
		tok  string
		want int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"shopper", userTok, http.StatusForbidden},
		{"admin", adminToken(t), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, router, http.MethodPost, "/api/products", tt.tok, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateProductValidation(t *testing.T) {
	router := newTestRouter(t)
	tok := adminToken(t)
	do(t, router, http.MethodPost, "/api/products", tok, productRequest{ID: "taken", Name: "Shirt", Category: "men"})

	tests := []struct {
		name string
		req  productRequest
		want int
	}{
		{"unknown category", productRequest{Name: "Boot", Category: "shoes"}, http.StatusBadRequest},
		{"negative price", productRequest{Name: "Boot", Category: "men", PriceCents: -5}, http.StatusBadRequest},
		{"original below price", productRequest{Name: "Boot", Category: "men", PriceCents: 500, OriginalPriceCents: int64p(400)}, http.StatusBadRequest},
		{"missing fabric", productRequest{Name: "Boot", Category: "men", FabricID: new(uint)}, http.StatusBadRequest},
		{"duplicate id", productRequest{ID: "taken", Name: "Boot", Category: "men"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, router, http.MethodPost, "/api/products", tok, tt.req)
			if rec.Code != tt.want || resp.Success {
				t.Fatalf("status = %d success = %v, want %d", rec.Code, resp.Success, tt.want)
			}
		})
	}
}

func TestListProductsFiltersAndHidesInactive(t *testing.T) {
	router := newTestRouter(t)
	tok := adminToken(t)
	hidden := false
	for _, req := range []productRequest{
		{ID: "w-1", Name: "Dress", PriceCents: 5000, Category: "women"},
		{ID: "w-2", Name: "Skirt", PriceCents: 3000, Category: "women"},
		{ID: "m-1", Name: "Shirt", PriceCents: 2000, Category: "men"},
		{ID: "w-3", Name: "Old Coat", PriceCents: 9000, Category: "women", IsActive: &hidden},
	} {
		if rec, _ := do(t, router, http.MethodPost, "/api/products", tok, req); rec.Code != http.StatusCreated {
			t.Fatalf("create %s: status %d", req.ID, rec.Code)
		}
	}

	_, resp := do(t, router, http.MethodGet, "/api/products?category=women&limit=1", "", nil)
	var page query.ProductPage
	decode(t, resp.Data, &page)
	if page.Total != 2 || len(page.Products) != 1 || page.Products[0].ID != "w-2" {
		t.Fatalf("page = %+v, want newest active women product of 2", page)
	}

	_, resp = do(t, router, http.MethodGet, "/api/products?category=women&include_inactive=true", "", nil)
	decode(t, resp.Data, &page)
	if page.Total != 2 {
		t.Fatalf("anonymous include_inactive total = %d, want 2", page.Total)
	}

	_, resp = do(t, router, http.MethodGet, "/api/products?category=women&include_inactive=true", tok, nil)
	decode(t, resp.Data, &page)
	if page.Total != 3 {
		t.Fatalf("admin include_inactive total = %d, want 3", page.Total)
	}

	if rec, _ := do(t, router, http.MethodGet, "/api/products?category=shoes", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown category status = %d, want 400", rec.Code)
	}
	if rec, _ := do(t, router, http.MethodGet, "/api/products/w-3", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("inactive product status = %d, want 404", rec.Code)
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	router := newTestRouter(t)
	tok := adminToken(t)
	do(t, router, http.MethodPost, "/api/products", tok, productRequest{ID: "p-1", Name: "Shirt", PriceCents: 1000, Category: "men"})

	rec, resp := do(t, router, http.MethodPut, "/api/products/p-1", tok,
		productRequest{Name: "Linen Shirt", PriceCents: 800, OriginalPriceCents: int64p(1000), Category: "unisex"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	decode(t, resp.Data, &updated)
	if updated.Name != "Linen Shirt" || updated.Category != "unisex" {
		t.Fatalf("updated = %+v", updated)
	}

	if rec, _ := do(t, router, http.MethodPut, "/api/products/nope", tok, productRequest{Name: "x", Category: "men"}); rec.Code != http.StatusNotFound {
		t.Fatalf("PUT missing status = %d, want 404", rec.Code)
	}

	if rec, _ := do(t, router, http.MethodDelete, "/api/products/p-1", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if rec, _ := do(t, router, http.MethodDelete, "/api/products/p-1", tok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second DELETE status = %d, want 404", rec.Code)
	}
}

func TestStatsAndCategories(t *testing.T) {
	router := newTestRouter(t)
	tok := adminToken(t)
	do(t, router, http.MethodPost, "/api/products", tok, productRequest{Name: "Dress", PriceCents: 5000, OriginalPriceCents: int64p(7000), Category: "women"})
	do(t, router, http.MethodPost, "/api/products", tok, productRequest{Name: "Blouse", PriceCents: 2500, Category: "women"})
	do(t, router, http.MethodPost, "/api/products", tok, productRequest{Name: "Cotton", PriceCents: 900, Category: "fabrics"})

	_, resp := do(t, router, http.MethodGet, "/api/products/stats", "", nil)
	var stats query.CatalogStats
	decode(t, resp.Data, &stats)
	if stats.TotalProducts != 3 || stats.OnSale != 1 {
		t.Fatalf("stats = %+v, want 3 products, 1 on sale", stats)
	}
	if len(stats.Categories) != 5 {
		t.Fatalf("len(categories) = %d, want every department", len(stats.Categories))
	}
	women := stats.Categories[0]
	if women.Category != "women" || women.MinPriceCents != 2500 || women.MaxPriceCents != 5000 {
		t.Fatalf("women = %+v", women)
	}

	_, resp = do(t, router, http.MethodGet, "/api/categories", "", nil)
	var cats []categoryResponse
	decode(t, resp.Data, &cats)
	if len(cats) != 5 || cats[0].Name != "women" || cats[0].ProductCount != 2 || cats[1].ProductCount != 0 {
		t.Fatalf("categories = %+v", cats)
	}
}

func TestFabrics(t *testing.T) {
	router := newTestRouter(t)
	tok := adminToken(t)

	rec, resp := do(t, router, http.MethodPost, "/api/fabrics", tok, fabricRequest{Name: "Linen", Composition: "100% flax"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST fabric status = %d", rec.Code)
	}
	var linen struct {
		ID uint `json:"id"`
	}
	decode(t, resp.Data, &linen)

	if rec, _ := do(t, router, http.MethodPost, "/api/fabrics", tok, fabricRequest{Name: "linen"}); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate fabric status = %d, want 409", rec.Code)
	}

	fid := linen.ID
	rec, _ = do(t, router, http.MethodPost, "/api/products", tok, productRequest{ID: "p-1", Name: "Shirt", Category: "men", FabricID: &fid})
	if rec.Code != http.StatusCreated {
		t.Fatalf("product with fabric status = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec, _ := do(t, router, http.MethodDelete, "/api/fabrics/1", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("DELETE fabric status = %d", rec.Code)
	}
	_, resp = do(t, router, http.MethodGet, "/api/products/p-1", "", nil)
	var p struct {
		FabricID *uint `json:"fabric_id"`
	}
	decode(t, resp.Data, &p)
	if p.FabricID != nil {
		t.Fatalf("fabric_id = %v after fabric delete, want unset", *p.FabricID)
	}

	if rec, _ := do(t, router, http.MethodGet, "/api/fabrics/abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad fabric id status = %d, want 400", rec.Code)
	}
}

func TestImportLegacyRecords(t *testing.T) {
	router := newTestRouter(t)
	tok := adminToken(t)

	seed := `[
		{"id": "a", "name": "Wrap Dress", "price": "$1,299.00", "originalPrice": "1500", "category": "Women"},
		{"id": "b", "name": "Tee", "price": 19.5, "category": "men", "sizes": [" S ", "M"]},
		{"id": "c", "name": "Broken", "price": "call us", "category": "men"},
		{"id": "d", "name": "No Price", "category": "kids"},
		{"id": "e", "name": "Boot", "price": 10, "category": "shoes"}
	]`
	rec, resp := do(t, router, http.MethodPost, "/api/products/import", tok, seed)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result command.ImportResult
	decode(t, resp.Data, &result)
	if result.Imported != 2 || result.Skipped != 3 || len(result.Errors) != 3 {
		t.Fatalf("result = %+v, want 2 imported 3 skipped", result)
	}

	_, resp = do(t, router, http.MethodGet, "/api/products/a", "", nil)
	var a struct {
		PriceCents         int64  `json:"price_cents"`
		OriginalPriceCents *int64 `json:"original_price_cents"`
		Category           string `json:"category"`
	}
	decode(t, resp.Data, &a)
	if a.PriceCents != 129900 || a.OriginalPriceCents == nil || *a.OriginalPriceCents != 150000 || a.Category != "women" {
		t.Fatalf("product a = %+v", a)
	}

	if rec, _ := do(t, router, http.MethodPost, "/api/products/import", tok, `{"not": "an array"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-array import status = %d, want 400", rec.Code)
	}
}

// The storefront reads products through remote.Catalog; both sides must
// agree on the wire shape.
func TestRemoteCatalogReadsProducts(t *testing.T) {
	router := newTestRouter(t)
	tok := adminToken(t)
	do(t, router, http.MethodPost, "/api/products", tok, productRequest{
		ID: "p-9", Name: "Silk Scarf", PriceCents: 4500, OriginalPriceCents: int64p(6000),
		Images: []string{"s.jpg"}, Category: "unisex", Colors: []string{"red"},
	})

	srv := httptest.NewServer(router)
	defer srv.Close()

	catalog := remote.NewCatalog(srv.URL)
	p, err := catalog.GetProduct(context.Background(), "p-9")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Name != "Silk Scarf" || int64(p.Price) != 4500 || p.OriginalPrice == nil || int64(*p.OriginalPrice) != 6000 {
		t.Fatalf("product = %+v", p)
	}
	if strings.Join(p.Colors, ",") != "red" || p.Category != "unisex" {
		t.Fatalf("product = %+v", p)
	}

	if _, err := catalog.GetProduct(context.Background(), "missing"); !errors.Is(err, remote.ErrProductNotFound) {
		t.Fatalf("GetProduct(missing) = %v, want ErrProductNotFound", err)
	}
}
