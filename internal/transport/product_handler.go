package transport

import (
	"net/http"
	"strconv"

	"farmstand/internal/domain"
	"farmstand/internal/middleware"
	"farmstand/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductResponse is a catalog product plus display-only fields
type ProductResponse struct {
	domain.Product
	DisplayPrice string `json:"display_price"`
	InStock      bool   `json:"in_stock"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		Product:      p,
		DisplayPrice: domain.FormatAmount(p.Price),
		InStock:      p.InStock(),
	}
}

func toProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	return out
}

// ProductHandler serves the read-only catalog
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{id}/products", h.ListCategoryProducts)
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.Search)
		r.Get("/featured", h.Featured)
		r.Get("/{id}", h.GetProduct)
		r.Get("/{id}/related", h.Related)
	})
}

// ListCategories handles GET /api/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.catalog.ListCategories())
}

// ListCategoryProducts handles GET /api/categories/{id}/products
func (h *ProductHandler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.GetProductsByCategory(chi.URLParam(r, "id"))
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// Search handles GET /api/products?q=&category=&sort=
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := h.catalog.SearchAndFilter(q.Get("q"), q.Get("category"), service.SortKey(q.Get("sort")))

	h.logger.Debug("Catalog search",
		zap.String("term", q.Get("q")),
		zap.String("category", q.Get("category")),
		zap.Int("results", len(products)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// Featured handles GET /api/products/featured
func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(h.catalog.GetFeaturedProducts()))
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, ok := h.catalog.GetProductByID(id)
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Related handles GET /api/products/{id}/related?limit=
func (h *ProductHandler) Related(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := h.catalog.GetProductByID(id); !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	limit := service.DefaultRelatedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(h.catalog.GetRelatedProducts(id, limit)))
}
