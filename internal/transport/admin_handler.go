package transport

import (
	"encoding/json"
	"net/http"

	"farmstand/internal/middleware"
	"farmstand/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxProductBodyBytes = 64 << 10

// AdminHandler handles catalog mutations for administrators
type AdminHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(catalog service.CatalogService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers the admin routes behind the given middleware chain
func (h *AdminHandler) RegisterRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.Route("/api/admin/products", func(r chi.Router) {
		r.Use(guards...)
		r.Post("/", h.CreateProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
}

// CreateProduct handles POST /api/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	createdBy, _ := middleware.GetUserID(r.Context())

	product, err := h.catalog.CreateProduct(r.Context(), input, createdBy)
	if err != nil {
		h.logger.Debug("Product creation rejected", zap.Error(err))
		respondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(product))
}

// UpdateProduct handles PUT /api/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.logger.Debug("Product update rejected", zap.Error(err))
		respondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// DeleteProduct handles DELETE /api/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) decodeInput(w http.ResponseWriter, r *http.Request) (service.ProductInput, bool) {
	var input service.ProductInput

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProductBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		h.logger.Debug("Invalid product payload", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return input, false
	}
	return input, true
}
