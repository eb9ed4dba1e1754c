package transport

import (
	"errors"
	"net/http"
	"time"

	"farmstand/internal/domain"
	"farmstand/internal/middleware"
	"farmstand/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartCookieName is the cookie that carries the cart session for browsers
const CartCookieName = "cart_id"

const cartCookieMaxAge = 7 * 24 * time.Hour

// errOutOfStock rejects adding a product whose stock is zero
var errOutOfStock = errors.New("product is out of stock")

// AddItemRequest represents the add-to-cart payload. A missing quantity adds one unit.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=99"`
}

// UpdateItemRequest represents the set-quantity payload. Zero or less removes the line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"lte=99"`
}

// CartItemResponse is one materialized cart line
type CartItemResponse struct {
	Product  ProductResponse `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal string          `json:"subtotal"`
}

// CartResponse is the cart view returned by every cart endpoint
type CartResponse struct {
	CartID string             `json:"cart_id"`
	Items  []CartItemResponse `json:"items"`
	Count  int                `json:"count"`
	Total  string             `json:"total"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	sessions     *service.CartSessions
	catalog      service.ProductResolver
	metrics      *middleware.Metrics
	logger       *zap.Logger
	secureCookie bool
}

// NewCartHandler creates a new CartHandler. metrics may be nil.
func NewCartHandler(
	sessions *service.CartSessions,
	catalog service.ProductResolver,
	metrics *middleware.Metrics,
	logger *zap.Logger,
	secureCookie bool,
) *CartHandler {
	return &CartHandler{
		sessions:     sessions,
		catalog:      catalog,
		metrics:      metrics,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

// RegisterRoutes registers all cart routes. Mutations run behind limiter when
// it is non-nil.
func (h *CartHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)

		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter)
			}
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productID}", h.UpdateItem)
			r.Delete("/items/{productID}", h.RemoveItem)
		})
	})
}

// CartClientKey keys rate limiting by cart session, falling back to the remote address
func CartClientKey(r *http.Request) string {
	if id := requestCartID(r); id != "" {
		return "cart:" + id
	}
	return middleware.RemoteClientKey(r)
}

// GetCart handles GET /api/cart. A request without a cart session gets a new
// identifier and an empty cart; no store is opened until the first mutation.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	if requestCartID(r) == "" {
		cartID := h.issueCartID(w)
		middleware.RespondWithJSON(w, http.StatusOK, CartResponse{
			CartID: cartID,
			Items:  []CartItemResponse{},
			Total:  domain.FormatAmount(decimal.Zero),
		})
		return
	}

	cartID, store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	h.respondWithView(w, r, cartID, store)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, ok := h.catalog.GetProductByID(req.ProductID)
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}
	if !product.InStock() {
		respondWithServiceError(w, errOutOfStock, h.logger)
		return
	}

	cartID, store, ok := h.openCart(w, r)
	if !ok {
		return
	}

	if err := store.AddToCart(r.Context(), req.ProductID, req.Quantity); err != nil {
		respondWithServiceError(w, err, h.logger)
		return
	}
	h.metrics.CartOperation("add")

	h.respondWithView(w, r, cartID, store)
}

// UpdateItem handles PUT /api/cart/items/{productID}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	cartID, store, ok := h.openCart(w, r)
	if !ok {
		return
	}

	if err := store.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), req.Quantity); err != nil {
		respondWithServiceError(w, err, h.logger)
		return
	}
	h.metrics.CartOperation("update")

	h.respondWithView(w, r, cartID, store)
}

// RemoveItem handles DELETE /api/cart/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, store, ok := h.openCart(w, r)
	if !ok {
		return
	}

	if err := store.RemoveFromCart(r.Context(), chi.URLParam(r, "productID")); err != nil {
		respondWithServiceError(w, err, h.logger)
		return
	}
	h.metrics.CartOperation("remove")

	h.respondWithView(w, r, cartID, store)
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cartID, store, ok := h.openCart(w, r)
	if !ok {
		return
	}

	if err := store.ClearCart(r.Context()); err != nil {
		respondWithServiceError(w, err, h.logger)
		return
	}
	h.metrics.CartOperation("clear")

	h.respondWithView(w, r, cartID, store)
}

func (h *CartHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		h.logger.Debug("Cart request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func requestCartID(r *http.Request) string {
	if id := r.Header.Get(middleware.CartIDHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(CartCookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h *CartHandler) issueCartID(w http.ResponseWriter) string {
	cartID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    cartID,
		Path:     "/",
		MaxAge:   int(cartCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(middleware.CartIDHeader, cartID)
	h.logger.Debug("Issued new cart session", zap.String("cart_id", cartID))
	return cartID
}

// openCart resolves the caller's cart session, issuing a new one when the
// request carries none
func (h *CartHandler) openCart(w http.ResponseWriter, r *http.Request) (string, *service.CartStore, bool) {
	cartID := requestCartID(r)
	if cartID == "" {
		cartID = h.issueCartID(w)
	} else if _, err := uuid.Parse(cartID); err != nil {
		respondWithServiceError(w, service.ErrInvalidCartID, h.logger)
		return "", nil, false
	} else {
		w.Header().Set(middleware.CartIDHeader, cartID)
	}

	store, err := h.sessions.Open(r.Context(), cartID)
	if err != nil {
		respondWithServiceError(w, err, h.logger)
		return "", nil, false
	}
	return cartID, store, true
}

func (h *CartHandler) respondWithView(w http.ResponseWriter, r *http.Request, cartID string, store *service.CartStore) {
	view, err := store.View(r.Context())
	if err != nil {
		respondWithServiceError(w, err, h.logger)
		return
	}

	items := make([]CartItemResponse, len(view.Items))
	for i, item := range view.Items {
		items[i] = CartItemResponse{
			Product:  toProductResponse(item.Product),
			Quantity: item.Quantity,
			Subtotal: domain.FormatAmount(item.Subtotal()),
		}
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{
		CartID: cartID,
		Items:  items,
		Count:  view.Count,
		Total:  domain.FormatAmount(view.Total),
	})
}
