package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"farmstand/internal/repository"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// ErrInvalidCartID is returned when a cart identifier is unusable. Open only
// rejects blank identifiers; the HTTP layer maps malformed ones to the same
// error before a session is opened.
var ErrInvalidCartID = errors.New("invalid cart id")

const (
	DefaultMaxOpenCarts = 10000
	DefaultCartIdleTTL  = 30 * time.Minute
)

// SessionLimits bounds the registry of open stores. Zero values use the defaults.
type SessionLimits struct {
	MaxOpen int
	IdleTTL time.Duration
}

// CartSessions hands out one CartStore per cart identifier while the cart is
// in use. Stores idle past IdleTTL, or beyond MaxOpen, are dropped; the cart
// itself stays in the backend and the next Open starts a fresh store.
type CartSessions struct {
	mu      sync.Mutex
	backend repository.CartBackend
	catalog ProductResolver
	logger  *zap.Logger
	stores  *expirable.LRU[string, *CartStore]
}

// NewCartSessions creates a session registry over backend
func NewCartSessions(backend repository.CartBackend, catalog ProductResolver, logger *zap.Logger, limits SessionLimits) *CartSessions {
	if limits.MaxOpen <= 0 {
		limits.MaxOpen = DefaultMaxOpenCarts
	}
	if limits.IdleTTL <= 0 {
		limits.IdleTTL = DefaultCartIdleTTL
	}

	return &CartSessions{
		backend: backend,
		catalog: catalog,
		logger:  logger,
		stores:  expirable.NewLRU[string, *CartStore](limits.MaxOpen, nil, limits.IdleTTL),
	}
}

// Open returns the store for cartID. Opening a cart that has no live store
// reconciles the stored lines against the catalog.
func (s *CartSessions) Open(ctx context.Context, cartID string) (*CartStore, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, ErrInvalidCartID
	}

	s.mu.Lock()
	store, ok := s.stores.Get(cartID)
	if !ok {
		store = NewCartStore(s.backend.ForCart(cartID), s.catalog, s.logger.With(zap.String("cart_id", cartID)))
	}
	// re-adding refreshes the idle deadline
	s.stores.Add(cartID, store)
	s.mu.Unlock()

	if !ok {
		dropped, err := store.Reconcile(ctx)
		if err != nil {
			s.logger.Warn("Cart reconciliation failed", zap.String("cart_id", cartID), zap.Error(err))
		} else if dropped > 0 {
			s.logger.Info("Dropped stale cart lines", zap.String("cart_id", cartID), zap.Int("count", dropped))
		}
	}

	return store, nil
}

// OnProductDeleted removes productID from every open cart, then from every
// cart still only in storage
func (s *CartSessions) OnProductDeleted(ctx context.Context, productID string) error {
	stores := s.stores.Values()

	var errs []error
	for _, store := range stores {
		if err := store.OnProductDeleted(ctx, productID); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.backend.PurgeProduct(ctx, productID); err != nil {
		errs = append(errs, fmt.Errorf("failed to purge product: %w", err))
	}

	return errors.Join(errs...)
}

// Len reports how many carts currently have a live store
func (s *CartSessions) Len() int {
	return s.stores.Len()
}
