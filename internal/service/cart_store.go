package service

import (
	"context"
	"fmt"
	"sync"

	"farmstand/internal/domain"
	"farmstand/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductResolver resolves cart product references against the catalog
type ProductResolver interface {
	GetProductByID(id string) (domain.Product, bool)
}

// CartView is a consistent read of one cart
type CartView struct {
	Items []domain.CartItem
	Count int
	Total decimal.Decimal
}

// CartStore owns one cart's lines. Every operation goes to the repository,
// so the store holds no line state of its own. Mutations are atomic
// read-modify-write cycles in the repository, which keeps them serialized
// across every process sharing the storage; the mutex only spares
// in-process callers from contending on it.
//
// Cart operations never fail for domain reasons: absent lines, unresolvable
// products and non-positive quantities are normalized silently. The only
// errors returned come from the repository.
type CartStore struct {
	mu      sync.Mutex
	repo    repository.CartRepository
	catalog ProductResolver
	logger  *zap.Logger
}

// NewCartStore creates a CartStore over repo, resolving products through catalog
func NewCartStore(repo repository.CartRepository, catalog ProductResolver, logger *zap.Logger) *CartStore {
	return &CartStore{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
	}
}

// AddToCart increments the product's line by quantity, creating it when
// absent. Product existence is not checked here; reads resolve lazily.
func (s *CartStore) AddToCart(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	return s.mutate(ctx, func(lines domain.CartLines) domain.CartLines {
		return lines.Add(productID, quantity)
	})
}

// UpdateQuantity sets an existing line's quantity; quantity <= 0 removes it.
// Updating an absent line does nothing.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	return s.mutate(ctx, func(lines domain.CartLines) domain.CartLines {
		return lines.SetQuantity(productID, quantity)
	})
}

// RemoveFromCart deletes the product's line if present
func (s *CartStore) RemoveFromCart(ctx context.Context, productID string) error {
	return s.mutate(ctx, func(lines domain.CartLines) domain.CartLines {
		return lines.Remove(productID)
	})
}

// ClearCart deletes every line
func (s *CartStore) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, func(domain.CartLines) domain.CartLines {
		return domain.CartLines{}
	})
}

// OnProductDeleted removes any line referencing productID
func (s *CartStore) OnProductDeleted(ctx context.Context, productID string) error {
	return s.RemoveFromCart(ctx, productID)
}

// Reconcile drops lines whose product no longer resolves and reports how many
func (s *CartStore) Reconcile(ctx context.Context) (int, error) {
	dropped := 0
	err := s.mutate(ctx, func(lines domain.CartLines) domain.CartLines {
		kept := lines.Filter(func(line domain.CartLine) bool {
			_, ok := s.catalog.GetProductByID(line.ProductID)
			return ok
		})
		dropped = len(lines) - len(kept)
		return kept
	})
	return dropped, err
}

// GetCartItems joins each line with its product. Lines whose product cannot
// be resolved are left out.
func (s *CartStore) GetCartItems(ctx context.Context) ([]domain.CartItem, error) {
	lines, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.materialize(lines), nil
}

// GetCartTotal sums price × quantity over the resolved items at full precision
func (s *CartStore) GetCartTotal(ctx context.Context) (decimal.Decimal, error) {
	items, err := s.GetCartItems(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return total(items), nil
}

// GetCartCount sums the quantities of the resolved items
func (s *CartStore) GetCartCount(ctx context.Context) (int, error) {
	items, err := s.GetCartItems(ctx)
	if err != nil {
		return 0, err
	}
	return count(items), nil
}

// View reads items, count and total from a single load
func (s *CartStore) View(ctx context.Context) (CartView, error) {
	items, err := s.GetCartItems(ctx)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Items: items, Count: count(items), Total: total(items)}, nil
}

func (s *CartStore) load(ctx context.Context) (domain.CartLines, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return lines, nil
}

func (s *CartStore) mutate(ctx context.Context, fn func(domain.CartLines) domain.CartLines) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Update(ctx, fn); err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	return nil
}

func (s *CartStore) materialize(lines domain.CartLines) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(lines))
	for _, line := range lines {
		product, ok := s.catalog.GetProductByID(line.ProductID)
		if !ok {
			s.logger.Debug("Skipping cart line for unknown product", zap.String("product_id", line.ProductID))
			continue
		}
		items = append(items, domain.CartItem{Product: product, Quantity: line.Quantity})
	}
	return items
}

func total(items []domain.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

func count(items []domain.CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
