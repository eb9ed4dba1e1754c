package repository

import (
	"context"
	"slices"
	"sync"

	"farmstand/internal/domain"
)

// CartRepository persists the lines of a single cart
type CartRepository interface {
	Load(ctx context.Context) (domain.CartLines, error)
	Save(ctx context.Context, lines domain.CartLines) error
	// Update applies fn to the stored lines as one atomic read-modify-write
	// against the shared storage. fn may run more than once when the write
	// conflicts with another writer. Nothing is written when fn returns the
	// lines unchanged.
	Update(ctx context.Context, fn func(domain.CartLines) domain.CartLines) error
}

// CartBackend hands out per-cart repositories over one storage
type CartBackend interface {
	ForCart(cartID string) CartRepository
	// PurgeProduct removes productID from every stored cart
	PurgeProduct(ctx context.Context, productID string) error
}

// MemoryCartBackend keeps carts in process memory
type MemoryCartBackend struct {
	mu    sync.Mutex
	carts map[string]domain.CartLines
}

// NewMemoryCartBackend creates an empty in-memory backend
func NewMemoryCartBackend() *MemoryCartBackend {
	return &MemoryCartBackend{carts: make(map[string]domain.CartLines)}
}

func (b *MemoryCartBackend) ForCart(cartID string) CartRepository {
	return &memoryCartRepository{backend: b, cartID: cartID}
}

func (b *MemoryCartBackend) PurgeProduct(_ context.Context, productID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, lines := range b.carts {
		kept := lines.Remove(productID)
		if len(kept) == 0 {
			delete(b.carts, id)
			continue
		}
		b.carts[id] = kept
	}
	return nil
}

type memoryCartRepository struct {
	backend *MemoryCartBackend
	cartID  string
}

func (r *memoryCartRepository) Load(_ context.Context) (domain.CartLines, error) {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	lines := r.backend.carts[r.cartID]
	out := make(domain.CartLines, len(lines))
	copy(out, lines)
	return out, nil
}

func (r *memoryCartRepository) Save(_ context.Context, lines domain.CartLines) error {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	r.store(lines)
	return nil
}

func (r *memoryCartRepository) Update(_ context.Context, fn func(domain.CartLines) domain.CartLines) error {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	current := slices.Clone(r.backend.carts[r.cartID])
	if current == nil {
		current = domain.CartLines{}
	}
	next := fn(slices.Clone(current))
	if !slices.Equal(current, next) {
		r.store(next)
	}
	return nil
}

// store must be called with the backend lock held
func (r *memoryCartRepository) store(lines domain.CartLines) {
	if len(lines) == 0 {
		delete(r.backend.carts, r.cartID)
		return
	}

	r.backend.carts[r.cartID] = slices.Clone(lines)
}
