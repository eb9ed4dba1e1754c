package repository

import (
	"errors"
	"sync"

	"farmstand/internal/domain"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this id already exists")
)

// ProductRepository defines the interface for product data access.
// List preserves insertion order; Update keeps a product's position.
type ProductRepository interface {
	Create(product domain.Product) error
	Update(product domain.Product) error
	Delete(id string) error
	FindByID(id string) (domain.Product, bool)
	List() []domain.Product
}

type productRepository struct {
	mu       sync.RWMutex
	products []domain.Product
}

// NewProductRepository creates an in-memory ProductRepository holding a copy of seed
func NewProductRepository(seed []domain.Product) ProductRepository {
	products := make([]domain.Product, len(seed))
	copy(products, seed)
	return &productRepository{products: products}
}

// Create appends a product to the end of the collection
func (r *productRepository) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(product.ID) >= 0 {
		return ErrProductAlreadyExists
	}

	r.products = append(r.products, product)
	return nil
}

// Update replaces an existing product in place
func (r *productRepository) Update(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(product.ID)
	if idx < 0 {
		return ErrProductNotFound
	}

	r.products[idx] = product
	return nil
}

// Delete removes a product, preserving the order of the remaining ones
func (r *productRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return ErrProductNotFound
	}

	r.products = append(r.products[:idx:idx], r.products[idx+1:]...)
	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(id string) (domain.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return domain.Product{}, false
	}
	return r.products[idx], true
}

// List returns a snapshot of all products in insertion order
func (r *productRepository) List() []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, len(r.products))
	copy(out, r.products)
	return out
}

func (r *productRepository) indexOf(id string) int {
	for i := range r.products {
		if r.products[i].ID == id {
			return i
		}
	}
	return -1
}
