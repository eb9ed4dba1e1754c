package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"farmstand/internal/domain"
	"farmstand/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AllCategories is the category filter value that disables category filtering
const AllCategories = "all"

// DefaultRelatedLimit is how many related products the product page shows
const DefaultRelatedLimit = 4

// SortKey selects the ordering of SearchAndFilter results
type SortKey string

const (
	SortDefault   SortKey = "default"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
)

// ProductDeletionListener is notified after a product leaves the catalog
type ProductDeletionListener interface {
	OnProductDeleted(ctx context.Context, productID string) error
}

// CatalogService defines the interface for catalog queries and admin mutations
type CatalogService interface {
	GetProductByID(id string) (domain.Product, bool)
	GetProductsByCategory(categoryID string) []domain.Product
	GetFeaturedProducts() []domain.Product
	SearchAndFilter(term, categoryID string, sortKey SortKey) []domain.Product
	GetRelatedProducts(id string, limit int) []domain.Product
	ListProducts() []domain.Product
	ListCategories() []domain.Category

	CreateProduct(ctx context.Context, input ProductInput, createdBy string) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, input ProductInput) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	AddDeletionListener(l ProductDeletionListener)
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	validator  *productValidator
	logger     *zap.Logger

	// serializes admin writes
	writeMu sync.Mutex

	listenerMu sync.RWMutex
	listeners  []ProductDeletionListener

	now   func() time.Time
	newID func() string
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		products:   products,
		categories: categories,
		validator:  newProductValidator(categories),
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// GetProductByID returns the product, or false when the id is unknown
func (s *catalogService) GetProductByID(id string) (domain.Product, bool) {
	return s.products.FindByID(id)
}

// GetProductsByCategory returns the category's products in catalog order
func (s *catalogService) GetProductsByCategory(categoryID string) []domain.Product {
	return filterProducts(s.products.List(), func(p domain.Product) bool {
		return p.CategoryID == categoryID
	})
}

// GetFeaturedProducts returns featured products in catalog order
func (s *catalogService) GetFeaturedProducts() []domain.Product {
	return filterProducts(s.products.List(), func(p domain.Product) bool {
		return p.Featured
	})
}

// SearchAndFilter applies the category filter, then the term match, then a stable sort
func (s *catalogService) SearchAndFilter(term, categoryID string, sortKey SortKey) []domain.Product {
	result := s.products.List()

	if categoryID != "" && categoryID != AllCategories {
		result = filterProducts(result, func(p domain.Product) bool {
			return p.CategoryID == categoryID
		})
	}

	if term != "" {
		needle := strings.ToLower(term)
		result = filterProducts(result, func(p domain.Product) bool {
			return strings.Contains(strings.ToLower(p.Name), needle) ||
				strings.Contains(strings.ToLower(p.Description), needle)
		})
	}

	sortProducts(result, sortKey)
	return result
}

// GetRelatedProducts returns up to limit other products from the same category
func (s *catalogService) GetRelatedProducts(id string, limit int) []domain.Product {
	product, ok := s.products.FindByID(id)
	if !ok {
		return []domain.Product{}
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	related := filterProducts(s.products.List(), func(p domain.Product) bool {
		return p.CategoryID == product.CategoryID && p.ID != product.ID
	})
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

func (s *catalogService) ListProducts() []domain.Product {
	return s.products.List()
}

func (s *catalogService) ListCategories() []domain.Category {
	return s.categories.List()
}

// CreateProduct validates the input and appends a new product
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput, createdBy string) (domain.Product, error) {
	if err := s.validator.Check(input); err != nil {
		return domain.Product{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	product := domain.Product{
		ID:        s.newID(),
		CreatedAt: s.now().UTC(),
		CreatedBy: createdBy,
	}
	applyInput(&product, input)

	if err := s.products.Create(product); err != nil {
		return domain.Product{}, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("category", product.CategoryID),
	)
	return product, nil
}

// UpdateProduct replaces the editable fields of an existing product
func (s *catalogService) UpdateProduct(ctx context.Context, id string, input ProductInput) (domain.Product, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	product, ok := s.products.FindByID(id)
	if !ok {
		return domain.Product{}, &NotFoundError{Resource: "product", ID: id}
	}

	if err := s.validator.Check(input); err != nil {
		return domain.Product{}, err
	}

	applyInput(&product, input)

	if err := s.products.Update(product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return domain.Product{}, &NotFoundError{Resource: "product", ID: id}
		}
		return domain.Product{}, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info("Product updated", zap.String("product_id", id))
	return product, nil
}

// DeleteProduct removes a product and notifies deletion listeners so no cart
// keeps a line for it
func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	s.writeMu.Lock()
	err := s.products.Delete(id)
	s.writeMu.Unlock()

	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return &NotFoundError{Resource: "product", ID: id}
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))

	s.listenerMu.RLock()
	listeners := append([]ProductDeletionListener(nil), s.listeners...)
	s.listenerMu.RUnlock()

	// Cart reads already skip unresolvable lines, so a failed cleanup is logged
	// rather than undoing the delete.
	for _, l := range listeners {
		if err := l.OnProductDeleted(ctx, id); err != nil {
			s.logger.Error("Failed to remove deleted product from carts",
				zap.String("product_id", id),
				zap.Error(err),
			)
		}
	}

	return nil
}

// AddDeletionListener registers l for every subsequent DeleteProduct
func (s *catalogService) AddDeletionListener(l ProductDeletionListener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func applyInput(p *domain.Product, input ProductInput) {
	p.Name = strings.TrimSpace(input.Name)
	p.Price = decimal.NewFromFloat(input.Price)
	p.Description = strings.TrimSpace(input.Description)
	p.ImageURL = strings.TrimSpace(input.ImageURL)
	p.CategoryID = input.CategoryID
	p.Featured = input.Featured
	p.Stock = input.Stock
}

func filterProducts(products []domain.Product, keep func(domain.Product) bool) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func sortProducts(products []domain.Product, key SortKey) {
	var less func(a, b domain.Product) bool

	switch key {
	case SortPriceAsc:
		less = func(a, b domain.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b domain.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortNameAsc:
		less = func(a, b domain.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortNameDesc:
		less = func(a, b domain.Product) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	default:
		return
	}

	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}
