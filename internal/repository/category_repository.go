package repository

import (
	"farmstand/internal/domain"
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	List() []domain.Category
	FindByID(id string) (domain.Category, bool)
}

type categoryRepository struct {
	categories []domain.Category
}

// NewCategoryRepository creates a read-only CategoryRepository over a static set
func NewCategoryRepository(categories []domain.Category) CategoryRepository {
	out := make([]domain.Category, len(categories))
	copy(out, categories)
	return &categoryRepository{categories: out}
}

// List retrieves all categories in seed order
func (r *categoryRepository) List() []domain.Category {
	out := make([]domain.Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// FindByID retrieves a category by ID
func (r *categoryRepository) FindByID(id string) (domain.Category, bool) {
	for _, c := range r.categories {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Category{}, false
}
