package repository

import (
	"errors"
	"fmt"
	"testing"

	"farmstand/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func productIDs(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestProductRepository_CRUD(t *testing.T) {
	repo := NewProductRepository(SeedProducts())

	if got := len(repo.List()); got != 8 {
		t.Fatalf("expected 8 seeded products, got %d", got)
	}

	created := domain.Product{ID: "9", Name: "Raw Honey", Price: decimal.RequireFromString("9.50"), CategoryID: "beverages"}
	if err := repo.Create(created); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(created); !errors.Is(err, ErrProductAlreadyExists) {
		t.Errorf("expected ErrProductAlreadyExists, got %v", err)
	}

	created.Name = "Wildflower Honey"
	if err := repo.Update(created); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, ok := repo.FindByID("9")
	if !ok || got.Name != "Wildflower Honey" {
		t.Errorf("expected updated product, got %+v", got)
	}

	if err := repo.Update(domain.Product{ID: "missing"}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound on update, got %v", err)
	}
	if err := repo.Delete("missing"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound on delete, got %v", err)
	}

	if err := repo.Delete("4"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := repo.FindByID("4"); ok {
		t.Error("deleted product still resolvable")
	}
}

func TestProductRepository_SeedIsCopied(t *testing.T) {
	seed := SeedProducts()
	repo := NewProductRepository(seed)

	seed[0].Name = "mutated"
	listed := repo.List()
	listed[1].Name = "mutated too"

	if p, _ := repo.FindByID("1"); p.Name != "Organic Carrots" {
		t.Error("repository must not alias the seed slice")
	}
	if p, _ := repo.FindByID("2"); p.Name != "Organic Apples" {
		t.Error("List must return a snapshot")
	}
}

func TestProperty_DeletePreservesRelativeOrder(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("remaining products keep insertion order", prop.ForAll(
		func(size int, victim int) bool {
			seed := make([]domain.Product, size)
			for i := range seed {
				seed[i] = domain.Product{ID: fmt.Sprintf("p%d", i)}
			}
			repo := NewProductRepository(seed)

			target := fmt.Sprintf("p%d", victim%size)
			if err := repo.Delete(target); err != nil {
				return false
			}

			var want []string
			for _, p := range seed {
				if p.ID != target {
					want = append(want, p.ID)
				}
			}

			got := productIDs(repo.List())
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCategoryRepository(t *testing.T) {
	repo := NewCategoryRepository(SeedCategories())

	if got := len(repo.List()); got != 6 {
		t.Errorf("expected 6 categories, got %d", got)
	}
	if c, ok := repo.FindByID("dairy"); !ok || c.Name != "Dairy" {
		t.Errorf("expected dairy category, got %+v", c)
	}
	if _, ok := repo.FindByID("Dairy"); ok {
		t.Error("category ids are case-sensitive")
	}
}
