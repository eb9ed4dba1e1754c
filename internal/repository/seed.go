package repository

import (
	"time"

	"farmstand/internal/domain"

	"github.com/shopspring/decimal"
)

// SeedCategories returns the storefront's static category set
func SeedCategories() []domain.Category {
	return []domain.Category{
		{ID: "vegetables", Name: "Vegetables"},
		{ID: "fruits", Name: "Fruits"},
		{ID: "dairy", Name: "Dairy"},
		{ID: "meat", Name: "Meat"},
		{ID: "bakery", Name: "Bakery"},
		{ID: "beverages", Name: "Beverages"},
	}
}

// SeedProducts returns the catalog loaded at startup
func SeedProducts() []domain.Product {
	return []domain.Product{
		seedProduct("1", "Organic Carrots", "2.99",
			"Fresh, organic carrots grown locally. Perfect for salads, cooking, or snacking.",
			"https://images.unsplash.com/photo-1598170845058-32b9d6a5da37", "2023-01-01T00:00:00Z", "vegetables", true, 50),
		seedProduct("2", "Organic Apples", "3.99",
			"Sweet and crisp organic apples. Great for snacking or baking.",
			"https://images.unsplash.com/photo-1570913149827-d2ac84ab3f9a", "2023-01-02T00:00:00Z", "fruits", true, 75),
		seedProduct("3", "Farm Fresh Milk", "4.50",
			"Fresh, pasteurized whole milk from grass-fed cows.",
			"https://images.unsplash.com/photo-1563636619-e9143da7973b", "2023-01-03T00:00:00Z", "dairy", false, 30),
		seedProduct("4", "Artisan Sourdough Bread", "5.99",
			"Hand-crafted sourdough bread made with organic flour and traditional methods.",
			"https://images.unsplash.com/photo-1555951015-6da899b5c2cd", "2023-01-04T00:00:00Z", "bakery", true, 15),
		seedProduct("5", "Grass-fed Ground Beef", "8.99",
			"Locally raised, grass-fed ground beef. Hormone and antibiotic free.",
			"https://images.unsplash.com/photo-1607623814075-e51df1bdc82f", "2023-01-05T00:00:00Z", "meat", false, 20),
		seedProduct("6", "Organic Strawberries", "4.99",
			"Sweet, juicy organic strawberries picked at peak ripeness.",
			"https://images.unsplash.com/photo-1518635017498-87f514b751ba", "2023-01-06T00:00:00Z", "fruits", true, 40),
		seedProduct("7", "Organic Spinach", "3.49",
			"Fresh, organic spinach. Packed with nutrients and perfect for salads or cooking.",
			"https://images.unsplash.com/photo-1576045057995-568f588f82fb", "2023-01-07T00:00:00Z", "vegetables", false, 35),
		seedProduct("8", "Artisan Cheese Selection", "12.99",
			"A selection of handcrafted artisan cheeses from local dairies.",
			"https://images.unsplash.com/photo-1552767059-ce182ead6c1b", "2023-01-08T00:00:00Z", "dairy", true, 15),
	}
}

func seedProduct(id, name, price, description, image, createdAt, category string, featured bool, stock int) domain.Product {
	created, _ := time.Parse(time.RFC3339, createdAt)
	return domain.Product{
		ID:          id,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Description: description,
		ImageURL:    image,
		CreatedAt:   created,
		CreatedBy:   "admin",
		CategoryID:  category,
		Featured:    featured,
		Stock:       stock,
	}
}
