package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel every NotFoundError unwraps to
var ErrNotFound = errors.New("not found")

// NotFoundError reports a lookup by id that found nothing, where the caller
// must be told (admin edits and deletes)
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Validation rules, in the order they are checked
const (
	RuleNameRequired        = "name_required"
	RulePricePositive       = "price_positive"
	RuleDescriptionRequired = "description_required"
	RuleImageRequired       = "image_required"
	RuleCategoryExists      = "category_exists"
	RuleStockNonNegative    = "stock_non_negative"
)

// ValidationError names the first rule a product input violated
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}
