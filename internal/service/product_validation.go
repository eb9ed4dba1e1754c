package service

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"farmstand/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ProductInput carries the admin-editable product fields. Field order is the
// order validation rules are checked in.
type ProductInput struct {
	Name        string  `json:"name" validate:"notblank"`
	Price       float64 `json:"price" validate:"finite,gt=0"`
	Description string  `json:"description" validate:"notblank"`
	ImageURL    string  `json:"image_url" validate:"notblank"`
	CategoryID  string  `json:"category" validate:"category"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Featured    bool    `json:"is_featured"`
}

var fieldRules = map[string]ValidationError{
	"name":        {Field: "name", Rule: RuleNameRequired, Message: "Product name is required"},
	"price":       {Field: "price", Rule: RulePricePositive, Message: "Please enter a valid price greater than zero"},
	"description": {Field: "description", Rule: RuleDescriptionRequired, Message: "Product description is required"},
	"image_url":   {Field: "image_url", Rule: RuleImageRequired, Message: "Image URL is required"},
	"category":    {Field: "category", Rule: RuleCategoryExists, Message: "Please select a valid category"},
	"stock":       {Field: "stock", Rule: RuleStockNonNegative, Message: "Please enter a valid stock quantity"},
}

type productValidator struct {
	validate *validator.Validate
}

func newProductValidator(categories repository.CategoryRepository) *productValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := categories.FindByID(fl.Field().String())
		return ok
	})

	return &productValidator{validate: v}
}

// Check returns the ValidationError for the first failing rule, or nil
func (pv *productValidator) Check(input ProductInput) error {
	err := pv.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	// Errors come back in struct field order
	first := fieldRules[fieldErrs[0].Field()]
	return &first
}
