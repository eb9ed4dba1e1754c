package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Test struct with validation tags
type TestRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeProduct bool, includeQuantity bool) bool {
			reqMap := make(map[string]interface{})
			if includeProduct {
				reqMap["product_id"] = "3"
			}
			if includeQuantity {
				reqMap["quantity"] = 2
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))

			var testReq TestRequest
			err := DecodeAndValidate(req, &testReq)

			if includeProduct && includeQuantity {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_QuantityRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantity outside 1..99 is rejected", prop.ForAll(
		func(qty int) bool {
			reqBody, _ := json.Marshal(map[string]interface{}{"product_id": "1", "quantity": qty})
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))

			var testReq TestRequest
			err := DecodeAndValidate(req, &testReq)

			if qty >= 1 && qty <= 99 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-50, 150),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors_UsesJSONFieldNames(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"quantity": 0}`))

	var testReq TestRequest
	err := DecodeAndValidate(req, &testReq)

	formatted := FormatValidationErrors(err)
	if len(formatted) != 2 {
		t.Fatalf("expected 2 validation errors, got %+v", formatted)
	}
	if formatted[0].Field != "product_id" || formatted[0].Rule != "required" {
		t.Errorf("unexpected first error %+v", formatted[0])
	}
	if formatted[1].Field != "quantity" || formatted[1].Message != "Value must be greater than or equal to 1" {
		t.Errorf("unexpected second error %+v", formatted[1])
	}
}

func TestDecodeAndValidate_MalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"quantity":`))

	var testReq TestRequest
	err := DecodeAndValidate(req, &testReq)

	if !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("expected ErrMalformedBody, got %v", err)
	}
	if len(FormatValidationErrors(err)) != 0 {
		t.Error("decode failures carry no field errors")
	}
}
