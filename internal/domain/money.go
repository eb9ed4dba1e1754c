package domain

import "github.com/shopspring/decimal"

// FormatAmount rounds to the cent for display, e.g. "14.95"
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
