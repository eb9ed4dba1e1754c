package domain

import (
	"github.com/shopspring/decimal"
)

// CartLine is one product's presence in a cart. Quantity is always >= 1.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartItem is a CartLine joined with its resolved Product
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price × quantity at full precision
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartLines is an ordered line collection. Every method returns a new slice
// and leaves the receiver untouched.
type CartLines []CartLine

// Add increments the line for productID by qty, appending a new line when
// none exists. Non-positive qty is a no-op.
func (l CartLines) Add(productID string, qty int) CartLines {
	out := l.clone()
	if qty <= 0 {
		return out
	}

	if idx := out.index(productID); idx >= 0 {
		out[idx].Quantity += qty
		return out
	}
	return append(out, CartLine{ProductID: productID, Quantity: qty})
}

// SetQuantity replaces the quantity of an existing line. qty <= 0 removes
// the line. A missing line is never created.
func (l CartLines) SetQuantity(productID string, qty int) CartLines {
	if qty <= 0 {
		return l.Remove(productID)
	}

	out := l.clone()
	if idx := out.index(productID); idx >= 0 {
		out[idx].Quantity = qty
	}
	return out
}

// Remove drops the line for productID, preserving the order of the rest
func (l CartLines) Remove(productID string) CartLines {
	return l.Filter(func(line CartLine) bool { return line.ProductID != productID })
}

// Filter keeps the lines for which keep returns true
func (l CartLines) Filter(keep func(CartLine) bool) CartLines {
	out := make(CartLines, 0, len(l))
	for _, line := range l {
		if keep(line) {
			out = append(out, line)
		}
	}
	return out
}

// Normalize merges duplicate product lines (summing quantities, first
// position wins) and drops lines with a non-positive quantity. Storage
// written by other clients may hold zero quantities or duplicates.
func (l CartLines) Normalize() CartLines {
	out := make(CartLines, 0, len(l))
	for _, line := range l {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}
		if idx := out.index(line.ProductID); idx >= 0 {
			out[idx].Quantity += line.Quantity
			continue
		}
		out = append(out, line)
	}
	return out
}

// Quantity returns the quantity for productID, or 0 when absent
func (l CartLines) Quantity(productID string) int {
	if idx := l.index(productID); idx >= 0 {
		return l[idx].Quantity
	}
	return 0
}

func (l CartLines) index(productID string) int {
	for i := range l {
		if l[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (l CartLines) clone() CartLines {
	out := make(CartLines, len(l))
	copy(out, l)
	return out
}
