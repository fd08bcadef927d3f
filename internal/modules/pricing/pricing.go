// Package pricing derives line totals, subtotal, discount and total from a ledger and
// the inventory snapshot. Everything here is a pure function of its inputs.
package pricing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
)

type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Requested int             `json:"requested"`
	Available int             `json:"available"`
	// Quantity is min(requested, available), never negative.
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Shortfall int             `json:"shortfall,omitempty"`
}

type Totals struct {
	Lines     []Line          `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	CanSettle bool            `json:"can_settle"`
}

// EffectiveQuantity is the usable quantity of a line.
func EffectiveQuantity(requested, available int) int {
	q := requested
	if available < q {
		q = available
	}
	if q < 0 {
		return 0
	}
	return q
}

// Compute prices every entry present in r; entries for missing products are skipped.
// Lines are ordered by product id.
func Compute(entries map[string]int, r inventory.Reader, discountInput decimal.Decimal) Totals {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := Totals{Lines: []Line{}, Subtotal: decimal.Zero}
	for _, id := range ids {
		p, ok := r.Product(id)
		if !ok {
			continue
		}
		l := NewLine(p, entries[id])
		t.Lines = append(t.Lines, l)
		t.Subtotal = t.Subtotal.Add(l.LineTotal)
	}
	t.Discount, t.Total = Apply(t.Subtotal, discountInput)
	t.CanSettle = t.Total.IsPositive()
	return t
}

// NewLine prices requested units of p at its current availability.
func NewLine(p inventory.Product, requested int) Line {
	q := EffectiveQuantity(requested, p.Quantity)
	return Line{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.Image,
		UnitPrice: p.Price,
		Requested: requested,
		Available: p.Quantity,
		Quantity:  q,
		LineTotal: p.Price.Mul(decimal.NewFromInt(int64(q))),
		Shortfall: requested - q,
	}
}

// Apply clamps discountInput to [0, subtotal] and returns it with the resulting total.
func Apply(subtotal, discountInput decimal.Decimal) (discount, total decimal.Decimal) {
	discount = discountInput
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	total = subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return discount, total
}

// ParseDiscount reads a discount field. Negative or non-numeric input is 0.
func ParseDiscount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
