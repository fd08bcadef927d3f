package inventory

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is the quantity below which a product counts as low stock.
const DefaultLowStockThreshold = 5

// Product is one catalog entry after normalization.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image"`
	CreatedAt   int64           `json:"created_at,omitempty"`
}

type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
)

// Status classifies the product's quantity against threshold.
func (p Product) Status(threshold int) StockStatus {
	switch {
	case p.Quantity <= 0:
		return StatusOutOfStock
	case p.Quantity < threshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Reader looks up products in a snapshot.
type Reader interface {
	Product(id string) (Product, bool)
}

// Catalog is an immutable view of all products at one point in time. Callers must not
// modify it.
type Catalog map[string]Product

func (c Catalog) Product(id string) (Product, bool) {
	p, ok := c[id]
	return p, ok
}

// Products returns every product ordered by name, then id.
func (c Catalog) Products() []Product {
	out := make([]Product, 0, len(c))
	for _, p := range c {
		out = append(out, p)
	}
	sortProducts(out)
	return out
}

// Stats counts products per stock status.
type Stats struct {
	Total      int `json:"total"`
	LowStock   int `json:"low_stock"`
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
}

func (c Catalog) Stats(threshold int) Stats {
	s := Stats{Total: len(c)}
	for _, p := range c {
		switch p.Status(threshold) {
		case StatusOutOfStock:
			s.OutOfStock++
		case StatusLowStock:
			s.LowStock++
		default:
			s.InStock++
		}
	}
	return s
}

// Filter returns the products with the given status, ordered like Products.
func (c Catalog) Filter(status StockStatus, threshold int) []Product {
	var out []Product
	for _, p := range c.Products() {
		if p.Status(threshold) == status {
			out = append(out, p)
		}
	}
	return out
}

// Search matches term case-insensitively against name, description and category.
func (c Catalog) Search(term string) []Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return c.Products()
	}
	var out []Product
	for _, p := range c.Products() {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			strings.Contains(strings.ToLower(p.Category), term) {
			out = append(out, p)
		}
	}
	return out
}

func sortProducts(ps []Product) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}
