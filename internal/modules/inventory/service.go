package inventory

import (
	"fmt"

	"github.com/georgemunganga/printa-retail/internal/errs"
)

// Service defines the read-only inventory views served from the snapshot.
type Service interface {
	ListProducts(filter, query string) (*Listing, error)
	GetProduct(id string) (*Product, error)
	Stats() *StatsView
	Threshold() int
}

// Listing is a product list plus the snapshot's health.
type Listing struct {
	Products []ProductView `json:"products"`
	Stale    bool          `json:"stale,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type ProductView struct {
	Product
	Status StockStatus `json:"status"`
}

type StatsView struct {
	Stats
	Stale bool   `json:"stale,omitempty"`
	Error string `json:"error,omitempty"`
}

type service struct {
	snap      *Snapshot
	threshold int
}

// NewService creates a new inventory service over snap.
func NewService(snap *Snapshot, threshold int) Service {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &service{snap: snap, threshold: threshold}
}

func (s *service) Threshold() int { return s.threshold }

// ListProducts applies the search term first, then the stock filter. filter is one of
// "", "all", "low", "in" or "out".
func (s *service) ListProducts(filter, query string) (*Listing, error) {
	var want StockStatus
	switch filter {
	case "", "all":
	case "low":
		want = StatusLowStock
	case "in":
		want = StatusInStock
	case "out":
		want = StatusOutOfStock
	default:
		return nil, errs.Validation("filter", fmt.Sprintf("unknown filter %q", filter))
	}

	l := &Listing{Products: []ProductView{}}
	for _, p := range s.snap.Catalog().Search(query) {
		st := p.Status(s.threshold)
		if want != "" && st != want {
			continue
		}
		l.Products = append(l.Products, ProductView{Product: p, Status: st})
	}
	if err := s.snap.Err(); err != nil {
		l.Stale, l.Error = true, err.Error()
	}
	return l, nil
}

func (s *service) GetProduct(id string) (*Product, error) {
	p, ok := s.snap.Product(id)
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, errs.ErrNotFound)
	}
	return &p, nil
}

func (s *service) Stats() *StatsView {
	v := &StatsView{Stats: s.snap.Catalog().Stats(s.threshold)}
	if err := s.snap.Err(); err != nil {
		v.Stale, v.Error = true, err.Error()
	}
	return v
}
