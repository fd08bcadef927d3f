// Package ledger holds the per-actor reservation ledger shared by the POS bag and the
// storefront cart: product id to requested quantity, checked against live stock on
// every addition.
package ledger

import (
	"fmt"
	"sort"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
)

// Ledger is not safe for concurrent use; owners serialize access.
type Ledger struct {
	entries map[string]int
}

func New() *Ledger {
	return &Ledger{entries: map[string]int{}}
}

// FromEntries rebuilds a ledger from persisted entries. Zero entries are kept: they are
// the out-of-stock markers checkout leaves behind. Negative entries are dropped.
func FromEntries(entries map[string]int) *Ledger {
	l := New()
	for id, q := range entries {
		if q >= 0 {
			l.entries[id] = q
		}
	}
	return l
}

// Change describes the entry after a mutation.
type Change struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Removed   bool   `json:"removed,omitempty"`
	Clamped   bool   `json:"clamped,omitempty"`
}

// Add moves the requested quantity of id by delta against the stock in r.
//
// An increase that would exceed availability is clamped down to availability when that
// still grows the entry, and rejected with ErrInsufficientStock otherwise. A decrease is
// always applied; an entry reaching zero is removed and one still above availability is
// clamped down. A product missing from r yields ErrNotFound. The ledger is unchanged on
// any error.
func (l *Ledger) Add(r inventory.Reader, id string, delta int) (Change, error) {
	p, ok := r.Product(id)
	if !ok {
		return Change{}, fmt.Errorf("product %s: %w", id, errs.ErrNotFound)
	}
	current := l.entries[id]
	available := p.Quantity
	if delta == 0 {
		return Change{ProductID: id, Quantity: current}, nil
	}

	var next int
	ch := Change{ProductID: id}
	if delta > 0 {
		if available <= 0 {
			return Change{}, errs.InsufficientStock(id, available)
		}
		// compared as a difference so a huge delta cannot wrap the sum
		if delta > available-current {
			if available <= current {
				return Change{}, errs.InsufficientStock(id, available)
			}
			next, ch.Clamped = available, true
		} else {
			next = current + delta
		}
	} else {
		next = current + delta
		if next > available {
			next, ch.Clamped = available, true
		}
	}

	if next <= 0 {
		delete(l.entries, id)
		ch.Removed = true
		return ch, nil
	}
	l.entries[id] = next
	ch.Quantity = next
	return ch, nil
}

// Remove deletes the entry for id whether or not it exists.
func (l *Ledger) Remove(id string) Change {
	delete(l.entries, id)
	return Change{ProductID: id, Removed: true}
}

func (l *Ledger) Clear() {
	l.entries = map[string]int{}
}

// Subtract takes the captured quantities back out of the ledger. Entries reaching zero
// are removed; units added after the capture stay.
func (l *Ledger) Subtract(captured map[string]int) {
	for id, q := range captured {
		cur, ok := l.entries[id]
		if !ok {
			continue
		}
		if cur <= q {
			delete(l.entries, id)
			continue
		}
		l.entries[id] = cur - q
	}
}

func (l *Ledger) Quantity(id string) (int, bool) {
	q, ok := l.entries[id]
	return q, ok
}

// Entries returns a copy of the ledger contents.
func (l *Ledger) Entries() map[string]int {
	out := make(map[string]int, len(l.entries))
	for id, q := range l.entries {
		out[id] = q
	}
	return out
}

// IDs returns the product ids in the ledger, sorted.
func (l *Ledger) IDs() []string {
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Ledger) Len() int { return len(l.entries) }

// Count is the sum of requested quantities.
func (l *Ledger) Count() int {
	n := 0
	for _, q := range l.entries {
		n += q
	}
	return n
}
