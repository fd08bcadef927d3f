// Package events publishes domain events (sales, checkouts, low-stock reports) to the
// message broker. Publishing is best effort: callers log failures and never undo a
// committed change because an event could not be sent.
package events

import (
	"context"
	"sync"
	"time"
)

const (
	SaleRecorded      = "sale.recorded"
	CheckoutCompleted = "checkout.completed"
	LowStock          = "inventory.low_stock"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// Envelope is the message body sent for every event.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type nop struct{}

// Nop discards every event. It is used when no broker is configured.
func Nop() Publisher { return nop{} }

func (nop) Publish(context.Context, string, interface{}) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(_ context.Context, routingKey string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Envelope{Type: routingKey, OccurredAt: time.Now(), Data: payload})
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}

// Count returns how many events of the given type were published.
func (r *Recorder) Count(routingKey string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Type == routingKey {
			n++
		}
	}
	return n
}
