package inventory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/store"
)

// ProductsPath is the store collection the snapshot mirrors.
const ProductsPath = "products"

// ProductPath is the store path of one product record.
func ProductPath(id string) string { return store.Join(ProductsPath, id) }

// QuantityPath is the store path of a product's on-hand quantity.
func QuantityPath(id string) string { return store.Join(ProductsPath, id, "quantity") }

// Snapshot is the in-memory mirror of the products collection. Every delivery replaces
// the whole catalog; a failed subscription keeps the last catalog and records the error.
type Snapshot struct {
	log *zap.Logger

	mu        sync.RWMutex
	catalog   Catalog
	err       error
	loaded    bool
	listeners []func(Catalog)
}

func NewSnapshot(log *zap.Logger) *Snapshot {
	return &Snapshot{log: log, catalog: Catalog{}}
}

// Catalog returns the current catalog.
func (s *Snapshot) Catalog() Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

func (s *Snapshot) Product(id string) (Product, bool) {
	return s.Catalog().Product(id)
}

// Err returns the subscription error, if the subscription has failed.
func (s *Snapshot) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loaded reports whether at least one delivery has been applied.
func (s *Snapshot) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// OnChange registers fn to run after every replacement. Listeners run synchronously on
// the delivering goroutine, in registration order.
func (s *Snapshot) OnChange(fn func(Catalog)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Apply replaces the catalog with data and notifies listeners.
func (s *Snapshot) Apply(data map[string]interface{}) Catalog {
	c := NormalizeAll(data)
	s.mu.Lock()
	s.catalog = c
	s.loaded = true
	listeners := make([]func(Catalog), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
	return c
}

// Run subscribes to the products collection and applies deliveries until ctx is done
// or the subscription fails.
func (s *Snapshot) Run(ctx context.Context, st store.Store) error {
	events, err := st.Subscribe(ctx, ProductsPath)
	if err != nil {
		return s.fail(fmt.Errorf("subscribe to %s: %w", ProductsPath, err))
	}
	for ev := range events {
		if ev.Err != nil {
			return s.fail(fmt.Errorf("products subscription: %w", ev.Err))
		}
		c := s.Apply(ev.Data)
		s.log.Debug("inventory snapshot replaced", zap.Int("products", len(c)))
	}
	if ctx.Err() != nil {
		return nil
	}
	return s.fail(fmt.Errorf("products subscription closed"))
}

func (s *Snapshot) fail(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.log.Error("inventory snapshot is stale", zap.Error(err))
	return err
}
