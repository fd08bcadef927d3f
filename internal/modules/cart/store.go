package cart

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/store"
)

// CartsPath holds one map of product id to quantity per user.
const CartsPath = "cart"

func linePath(uid, productID string) string { return store.Join(CartsPath, uid, productID) }

type storeRepository struct {
	st    store.Store
	loads singleflight.Group
}

func NewStoreRepository(st store.Store) Repository { return &storeRepository{st: st} }

// Load collapses concurrent reads of the same cart into one store round trip. Writes
// forget the in-flight read so later loads observe them. The shared read does not
// inherit the first caller's cancellation; each caller still stops waiting on its own.
func (r *storeRepository) Load(ctx context.Context, uid string) (map[string]int, error) {
	readCtx := context.WithoutCancel(ctx)
	ch := r.loads.DoChan(uid, func() (interface{}, error) {
		raw, err := r.st.ReadOnce(readCtx, store.Join(CartsPath, uid))
		if err != nil {
			return nil, fmt.Errorf("load cart %s: %w", uid, err)
		}
		return decodeLines(store.AsMap(raw)), nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.(map[string]int)
	out := make(map[string]int, len(shared))
	for id, q := range shared {
		out[id] = q
	}
	return out, nil
}

func (r *storeRepository) SetQuantity(ctx context.Context, uid, productID string, qty int) error {
	defer r.loads.Forget(uid)
	if err := r.st.Write(ctx, linePath(uid, productID), qty); err != nil {
		return errs.StoreWrite("write cart line", err)
	}
	return nil
}

func (r *storeRepository) RemoveLine(ctx context.Context, uid, productID string) error {
	defer r.loads.Forget(uid)
	if err := r.st.Remove(ctx, linePath(uid, productID)); err != nil {
		return errs.StoreWrite("remove cart line", err)
	}
	return nil
}

func (r *storeRepository) Clear(ctx context.Context, uid string) error {
	defer r.loads.Forget(uid)
	if err := r.st.Remove(ctx, store.Join(CartsPath, uid)); err != nil {
		return errs.StoreWrite("clear cart", err)
	}
	return nil
}

func (r *storeRepository) Settle(ctx context.Context, uid string, remove, zero []string) error {
	updates := make(map[string]interface{}, len(remove)+len(zero))
	for _, id := range remove {
		updates[linePath(uid, id)] = nil
	}
	for _, id := range zero {
		updates[linePath(uid, id)] = 0
	}
	if len(updates) == 0 {
		return nil
	}
	defer r.loads.Forget(uid)
	if err := r.st.AtomicUpdate(ctx, updates); err != nil {
		return errs.StoreWrite("settle cart", err)
	}
	return nil
}

// decodeLines skips values that are not whole numbers.
func decodeLines(raw map[string]interface{}) map[string]int {
	lines := make(map[string]int, len(raw))
	for id, v := range raw {
		q, err := inventory.ParseCount(v)
		if err != nil {
			continue
		}
		lines[id] = q
	}
	return lines
}
