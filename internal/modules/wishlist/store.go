package wishlist

import (
	"context"
	"fmt"
	"sort"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/store"
)

// WishlistPath holds one set of product ids per user, each marked with true.
const WishlistPath = "wishlist"

func entryPath(uid, productID string) string { return store.Join(WishlistPath, uid, productID) }

type storeRepository struct{ st store.Store }

func NewStoreRepository(st store.Store) Repository { return &storeRepository{st: st} }

func (r *storeRepository) Has(ctx context.Context, uid, productID string) (bool, error) {
	v, err := r.st.ReadOnce(ctx, entryPath(uid, productID))
	if err != nil {
		return false, fmt.Errorf("read wishlist entry: %w", err)
	}
	return v != nil, nil
}

func (r *storeRepository) Add(ctx context.Context, uid, productID string) error {
	if err := r.st.Write(ctx, entryPath(uid, productID), true); err != nil {
		return errs.StoreWrite("add wishlist entry", err)
	}
	return nil
}

func (r *storeRepository) Remove(ctx context.Context, uid, productID string) error {
	if err := r.st.Remove(ctx, entryPath(uid, productID)); err != nil {
		return errs.StoreWrite("remove wishlist entry", err)
	}
	return nil
}

func (r *storeRepository) IDs(ctx context.Context, uid string) ([]string, error) {
	v, err := r.st.ReadOnce(ctx, store.Join(WishlistPath, uid))
	if err != nil {
		return nil, fmt.Errorf("read wishlist: %w", err)
	}
	m := store.AsMap(v)
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
