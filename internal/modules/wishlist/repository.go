package wishlist

import "context"

// Repository defines persistence for per-user wishlists.
type Repository interface {
	Has(ctx context.Context, uid, productID string) (bool, error)
	Add(ctx context.Context, uid, productID string) error
	Remove(ctx context.Context, uid, productID string) error
	// IDs returns the wishlisted product ids, sorted.
	IDs(ctx context.Context, uid string) ([]string, error)
}
