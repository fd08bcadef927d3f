package cart

import "context"

// Repository defines persistence for shopper carts.
type Repository interface {
	// Load returns the stored cart lines for uid, zero-quantity markers included.
	Load(ctx context.Context, uid string) (map[string]int, error)

	// SetQuantity writes a single line.
	SetQuantity(ctx context.Context, uid, productID string, qty int) error

	// RemoveLine deletes a single line.
	RemoveLine(ctx context.Context, uid, productID string) error

	// Clear deletes the whole cart.
	Clear(ctx context.Context, uid string) error

	// Settle drops the fulfilled lines and zeroes the out-of-stock ones in one update.
	Settle(ctx context.Context, uid string, remove, zero []string) error
}
