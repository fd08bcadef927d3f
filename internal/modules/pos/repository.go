package pos

import "context"

// Repository defines data access for sale records.
type Repository interface {
	// Create appends sale and returns the generated id. The timestamp is assigned by
	// the store.
	Create(ctx context.Context, sale *Sale) (string, error)
	GetByID(ctx context.Context, id string) (*Sale, error)
	List(ctx context.Context) ([]*Sale, error)
}
