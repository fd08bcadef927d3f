package catalog

import (
	"context"

	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
)

// Repository defines the writes admins make to the products collection.
type Repository interface {
	// Create appends a product and returns its generated id.
	Create(ctx context.Context, fields map[string]interface{}) (string, error)
	GetByID(ctx context.Context, id string) (*inventory.Product, error)
	// Update replaces the given fields of one product in a single atomic update.
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	SetQuantity(ctx context.Context, id string, quantity int) error
}
