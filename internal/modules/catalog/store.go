package catalog

import (
	"context"
	"fmt"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/store"
)

type storeRepository struct{ st store.Store }

func NewStoreRepository(st store.Store) Repository { return &storeRepository{st: st} }

func (r *storeRepository) Create(ctx context.Context, fields map[string]interface{}) (string, error) {
	id, err := r.st.Append(ctx, inventory.ProductsPath, fields)
	if err != nil {
		return "", errs.StoreWrite("create product", err)
	}
	return id, nil
}

func (r *storeRepository) GetByID(ctx context.Context, id string) (*inventory.Product, error) {
	v, err := r.st.ReadOnce(ctx, inventory.ProductPath(id))
	if err != nil {
		return nil, fmt.Errorf("read product %s: %w", id, err)
	}
	p, ok := inventory.Normalize(id, v)
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, errs.ErrNotFound)
	}
	return &p, nil
}

func (r *storeRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		updates[store.Join(inventory.ProductsPath, id, k)] = v
	}
	if err := r.st.AtomicUpdate(ctx, updates); err != nil {
		return errs.StoreWrite("update product", err)
	}
	return nil
}

func (r *storeRepository) Delete(ctx context.Context, id string) error {
	if err := r.st.Remove(ctx, inventory.ProductPath(id)); err != nil {
		return errs.StoreWrite("delete product", err)
	}
	return nil
}

func (r *storeRepository) SetQuantity(ctx context.Context, id string, quantity int) error {
	if err := r.st.Write(ctx, inventory.QuantityPath(id), quantity); err != nil {
		return errs.StoreWrite("restock product", err)
	}
	return nil
}
