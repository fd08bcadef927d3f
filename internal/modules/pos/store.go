package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/store"
)

// SalesPath is the append-only collection of sale records.
const SalesPath = "sales"

type storeRepository struct{ st store.Store }

func NewStoreRepository(st store.Store) Repository { return &storeRepository{st: st} }

func (r *storeRepository) Create(ctx context.Context, sale *Sale) (string, error) {
	id, err := r.st.Append(ctx, SalesPath, saleRecord(sale))
	if err != nil {
		return "", errs.StoreWrite("append sale", err)
	}
	return id, nil
}

func (r *storeRepository) GetByID(ctx context.Context, id string) (*Sale, error) {
	v, err := r.st.ReadOnce(ctx, store.Join(SalesPath, id))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("sale %s: %w", id, errs.ErrNotFound)
	}
	return decodeSale(id, v)
}

// List returns every sale, newest first.
func (r *storeRepository) List(ctx context.Context) ([]*Sale, error) {
	v, err := r.st.ReadOnce(ctx, SalesPath)
	if err != nil {
		return nil, err
	}
	var sales []*Sale
	for id, raw := range store.AsMap(v) {
		s, err := decodeSale(id, raw)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].Timestamp != sales[j].Timestamp {
			return sales[i].Timestamp > sales[j].Timestamp
		}
		return sales[i].ID > sales[j].ID
	})
	return sales, nil
}

// saleRecord is the stored shape of a sale: numbers stay numbers and the timestamp is
// left for the store to fill in.
func saleRecord(s *Sale) map[string]interface{} {
	items := make([]interface{}, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, map[string]interface{}{
			"id":    it.ID,
			"name":  it.Name,
			"qty":   it.Qty,
			"price": json.Number(it.Price.String()),
		})
	}
	rec := map[string]interface{}{
		"items":     items,
		"subtotal":  json.Number(s.Subtotal.String()),
		"discount":  json.Number(s.Discount.String()),
		"total":     json.Number(s.Total.String()),
		"adminUid":  s.AdminUID,
		"timestamp": store.ServerTimestamp,
	}
	if s.AdminEmail != "" {
		rec["adminEmail"] = s.AdminEmail
	}
	return rec
}

func decodeSale(id string, raw interface{}) (*Sale, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("sale %s: %w", id, err)
	}
	s := &Sale{}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("sale %s: %w", id, err)
	}
	s.ID = id
	return s, nil
}
