package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/store"
)

func setup(t *testing.T) (*store.Memory, *inventory.Snapshot, Service) {
	t.Helper()
	st := store.NewMemory()
	snap := inventory.NewSnapshot(zap.NewNop())
	return st, snap, NewService(NewStoreRepository(st), snap, zap.NewNop())
}

// refresh copies the store's products into the snapshot.
func refresh(t *testing.T, st store.Store, snap *inventory.Snapshot) {
	t.Helper()
	v, err := st.ReadOnce(context.Background(), inventory.ProductsPath)
	if err != nil {
		t.Fatal(err)
	}
	snap.Apply(store.AsMap(v))
}

func validRequest() ProductRequest {
	return ProductRequest{Name: "Pen", Category: "Stationery", Description: "Blue ink", Price: "2.50", Quantity: 10.0}
}

func TestCreateProductValidation(t *testing.T) {
	st, _, svc := setup(t)

	cases := []struct {
		field  string
		mutate func(*ProductRequest)
	}{
		{"name", func(r *ProductRequest) { r.Name = "  " }},
		{"category", func(r *ProductRequest) { r.Category = "" }},
		{"description", func(r *ProductRequest) { r.Description = "" }},
		{"price", func(r *ProductRequest) { r.Price = "abc" }},
		{"price", func(r *ProductRequest) { r.Price = -1.0 }},
		{"price", func(r *ProductRequest) { r.Price = nil }},
		{"quantity", func(r *ProductRequest) { r.Quantity = "ten" }},
		{"quantity", func(r *ProductRequest) { r.Quantity = -2.0 }},
		{"quantity", func(r *ProductRequest) { r.Quantity = nil }},
		{"quantity", func(r *ProductRequest) { r.Quantity = "0x10" }},
		{"quantity", func(r *ProductRequest) { r.Quantity = "2.5" }},
	}
	for _, tc := range cases {
		req := validRequest()
		tc.mutate(&req)
		_, err := svc.CreateProduct(context.Background(), req)
		var fe *errs.FieldError
		if !errors.As(err, &fe) || fe.Field != tc.field {
			t.Errorf("expected %s validation error, got %v", tc.field, err)
		}
	}
	if v, _ := st.ReadOnce(context.Background(), inventory.ProductsPath); v != nil {
		t.Errorf("expected nothing written, got %v", v)
	}
}

func TestCreateProduct(t *testing.T) {
	_, _, svc := setup(t)

	p, err := svc.CreateProduct(context.Background(), validRequest())
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" || p.CreatedAt == 0 {
		t.Errorf("expected id and server timestamp, got %+v", p)
	}
	if p.Image != PlaceholderImage {
		t.Errorf("expected placeholder image, got %q", p.Image)
	}
	if !p.Price.Equal(decimal.RequireFromString("2.5")) || p.Quantity != 10 {
		t.Errorf("unexpected price or quantity %+v", p)
	}

	req := validRequest()
	req.Quantity = "010"
	p, err = svc.CreateProduct(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if p.Quantity != 10 {
		t.Errorf("expected zero-padded quantity read as 10, got %d", p.Quantity)
	}
}

func TestUpdateProductDropsLegacyFields(t *testing.T) {
	st, snap, svc := setup(t)
	ctx := context.Background()
	_ = st.Seed(inventory.ProductPath("old"), map[string]interface{}{
		"name": "Old", "price": 1, "qty": 4, "img": "x.png", "createdAt": 99,
	})
	refresh(t, st, snap)

	req := validRequest()
	req.Quantity = "7"
	p, err := svc.UpdateProduct(ctx, "old", req)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Pen" || p.Quantity != 7 || p.CreatedAt != 99 || p.Image != PlaceholderImage {
		t.Errorf("unexpected product after update %+v", p)
	}
	raw := store.AsMap(mustRead(t, st, inventory.ProductPath("old")))
	if _, ok := raw["qty"]; ok {
		t.Errorf("expected legacy qty removed, got %v", raw)
	}
	if _, ok := raw["img"]; ok {
		t.Errorf("expected legacy img removed, got %v", raw)
	}

	if _, err := svc.UpdateProduct(ctx, "missing", validRequest()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRestockAndDelete(t *testing.T) {
	st, snap, svc := setup(t)
	ctx := context.Background()
	_ = st.Seed(inventory.ProductPath("P"), map[string]interface{}{"name": "Pen", "price": 1, "quantity": 3})
	refresh(t, st, snap)

	if _, err := svc.Restock(ctx, "P", RestockRequest{Add: 0.0}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation for zero, got %v", err)
	}
	if _, err := svc.Restock(ctx, "P", RestockRequest{Add: "0x4"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation for hex, got %v", err)
	}
	p, err := svc.Restock(ctx, "P", RestockRequest{Add: "04"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Quantity != 7 {
		t.Errorf("expected 7, got %d", p.Quantity)
	}
	if got := mustRead(t, st, inventory.QuantityPath("P")); got != json.Number("7") {
		t.Errorf("expected stored quantity 7, got %v", got)
	}

	if err := svc.DeleteProduct(ctx, "P"); err != nil {
		t.Fatal(err)
	}
	if v := mustRead(t, st, inventory.ProductPath("P")); v != nil {
		t.Errorf("expected product removed, got %v", v)
	}
}

func TestListProductsByCategory(t *testing.T) {
	_, snap, svc := setup(t)
	snap.Apply(map[string]interface{}{
		"a": map[string]interface{}{"name": "A", "category": "Paper"},
		"b": map[string]interface{}{"name": "B", "category": "Ink"},
	})
	if got := svc.ListProducts("paper"); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only a, got %+v", got)
	}
	if got := svc.ListProducts(""); len(got) != 2 {
		t.Errorf("expected both products, got %+v", got)
	}
}

func TestHandlerRequiresAdmin(t *testing.T) {
	st, _, svc := setup(t)
	_ = st.Seed("users/a1/role", auth.RoleAdmin)
	authn := auth.NewService("secret", st)
	r := chi.NewRouter()
	NewHandler(svc, authn).RegisterRoutes(r)

	admin, _ := authn.IssueToken(auth.Identity{UID: "a1"}, time.Hour)
	shopper, _ := authn.IssueToken(auth.Identity{UID: "u1"}, time.Hour)
	body := `{"name":"Pen","category":"Stationery","description":"Blue","price":2,"quantity":5}`

	cases := []struct {
		token string
		body  string
		want  int
	}{
		{shopper, body, http.StatusForbidden},
		{admin, body, http.StatusCreated},
		{admin, `{"name":"Pen"}`, http.StatusBadRequest},
		{admin, `not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/products", strings.NewReader(tc.body))
		req.Header.Set("Authorization", "Bearer "+tc.token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.body, tc.want, rec.Code)
		}
	}
}

func mustRead(t *testing.T, st store.Store, path string) interface{} {
	t.Helper()
	v, err := st.ReadOnce(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
