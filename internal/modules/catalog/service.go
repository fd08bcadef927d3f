package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/store"
)

// Service defines admin product management. Reads go through the live snapshot; every
// write goes to the store and comes back through the snapshot subscription.
type Service interface {
	CreateProduct(ctx context.Context, req ProductRequest) (*inventory.Product, error)
	ListProducts(category string) []inventory.Product
	UpdateProduct(ctx context.Context, id string, req ProductRequest) (*inventory.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// Restock adds units on top of the quantity in the snapshot. Like settlement it
	// does not guard against a concurrent write to the same quantity.
	Restock(ctx context.Context, id string, req RestockRequest) (*inventory.Product, error)
}

type service struct {
	repo Repository
	snap *inventory.Snapshot
	log  *zap.Logger
}

func NewService(repo Repository, snap *inventory.Snapshot, log *zap.Logger) Service {
	return &service{repo: repo, snap: snap, log: log}
}

type validated struct {
	name, category, description, image string
	price                               decimal.Decimal
	quantity                            int
}

func validate(req ProductRequest) (*validated, error) {
	v := &validated{
		name:        strings.TrimSpace(req.Name),
		category:    strings.TrimSpace(req.Category),
		description: strings.TrimSpace(req.Description),
		image:       strings.TrimSpace(req.Image),
	}
	switch {
	case v.name == "":
		return nil, errs.Validation("name", "is required")
	case v.category == "":
		return nil, errs.Validation("category", "is required")
	case v.description == "":
		return nil, errs.Validation("description", "is required")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(cast.ToString(req.Price)))
	if err != nil || price.IsNegative() {
		return nil, errs.Validation("price", "must be a number of at least 0")
	}
	v.price = price

	qty, err := inventory.ParseCount(req.Quantity)
	if req.Quantity == nil || err != nil || qty < 0 {
		return nil, errs.Validation("quantity", "must be a whole number of at least 0")
	}
	v.quantity = qty

	if v.image == "" {
		v.image = PlaceholderImage
	}
	return v, nil
}

func (v *validated) fields() map[string]interface{} {
	return map[string]interface{}{
		"name":        v.name,
		"category":    v.category,
		"description": v.description,
		"price":       json.Number(v.price.String()),
		"quantity":    v.quantity,
		"image":       v.image,
	}
}

func (s *service) CreateProduct(ctx context.Context, req ProductRequest) (*inventory.Product, error) {
	v, err := validate(req)
	if err != nil {
		return nil, err
	}
	fields := v.fields()
	fields["createdAt"] = store.ServerTimestamp
	id, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.String("product_id", id), zap.String("name", v.name))

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.log.Warn("created product not readable", zap.String("product_id", id), zap.Error(err))
		return &inventory.Product{
			ID: id, Name: v.name, Category: v.category, Description: v.description,
			Price: v.price, Quantity: v.quantity, Image: v.image,
		}, nil
	}
	return p, nil
}

func (s *service) ListProducts(category string) []inventory.Product {
	all := s.snap.Catalog().Products()
	if category == "" {
		return all
	}
	out := make([]inventory.Product, 0, len(all))
	for _, p := range all {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// existing looks id up in the snapshot.
func (s *service) existing(id string) (inventory.Product, error) {
	p, ok := s.snap.Product(id)
	if !ok {
		return inventory.Product{}, fmt.Errorf("product %s: %w", id, errs.ErrNotFound)
	}
	return p, nil
}

// UpdateProduct rewrites the editable fields and drops the legacy qty and img fields so
// the record only carries canonical names afterwards.
func (s *service) UpdateProduct(ctx context.Context, id string, req ProductRequest) (*inventory.Product, error) {
	v, err := validate(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.existing(id); err != nil {
		return nil, err
	}
	fields := v.fields()
	fields["qty"] = nil
	fields["img"] = nil
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	s.log.Info("product updated", zap.String("product_id", id))
	return s.repo.GetByID(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("product deleted", zap.String("product_id", id))
	return nil
}

func (s *service) Restock(ctx context.Context, id string, req RestockRequest) (*inventory.Product, error) {
	add, err := inventory.ParseCount(req.Add)
	if err != nil || add < 1 {
		return nil, errs.Validation("add", "must be a whole number of at least 1")
	}
	p, err := s.existing(id)
	if err != nil {
		return nil, err
	}
	if add > math.MaxInt-p.Quantity {
		return nil, errs.Validation("add", "is too large")
	}
	if err := s.repo.SetQuantity(ctx, id, p.Quantity+add); err != nil {
		return nil, err
	}
	s.log.Info("product restocked", zap.String("product_id", id), zap.Int("added", add), zap.Int("quantity", p.Quantity+add))
	p.Quantity += add
	return &p, nil
}
