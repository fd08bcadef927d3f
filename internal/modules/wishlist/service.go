package wishlist

import (
	"context"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
)

type Service interface {
	// Toggle removes productID from the wishlist when present and adds it otherwise.
	Toggle(ctx context.Context, uid, productID string) (*ToggleResult, error)
	// List returns the wishlisted products still in the catalog.
	List(ctx context.Context, uid string) ([]Item, error)
}

type service struct {
	repo      Repository
	snap      *inventory.Snapshot
	threshold int
	log       *zap.Logger
}

func NewService(repo Repository, snap *inventory.Snapshot, threshold int, log *zap.Logger) Service {
	return &service{repo: repo, snap: snap, threshold: threshold, log: log}
}

func (s *service) Toggle(ctx context.Context, uid, productID string) (*ToggleResult, error) {
	if productID == "" {
		return nil, errs.Validation("product_id", "is required")
	}
	present, err := s.repo.Has(ctx, uid, productID)
	if err != nil {
		return nil, err
	}
	if present {
		err = s.repo.Remove(ctx, uid, productID)
	} else {
		err = s.repo.Add(ctx, uid, productID)
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug("wishlist toggled", zap.String("uid", uid), zap.String("product_id", productID), zap.Bool("wishlisted", !present))
	return &ToggleResult{ProductID: productID, Wishlisted: !present}, nil
}

func (s *service) List(ctx context.Context, uid string) ([]Item, error) {
	ids, err := s.repo.IDs(ctx, uid)
	if err != nil {
		return nil, err
	}
	catalog := s.snap.Catalog()
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		p, ok := catalog.Product(id)
		if !ok {
			continue
		}
		items = append(items, Item{Product: p, Status: p.Status(s.threshold)})
	}
	return items, nil
}
