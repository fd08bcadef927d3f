package cart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/events"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/modules/ledger"
	"github.com/georgemunganga/printa-retail/internal/modules/pricing"
	"github.com/georgemunganga/printa-retail/internal/modules/settlement"
)

// Service defines storefront cart business logic. Carts live in the store; the discount
// is passed with each call that prices the cart.
type Service interface {
	GetCart(ctx context.Context, uid, discount string) (*View, error)
	AddItem(ctx context.Context, uid string, req AddItemRequest) (*View, ledger.Change, error)
	ChangeQuantity(ctx context.Context, uid, productID string, delta int) (*View, ledger.Change, error)
	RemoveItem(ctx context.Context, uid, productID string) (*View, error)
	Clear(ctx context.Context, uid string) (*View, error)
	Checkout(ctx context.Context, shopper auth.Identity, discount string) (*CheckoutResult, error)
}

type service struct {
	snap      *inventory.Snapshot
	committer settlement.Committer
	repo      Repository
	pub       events.Publisher
	log       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new cart service.
func NewService(snap *inventory.Snapshot, committer settlement.Committer, repo Repository, pub events.Publisher, log *zap.Logger) Service {
	return &service{
		snap:      snap,
		committer: committer,
		repo:      repo,
		pub:       pub,
		log:       log,
		locks:     map[string]*sync.Mutex{},
	}
}

// lock serializes mutations of one user's cart.
func (s *service) lock(uid string) func() {
	s.mu.Lock()
	l, ok := s.locks[uid]
	if !ok {
		l = &sync.Mutex{}
		s.locks[uid] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *service) view(entries map[string]int, discount string) *View {
	totals := pricing.Compute(entries, s.snap.Catalog(), pricing.ParseDiscount(discount))
	v := &View{
		Totals:        totals,
		DiscountInput: discount,
		CanCheckout:   totals.CanSettle,
		Stale:         s.snap.Err() != nil,
	}
	for _, l := range totals.Lines {
		v.Count += l.Quantity
		if l.Requested == 0 {
			v.OutOfStock = append(v.OutOfStock, l.ProductID)
		}
	}
	return v
}

func (s *service) GetCart(ctx context.Context, uid, discount string) (*View, error) {
	entries, err := s.repo.Load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.view(entries, discount), nil
}

func (s *service) AddItem(ctx context.Context, uid string, req AddItemRequest) (*View, ledger.Change, error) {
	if req.ProductID == "" {
		return nil, ledger.Change{}, errs.Validation("product_id", "is required")
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, ledger.Change{}, errs.Validation("quantity", "must be at least 1")
	}
	return s.ChangeQuantity(ctx, uid, req.ProductID, qty)
}

// ChangeQuantity applies delta through the ledger and writes only the touched line.
func (s *service) ChangeQuantity(ctx context.Context, uid, productID string, delta int) (*View, ledger.Change, error) {
	unlock := s.lock(uid)
	defer unlock()

	entries, err := s.repo.Load(ctx, uid)
	if err != nil {
		return nil, ledger.Change{}, err
	}
	before, had := entries[productID]
	l := ledger.FromEntries(entries)
	ch, err := l.Add(s.snap.Catalog(), productID, delta)
	if err != nil {
		return nil, ledger.Change{}, err
	}
	switch {
	case ch.Removed:
		if had {
			err = s.repo.RemoveLine(ctx, uid, productID)
		}
	case !had || ch.Quantity != before:
		err = s.repo.SetQuantity(ctx, uid, productID, ch.Quantity)
	}
	if err != nil {
		return nil, ledger.Change{}, err
	}
	return s.view(l.Entries(), ""), ch, nil
}

func (s *service) RemoveItem(ctx context.Context, uid, productID string) (*View, error) {
	unlock := s.lock(uid)
	defer unlock()

	entries, err := s.repo.Load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveLine(ctx, uid, productID); err != nil {
		return nil, err
	}
	delete(entries, productID)
	return s.view(entries, ""), nil
}

func (s *service) Clear(ctx context.Context, uid string) (*View, error) {
	unlock := s.lock(uid)
	defer unlock()

	if err := s.repo.Clear(ctx, uid); err != nil {
		return nil, err
	}
	return s.view(map[string]int{}, ""), nil
}

// Checkout settles the shopper's cart against the latest snapshot, filling what it can.
// A failed commit leaves cart and inventory untouched and reports nothing as fulfilled.
// Once the commit succeeds the outcome stands: fulfilled lines leave the cart and lines
// with no stock become zero-quantity markers, and a failure to update the cart is only
// logged.
func (s *service) Checkout(ctx context.Context, shopper auth.Identity, discount string) (*CheckoutResult, error) {
	unlock := s.lock(shopper.UID)
	defer unlock()

	entries, err := s.repo.Load(ctx, shopper.UID)
	if err != nil {
		return nil, err
	}
	plan, err := settlement.PlanCheckout(entries, s.snap.Catalog(), pricing.ParseDiscount(discount))
	if err != nil {
		return nil, err
	}
	if err := s.committer.Commit(ctx, plan.Updates); err != nil {
		s.log.Warn("checkout not committed", zap.String("uid", shopper.UID), zap.Error(err))
		return nil, fmt.Errorf("checkout: %w", err)
	}

	if err := s.repo.Settle(ctx, shopper.UID, plan.Remove, plan.MarkOutOfStock); err != nil {
		s.log.Error("checkout committed but cart not updated",
			zap.String("uid", shopper.UID),
			zap.Strings("fulfilled", plan.Remove),
			zap.Strings("out_of_stock", plan.MarkOutOfStock),
			zap.Error(err))
	}
	for _, id := range plan.Remove {
		delete(entries, id)
	}
	for _, id := range plan.MarkOutOfStock {
		entries[id] = 0
	}

	res := &CheckoutResult{
		Fulfilled: plan.Fulfilled,
		Shortfall: plan.Shortfall,
		Subtotal:  plan.Subtotal,
		Discount:  plan.Discount,
		Total:     plan.Total,
		Cart:      s.view(entries, ""),
	}
	if res.Shortfall == nil {
		res.Shortfall = []settlement.Shortfall{}
	}

	s.log.Info("checkout committed",
		zap.String("uid", shopper.UID),
		zap.Int("fulfilled", len(plan.Fulfilled)),
		zap.Int("shortfall", len(plan.Shortfall)),
		zap.String("total", plan.Total.String()))
	ev := CheckoutEvent{UID: shopper.UID, Email: shopper.Email, Fulfilled: plan.Fulfilled, Shortfall: plan.Shortfall, Total: plan.Total}
	if err := s.pub.Publish(ctx, events.CheckoutCompleted, ev); err != nil {
		s.log.Warn("failed to publish checkout event", zap.String("uid", shopper.UID), zap.Error(err))
	}
	return res, nil
}
