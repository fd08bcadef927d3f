package pos

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/events"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/modules/ledger"
	"github.com/georgemunganga/printa-retail/internal/modules/pricing"
	"github.com/georgemunganga/printa-retail/internal/modules/settlement"
)

// Service defines POS business logic. Each operator has one in-process bag; bags are
// not persisted.
type Service interface {
	Bag(uid string) *BagView
	AddItem(uid string, req AddItemRequest) (*BagView, ledger.Change, error)
	ChangeQuantity(uid, productID string, delta int) (*BagView, ledger.Change, error)
	RemoveItem(uid, productID string) *BagView
	SetDiscount(uid, input string) *BagView
	ClearBag(uid string) *BagView
	Sell(ctx context.Context, op auth.Identity) (*SellResult, error)
	// Watch streams the operator's bag view after every change to the bag or the
	// snapshot. The stop func must be called to release the watcher.
	Watch(uid string) (<-chan BagView, func())
	ListSales(ctx context.Context) ([]*Sale, error)
	GetSale(ctx context.Context, id string) (*Sale, error)
}

type bag struct {
	ledger   *ledger.Ledger
	discount string
	watchers map[int]chan BagView
}

type service struct {
	snap      *inventory.Snapshot
	committer settlement.Committer
	repo      Repository
	pub       events.Publisher
	log       *zap.Logger

	mu        sync.Mutex
	bags      map[string]*bag
	nextWatch int
}

// NewService creates the POS register and subscribes it to snapshot changes.
func NewService(snap *inventory.Snapshot, committer settlement.Committer, repo Repository, pub events.Publisher, log *zap.Logger) Service {
	s := &service{
		snap:      snap,
		committer: committer,
		repo:      repo,
		pub:       pub,
		log:       log,
		bags:      map[string]*bag{},
	}
	snap.OnChange(s.refresh)
	return s
}

// bagFor must be called with s.mu held.
func (s *service) bagFor(uid string) *bag {
	b, ok := s.bags[uid]
	if !ok {
		b = &bag{ledger: ledger.New(), watchers: map[int]chan BagView{}}
		s.bags[uid] = b
	}
	return b
}

func (s *service) view(b *bag, c inventory.Catalog) *BagView {
	totals := pricing.Compute(b.ledger.Entries(), c, pricing.ParseDiscount(b.discount))
	v := &BagView{
		Totals:        totals,
		DiscountInput: b.discount,
		CanSell:       totals.CanSettle,
		Stale:         s.snap.Err() != nil,
	}
	for _, l := range totals.Lines {
		v.Count += l.Quantity
	}
	return v
}

// changed re-prices b and pushes the view to its watchers. It must be called with s.mu
// held.
func (s *service) changed(b *bag, c inventory.Catalog) *BagView {
	v := s.view(b, c)
	for _, ch := range b.watchers {
		push(ch, *v)
	}
	return v
}

// push delivers v, discarding an undelivered older view if the watcher is behind.
func push(ch chan BagView, v BagView) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *service) refresh(c inventory.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bags {
		if len(b.watchers) > 0 {
			s.changed(b, c)
		}
	}
}

func (s *service) Bag(uid string) *BagView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(s.bagFor(uid), s.snap.Catalog())
}

func (s *service) AddItem(uid string, req AddItemRequest) (*BagView, ledger.Change, error) {
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
	return s.ChangeQuantity(uid, req.ProductID, qty)
}

func (s *service) ChangeQuantity(uid, productID string, delta int) (*BagView, ledger.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bagFor(uid)
	c := s.snap.Catalog()
	ch, err := b.ledger.Add(c, productID, delta)
	if err != nil {
		return nil, ledger.Change{}, err
	}
	return s.changed(b, c), ch, nil
}

func (s *service) RemoveItem(uid, productID string) *BagView {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bagFor(uid)
	b.ledger.Remove(productID)
	return s.changed(b, s.snap.Catalog())
}

func (s *service) SetDiscount(uid, input string) *BagView {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bagFor(uid)
	b.discount = input
	return s.changed(b, s.snap.Catalog())
}

func (s *service) ClearBag(uid string) *BagView {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bagFor(uid)
	b.ledger.Clear()
	b.discount = ""
	return s.changed(b, s.snap.Catalog())
}

// Sell settles the operator's bag against the latest snapshot. On a failed commit the
// bag is left exactly as it was. After a successful commit the captured lines are taken
// out of the bag, unsold ones included.
func (s *service) Sell(ctx context.Context, op auth.Identity) (*SellResult, error) {
	s.mu.Lock()
	b := s.bagFor(op.UID)
	entries := b.ledger.Entries()
	discountInput := b.discount
	s.mu.Unlock()
	discount := pricing.ParseDiscount(discountInput)

	plan, err := settlement.PlanSell(entries, s.snap.Catalog(), discount)
	if err != nil {
		return nil, err
	}
	if err := s.committer.Commit(ctx, plan.Updates); err != nil {
		s.log.Warn("sale not committed", zap.String("operator", op.UID), zap.Error(err))
		return nil, fmt.Errorf("sell: %w", err)
	}

	sale := newSale(plan, op)
	res := &SellResult{Sale: sale, Recorded: true}
	sold := map[string]bool{}
	for _, it := range sale.Items {
		sold[it.ID] = true
	}
	for id := range entries {
		if !sold[id] {
			res.Dropped = append(res.Dropped, id)
		}
	}
	sort.Strings(res.Dropped)

	id, err := s.repo.Create(ctx, &sale)
	if err != nil {
		// inventory already moved; retrying would decrement twice
		res.Recorded = false
		s.log.Error("inventory decremented but sale record not written",
			zap.String("operator", op.UID), zap.Any("items", sale.Items), zap.Error(err))
	} else {
		res.Sale.ID = id
	}

	// lines added while the commit was in flight stay in the bag
	s.mu.Lock()
	b.ledger.Subtract(entries)
	if b.discount == discountInput {
		b.discount = ""
	}
	s.changed(b, s.snap.Catalog())
	s.mu.Unlock()

	s.log.Info("sale committed",
		zap.String("sale_id", res.Sale.ID),
		zap.String("operator", op.UID),
		zap.String("total", sale.Total.String()),
		zap.Bool("recorded", res.Recorded))
	if res.Recorded {
		if err := s.pub.Publish(ctx, events.SaleRecorded, res.Sale); err != nil {
			s.log.Warn("failed to publish sale event", zap.String("sale_id", res.Sale.ID), zap.Error(err))
		}
	}
	return res, nil
}

func newSale(plan *settlement.SellPlan, op auth.Identity) Sale {
	sale := Sale{
		Subtotal:   plan.Subtotal,
		Discount:   plan.Discount,
		Total:      plan.Total,
		AdminUID:   op.UID,
		AdminEmail: op.Email,
	}
	for _, l := range plan.Lines {
		sale.Items = append(sale.Items, SaleItem{ID: l.ProductID, Name: l.Name, Qty: l.Quantity, Price: l.UnitPrice})
	}
	return sale
}

func (s *service) Watch(uid string) (<-chan BagView, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bagFor(uid)
	id := s.nextWatch
	s.nextWatch++
	ch := make(chan BagView, 1)
	b.watchers[id] = ch
	push(ch, *s.view(b, s.snap.Catalog()))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(b.watchers, id)
			s.mu.Unlock()
		})
	}
}

func (s *service) ListSales(ctx context.Context) ([]*Sale, error) {
	return s.repo.List(ctx)
}

func (s *service) GetSale(ctx context.Context, id string) (*Sale, error) {
	return s.repo.GetByID(ctx, id)
}

// Amount is what the line was charged before the sale-level discount.
func (it SaleItem) Amount() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Qty)))
}
