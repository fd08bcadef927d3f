// Package settlement commits a ledger against live inventory. Planning is pure: it
// reads the freshest catalog the caller hands it and produces the single atomic
// multi-path update to submit. The store offers no compare-and-swap, so two plans built
// from the same catalog can both commit; Committer is where a stronger backend would
// plug in a conditional write.
package settlement

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/modules/pricing"
	"github.com/georgemunganga/printa-retail/internal/store"
)

// Committer submits the inventory updates of a plan as one unit.
type Committer interface {
	Commit(ctx context.Context, updates map[string]interface{}) error
}

// StoreCommitter commits with Store.AtomicUpdate.
type StoreCommitter struct {
	Store store.Store
}

func (c StoreCommitter) Commit(ctx context.Context, updates map[string]interface{}) error {
	return errs.StoreWrite("atomic update", c.Store.AtomicUpdate(ctx, updates))
}

// SellPlan is a POS sale: every line with positive effective quantity, sold in full at
// min(requested, available).
type SellPlan struct {
	Lines    []pricing.Line
	Updates  map[string]interface{}
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// PlanSell fails with ErrNothingSellable when no line can be sold.
func PlanSell(entries map[string]int, r inventory.Reader, discountInput decimal.Decimal) (*SellPlan, error) {
	totals := pricing.Compute(entries, r, discountInput)
	plan := &SellPlan{Updates: map[string]interface{}{}, Subtotal: decimal.Zero}
	for _, l := range totals.Lines {
		if l.Quantity <= 0 {
			continue
		}
		plan.Lines = append(plan.Lines, l)
		plan.Updates[inventory.QuantityPath(l.ProductID)] = l.Available - l.Quantity
		plan.Subtotal = plan.Subtotal.Add(l.LineTotal)
	}
	if len(plan.Lines) == 0 {
		return nil, errs.ErrNothingSellable
	}
	plan.Discount, plan.Total = pricing.Apply(plan.Subtotal, discountInput)
	return plan, nil
}

const (
	ReasonOutOfStock   = "out of stock"
	ReasonInsufficient = "insufficient stock"
	ReasonNotFound     = "not found"
)

// Shortfall is the unfulfilled part of a checkout line.
type Shortfall struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Missing   int    `json:"missing"`
	Reason    string `json:"reason"`
}

// CheckoutPlan is a partial-fill storefront checkout.
type CheckoutPlan struct {
	Fulfilled []pricing.Line
	Shortfall []Shortfall
	Updates   map[string]interface{}
	// Remove lists cart lines that were at least partly fulfilled.
	Remove []string
	// MarkOutOfStock lists cart lines to overwrite with an explicit zero.
	MarkOutOfStock []string
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
}

// PlanCheckout classifies each line as full, partial or none. Zero-quantity marker
// lines are ignored and lines for missing products are reported but left in the cart.
// It fails with ErrNothingPurchasable when no line is full or partial.
func PlanCheckout(entries map[string]int, r inventory.Reader, discountInput decimal.Decimal) (*CheckoutPlan, error) {
	plan := &CheckoutPlan{Updates: map[string]interface{}{}, Subtotal: decimal.Zero}
	for _, id := range sortedIDs(entries) {
		requested := entries[id]
		if requested <= 0 {
			continue
		}
		p, ok := r.Product(id)
		if !ok {
			plan.Shortfall = append(plan.Shortfall, Shortfall{
				ProductID: id, Requested: requested, Missing: requested, Reason: ReasonNotFound,
			})
			continue
		}
		l := pricing.NewLine(p, requested)
		switch {
		case l.Quantity <= 0:
			plan.Shortfall = append(plan.Shortfall, Shortfall{
				ProductID: id, Name: p.Name, Requested: requested, Available: l.Available,
				Missing: requested, Reason: ReasonOutOfStock,
			})
			plan.MarkOutOfStock = append(plan.MarkOutOfStock, id)
			continue
		case l.Shortfall > 0:
			plan.Shortfall = append(plan.Shortfall, Shortfall{
				ProductID: id, Name: p.Name, Requested: requested, Available: l.Available,
				Missing: l.Shortfall, Reason: ReasonInsufficient,
			})
		}
		plan.Fulfilled = append(plan.Fulfilled, l)
		plan.Updates[inventory.QuantityPath(id)] = l.Available - l.Quantity
		plan.Remove = append(plan.Remove, id)
		plan.Subtotal = plan.Subtotal.Add(l.LineTotal)
	}
	if len(plan.Fulfilled) == 0 {
		return nil, errs.ErrNothingPurchasable
	}
	plan.Discount, plan.Total = pricing.Apply(plan.Subtotal, discountInput)
	return plan, nil
}

func sortedIDs(entries map[string]int) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
