package cart

import (
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/printa-retail/internal/modules/pricing"
	"github.com/georgemunganga/printa-retail/internal/modules/settlement"
)

// View is a shopper's cart priced against the current snapshot.
type View struct {
	pricing.Totals
	DiscountInput string `json:"discount_input,omitempty"`
	Count         int    `json:"count"`
	CanCheckout   bool   `json:"can_checkout"`
	// OutOfStock lists the zero-quantity lines left behind by an earlier checkout.
	OutOfStock []string `json:"out_of_stock,omitempty"`
	Stale      bool     `json:"stale,omitempty"`
}

// CheckoutResult reports what a checkout actually charged for.
type CheckoutResult struct {
	Fulfilled []pricing.Line         `json:"fulfilled"`
	Shortfall []settlement.Shortfall `json:"shortfall"`
	Subtotal  decimal.Decimal        `json:"subtotal"`
	Discount  decimal.Decimal        `json:"discount"`
	Total     decimal.Decimal        `json:"total"`
	Cart      *View                  `json:"cart,omitempty"`
}

// CheckoutEvent is published on checkout.completed.
type CheckoutEvent struct {
	UID       string                 `json:"uid"`
	Email     string                 `json:"email,omitempty"`
	Fulfilled []pricing.Line         `json:"fulfilled"`
	Shortfall []settlement.Shortfall `json:"shortfall,omitempty"`
	Total     decimal.Decimal        `json:"total"`
}

// AddItemRequest is the payload for adding units of a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ChangeQuantityRequest moves a cart line up or down by Delta.
type ChangeQuantityRequest struct {
	Delta int `json:"delta"`
}

// CheckoutRequest carries the raw discount field for this checkout.
type CheckoutRequest struct {
	Discount interface{} `json:"discount"`
}
