package pos

import (
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/printa-retail/internal/modules/pricing"
)

// SaleItem is one line actually sold.
type SaleItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

// Sale is the append-only record written after a POS sale commits.
type Sale struct {
	ID         string          `json:"id"`
	Items      []SaleItem      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	AdminUID   string          `json:"adminUid"`
	AdminEmail string          `json:"adminEmail,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// BagView is the bag priced against the current snapshot.
type BagView struct {
	pricing.Totals
	DiscountInput string `json:"discount_input"`
	Count         int    `json:"count"`
	CanSell       bool   `json:"can_sell"`
	Stale         bool   `json:"stale,omitempty"`
}

// SellResult reports a committed sale. Recorded is false when inventory was decremented
// but the sale record could not be appended; the sale must not be retried.
type SellResult struct {
	Sale     Sale     `json:"sale"`
	Recorded bool     `json:"recorded"`
	Dropped  []string `json:"dropped,omitempty"`
}

// AddItemRequest is the payload for adding units of a product to the bag.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ChangeQuantityRequest moves a bag line up or down by Delta.
type ChangeQuantityRequest struct {
	Delta int `json:"delta"`
}

// DiscountRequest carries the raw discount field; anything non-numeric counts as 0.
type DiscountRequest struct {
	Discount interface{} `json:"discount"`
}
