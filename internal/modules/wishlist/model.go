package wishlist

import "github.com/georgemunganga/printa-retail/internal/modules/inventory"

// Item is a wishlisted product with its current availability.
type Item struct {
	inventory.Product
	Status inventory.StockStatus `json:"status"`
}

// ToggleResult reports the membership after a toggle.
type ToggleResult struct {
	ProductID  string `json:"product_id"`
	Wishlisted bool   `json:"wishlisted"`
}
