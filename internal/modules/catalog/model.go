package catalog

// PlaceholderImage is stored when a product is saved without an image.
const PlaceholderImage = "https://via.placeholder.com/300x150?text=No+Image"

// ProductRequest is the admin form for creating or editing a product. Price and
// quantity accept numbers or numeric strings.
type ProductRequest struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Price       interface{} `json:"price"`
	Quantity    interface{} `json:"quantity"`
	Image       string      `json:"image"`
}

// RestockRequest adds Add units to a product's stock.
type RestockRequest struct {
	Add interface{} `json:"add"`
}
