package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as stored. Counters are maintained outside the
// discovery service and may drift from the analytics event log.
type Product struct {
	ID            string     `json:"id"`
	StoreID       string     `json:"store_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	AverageRating *float64   `json:"average_rating"`
	ReviewCount   int        `json:"review_count"`
	LikeCount     int        `json:"like_count"`
	ViewCount     int        `json:"view_count"`
	TotalSales    int        `json:"total_sales"`
	CreatedAt     time.Time  `json:"created_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the product carries a soft-delete marker.
func (p *Product) Deleted() bool {
	return p.DeletedAt != nil
}

// ProductVariant is a purchasable version of a product.
type ProductVariant struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"product_id"`
	SKU        string            `json:"sku"`
	Price      decimal.Decimal   `json:"price"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Inventory  Inventory         `json:"inventory"`
}

// Inventory is the stock record owned by a single variant.
type Inventory struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Category is a node of the category tree. Discovery treats categories as a
// flat set and never walks ParentID.
type Category struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

// Store owns products.
type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductPhoto is an image attached to a product.
type ProductPhoto struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	URL       string `json:"url"`
	IsMain    bool   `json:"is_main"`
	Position  int    `json:"position"`
}
