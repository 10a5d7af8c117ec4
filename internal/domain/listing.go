package domain

import "github.com/shopspring/decimal"

// ProductDetail is a product with its relational detail and the aggregates
// derived from its variants.
type ProductDetail struct {
	Product
	Store        Store            `json:"store"`
	Variants     []ProductVariant `json:"variants"`
	Categories   []Category       `json:"categories"`
	MainPhotoURL string           `json:"main_photo_url,omitempty"`

	MinPrice   decimal.Decimal `json:"min_price"`
	MaxPrice   decimal.Decimal `json:"max_price"`
	TotalStock int             `json:"total_stock"`
	InStock    bool            `json:"in_stock"`
}

// ProductSummary is the listing shape returned by every search and ranking
// operation. At most one of the score fields is set, depending on the mode.
type ProductSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	AverageRating *float64        `json:"average_rating"`
	ReviewCount   int             `json:"review_count"`
	LikeCount     int             `json:"like_count"`
	ViewCount     int             `json:"view_count"`
	TotalSales    int             `json:"total_sales"`
	MainPhotoURL  string          `json:"main_photo_url,omitempty"`
	MinPrice      decimal.Decimal `json:"min_price"`
	MaxPrice      decimal.Decimal `json:"max_price"`
	TotalStock    int             `json:"total_stock"`
	InStock       bool            `json:"in_stock"`

	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	ConversionRate *float64 `json:"conversion_rate,omitempty"`
	TrendingScore  *float64 `json:"trending_score,omitempty"`
}

// Summary projects the detail onto the listing shape.
func (d *ProductDetail) Summary() ProductSummary {
	return ProductSummary{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		AverageRating: d.AverageRating,
		ReviewCount:   d.ReviewCount,
		LikeCount:     d.LikeCount,
		ViewCount:     d.ViewCount,
		TotalSales:    d.TotalSales,
		MainPhotoURL:  d.MainPhotoURL,
		MinPrice:      d.MinPrice,
		MaxPrice:      d.MaxPrice,
		TotalStock:    d.TotalStock,
		InStock:       d.InStock,
	}
}

// ProductSuggestion is an autocomplete entry.
type ProductSuggestion struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ViewCount    int    `json:"view_count"`
	MainPhotoURL string `json:"main_photo_url,omitempty"`
}

// CategoryFacet is a category with the number of live products in it.
type CategoryFacet struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ParentID     *string `json:"parent_id,omitempty"`
	ProductCount int     `json:"product_count"`
}

// PriceRange is the span of variant prices in a store.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Availability counts products with and without stock.
type Availability struct {
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
}

// FacetSummary describes the filter values available in a store.
type FacetSummary struct {
	StoreID      string          `json:"store_id"`
	Categories   []CategoryFacet `json:"categories"`
	PriceRange   PriceRange      `json:"price_range"`
	Availability Availability    `json:"availability"`
}
