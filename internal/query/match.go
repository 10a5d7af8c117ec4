package query

import (
	"strings"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
)

// MatchesText reports whether every term occurs in the lowercased name or
// description.
func (p *Plan) MatchesText(name, description string) bool {
	if !p.HasText() {
		return true
	}
	name = strings.ToLower(name)
	description = strings.ToLower(description)
	for _, t := range p.Terms {
		if !strings.Contains(name, t) && !strings.Contains(description, t) {
			return false
		}
	}
	return true
}

// Matches evaluates the whole plan against a product and its relations.
// Price and stock are existence checks over variants so a product is
// matched at most once however many variants qualify.
func (p *Plan) Matches(d *domain.ProductDetail) bool {
	if d.Deleted() {
		return false
	}
	if p.StoreID != "" && d.StoreID != p.StoreID {
		return false
	}
	if !p.MatchesText(d.Name, d.Description) {
		return false
	}
	if len(p.CategoryIDs) > 0 && !inAnyCategory(d.Categories, p.CategoryIDs) {
		return false
	}
	if p.Rating != nil && !p.Rating.contains(d.AverageRating) {
		return false
	}
	if p.Price != nil && !anyVariant(d.Variants, p.Price.contains) {
		return false
	}
	if p.InStockOnly && !anyVariant(d.Variants, inStock) {
		return false
	}
	return true
}

func inAnyCategory(cats []domain.Category, want []string) bool {
	for _, c := range cats {
		for _, id := range want {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}

func anyVariant(vs []domain.ProductVariant, pred func(*domain.ProductVariant) bool) bool {
	for i := range vs {
		if pred(&vs[i]) {
			return true
		}
	}
	return false
}

func inStock(v *domain.ProductVariant) bool {
	return v.Inventory.Quantity > 0
}

func (r *PriceRange) contains(v *domain.ProductVariant) bool {
	if r.Min != nil && v.Price.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && v.Price.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// contains treats an unrated product as outside every rating range.
func (r *RatingRange) contains(rating *float64) bool {
	if rating == nil {
		return false
	}
	if r.Min != nil && *rating < *r.Min {
		return false
	}
	if r.Max != nil && *rating > *r.Max {
		return false
	}
	return true
}
