package query

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
	"github.com/utafrali/ecommerce-discovery/pkg/pagination"
)

// Mode selects how blank text and the default sort are treated.
type Mode int

const (
	// ModeText is free-text search: text is required and results default
	// to relevance order.
	ModeText Mode = iota
	// ModeAdvanced is faceted search: text is optional and results default
	// to most recent first.
	ModeAdvanced
)

func (m Mode) String() string {
	if m == ModeText {
		return "text"
	}
	return "advanced"
}

// Params are the caller-supplied search inputs. Nil pointers and empty
// slices mean "facet not applied".
type Params struct {
	Text        string
	StoreID     string
	CategoryIDs []string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MinRating   *float64
	MaxRating   *float64
	InStockOnly bool
	Sort        SortMode
	Page        pagination.Params
}

// Limits bound pagination.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultLimits returns the standard page size bounds.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: pagination.DefaultLimit, MaxLimit: pagination.MaxLimit}
}

// PriceRange is an inclusive variant price bound. Either end may be open.
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// RatingRange is an inclusive bound on the cached average rating.
type RatingRange struct {
	Min *float64
	Max *float64
}

// Plan is a compiled, validated search. The catalog renders it into its own
// query language; Matches evaluates it in process.
type Plan struct {
	Mode Mode

	// Query is the whole normalized text used for relevance scoring.
	// Terms are its whitespace-separated parts used for AND matching.
	Query string
	Terms []string

	StoreID     string
	CategoryIDs []string
	Price       *PriceRange
	Rating      *RatingRange
	InStockOnly bool

	Sort   SortMode
	Window pagination.Window
}

// HasText reports whether a text filter applies.
func (p *Plan) HasText() bool {
	return len(p.Terms) > 0
}

// Normalize trims and lowercases text and splits it into terms.
func Normalize(text string) (string, []string) {
	q := strings.ToLower(strings.TrimSpace(text))
	return q, strings.Fields(q)
}

// Compile validates params and produces a Plan.
func Compile(mode Mode, p Params, limits Limits) (*Plan, error) {
	plan := &Plan{
		Mode:        mode,
		StoreID:     strings.TrimSpace(p.StoreID),
		InStockOnly: p.InStockOnly,
	}

	plan.Query, plan.Terms = Normalize(p.Text)
	if mode == ModeText && plan.Query == "" {
		return nil, apperrors.InvalidQuery("query must not be blank")
	}

	window, err := p.Page.Resolve(limits.DefaultLimit, limits.MaxLimit)
	if err != nil {
		return nil, err
	}
	plan.Window = window

	plan.CategoryIDs = dedupe(p.CategoryIDs)

	if p.MinPrice != nil || p.MaxPrice != nil {
		if (p.MinPrice != nil && p.MinPrice.IsNegative()) || (p.MaxPrice != nil && p.MaxPrice.IsNegative()) {
			return nil, apperrors.InvalidFilter("price bounds must not be negative")
		}
		if p.MinPrice != nil && p.MaxPrice != nil && p.MinPrice.GreaterThan(*p.MaxPrice) {
			return nil, apperrors.InvalidFilter("min_price must not exceed max_price")
		}
		plan.Price = &PriceRange{Min: p.MinPrice, Max: p.MaxPrice}
	}

	if p.MinRating != nil || p.MaxRating != nil {
		for _, r := range []*float64{p.MinRating, p.MaxRating} {
			if r != nil && (*r < 0 || *r > 5) {
				return nil, apperrors.InvalidFilter("rating bounds must be between 0 and 5")
			}
		}
		if p.MinRating != nil && p.MaxRating != nil && *p.MinRating > *p.MaxRating {
			return nil, apperrors.InvalidFilter("min_rating must not exceed max_rating")
		}
		plan.Rating = &RatingRange{Min: p.MinRating, Max: p.MaxRating}
	}

	plan.Sort = p.Sort
	switch {
	case plan.Sort == "" && plan.HasText():
		plan.Sort = SortRelevance
	case plan.Sort == "":
		plan.Sort = SortRecent
	case !plan.Sort.valid():
		return nil, apperrors.InvalidFilter(fmt.Sprintf("unknown sort mode %q", plan.Sort))
	case plan.Sort == SortRelevance && !plan.HasText():
		return nil, apperrors.InvalidFilter("relevance sort requires query text")
	}

	return plan, nil
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
