package query

import (
	"fmt"
	"strings"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
)

// SortMode orders a result set.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortName      SortMode = "name"
	SortPrice     SortMode = "price"
	SortRating    SortMode = "rating"
	SortViews     SortMode = "views"
	SortSales     SortMode = "sales"
	SortRecent    SortMode = "recent"
)

var sortModes = []SortMode{SortRelevance, SortName, SortPrice, SortRating, SortViews, SortSales, SortRecent}

// ParseSort maps a client-supplied sort name to a SortMode. An empty string
// yields "" so the compiler can apply the mode-specific default.
func ParseSort(s string) (SortMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	if m := SortMode(s); m.valid() {
		return m, nil
	}
	return "", apperrors.InvalidFilter(fmt.Sprintf("unknown sort mode %q", s))
}

func (m SortMode) valid() bool {
	for _, known := range sortModes {
		if m == known {
			return true
		}
	}
	return false
}

// Pushdown reports whether the catalog can order and paginate by this mode
// itself. Relevance is scored in the application and price sorts on the
// enriched minimum variant price, so both need the full candidate set.
func (m SortMode) Pushdown() bool {
	return m != SortRelevance && m != SortPrice
}

// Less orders two products for a pushdown sort mode. Every mode ends with an
// id tie-break so pages never overlap. It mirrors the ORDER BY the Postgres
// catalog renders for the same mode.
func (m SortMode) Less(x, y *domain.Product) bool {
	switch m {
	case SortName:
		if x.Name != y.Name {
			return x.Name < y.Name
		}
	case SortRating:
		switch {
		case x.AverageRating == nil && y.AverageRating != nil:
			return false
		case x.AverageRating != nil && y.AverageRating == nil:
			return true
		case x.AverageRating != nil && *x.AverageRating != *y.AverageRating:
			return *x.AverageRating > *y.AverageRating
		}
		if x.ReviewCount != y.ReviewCount {
			return x.ReviewCount > y.ReviewCount
		}
	case SortViews:
		if x.ViewCount != y.ViewCount {
			return x.ViewCount > y.ViewCount
		}
	case SortSales:
		if x.TotalSales != y.TotalSales {
			return x.TotalSales > y.TotalSales
		}
	case SortRecent:
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.After(y.CreatedAt)
		}
	}
	return x.ID < y.ID
}

// LessByPrice orders enriched products by minimum variant price, newest first
// on ties.
func LessByPrice(x, y *domain.ProductDetail) bool {
	if !x.MinPrice.Equal(y.MinPrice) {
		return x.MinPrice.LessThan(y.MinPrice)
	}
	if !x.CreatedAt.Equal(y.CreatedAt) {
		return x.CreatedAt.After(y.CreatedAt)
	}
	return x.ID < y.ID
}
