package ranking

import (
	"fmt"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
)

// Board names a leaderboard.
type Board string

const (
	BoardViews      Board = "views"
	BoardSales      Board = "sales"
	BoardRated      Board = "rated"
	BoardConversion Board = "conversion"
)

// Default leaderboard thresholds.
const (
	DefaultMinReviews = 5
	DefaultMinViews   = 50
)

// ParseBoard validates a board name.
func ParseBoard(s string) (Board, error) {
	switch b := Board(s); b {
	case BoardViews, BoardSales, BoardRated, BoardConversion:
		return b, nil
	}
	return "", apperrors.InvalidFilter(fmt.Sprintf("unknown ranking %q", s))
}

// Thresholds are the noise floors for the rated and conversion boards.
type Thresholds struct {
	MinReviews int
	MinViews   int
}

// DefaultThresholds returns the standard noise floors.
func DefaultThresholds() Thresholds {
	return Thresholds{MinReviews: DefaultMinReviews, MinViews: DefaultMinViews}
}

// ConversionRate is sales per view, 0 when there are no views.
func ConversionRate(totalSales, viewCount int) float64 {
	if viewCount <= 0 {
		return 0
	}
	return float64(totalSales) / float64(viewCount)
}

// Qualifies reports whether p is eligible for the board.
func (b Board) Qualifies(p *domain.Product, th Thresholds) bool {
	switch b {
	case BoardViews:
		return p.ViewCount > 0
	case BoardSales:
		return p.TotalSales > 0
	case BoardRated:
		return p.AverageRating != nil && p.ReviewCount >= th.MinReviews
	case BoardConversion:
		return p.ViewCount >= th.MinViews && p.ViewCount > 0 && p.TotalSales > 0
	}
	return false
}

// Less orders two qualifying products for the board. Ties fall back to id so
// every board has a total order.
func (b Board) Less(x, y *domain.Product) bool {
	switch b {
	case BoardViews:
		if x.ViewCount != y.ViewCount {
			return x.ViewCount > y.ViewCount
		}
	case BoardSales:
		if x.TotalSales != y.TotalSales {
			return x.TotalSales > y.TotalSales
		}
	case BoardRated:
		if *x.AverageRating != *y.AverageRating {
			return *x.AverageRating > *y.AverageRating
		}
		if x.ReviewCount != y.ReviewCount {
			return x.ReviewCount > y.ReviewCount
		}
	case BoardConversion:
		cx, cy := ConversionRate(x.TotalSales, x.ViewCount), ConversionRate(y.TotalSales, y.ViewCount)
		if cx != cy {
			return cx > cy
		}
		if x.TotalSales != y.TotalSales {
			return x.TotalSales > y.TotalSales
		}
	}
	return x.ID < y.ID
}
