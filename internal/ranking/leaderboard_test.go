package ranking

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
)

func rating(v float64) *float64 { return &v }

func rank(b Board, th Thresholds, products []domain.Product) []string {
	var qualified []*domain.Product
	for i := range products {
		if b.Qualifies(&products[i], th) {
			qualified = append(qualified, &products[i])
		}
	}
	sort.Slice(qualified, func(i, j int) bool { return b.Less(qualified[i], qualified[j]) })
	out := make([]string, len(qualified))
	for i, p := range qualified {
		out[i] = p.ID
	}
	return out
}

func TestParseBoard(t *testing.T) {
	for _, name := range []string{"views", "sales", "rated", "conversion"} {
		b, err := ParseBoard(name)
		require.NoError(t, err)
		assert.Equal(t, Board(name), b)
	}
	_, err := ParseBoard("likes")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidFilter))
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.0, ConversionRate(5, 0))
	assert.Equal(t, 0.25, ConversionRate(25, 100))
}

func TestBoardViews(t *testing.T) {
	got := rank(BoardViews, DefaultThresholds(), []domain.Product{
		{ID: "a", ViewCount: 10}, {ID: "b", ViewCount: 0}, {ID: "c", ViewCount: 30}, {ID: "d", ViewCount: 10},
	})
	assert.Equal(t, []string{"c", "a", "d"}, got)
}

func TestBoardSales(t *testing.T) {
	got := rank(BoardSales, DefaultThresholds(), []domain.Product{
		{ID: "a", TotalSales: 1}, {ID: "b"}, {ID: "c", TotalSales: 9},
	})
	assert.Equal(t, []string{"c", "a"}, got)
}

func TestBoardRated_MinReviews(t *testing.T) {
	got := rank(BoardRated, DefaultThresholds(), []domain.Product{
		{ID: "single-five-star", AverageRating: rating(5), ReviewCount: 1},
		{ID: "solid", AverageRating: rating(4.6), ReviewCount: 340},
		{ID: "tied-fewer", AverageRating: rating(4.6), ReviewCount: 20},
		{ID: "unrated", ReviewCount: 50},
		{ID: "threshold", AverageRating: rating(3.0), ReviewCount: 5},
	})
	assert.Equal(t, []string{"solid", "tied-fewer", "threshold"}, got)
}

func TestBoardConversion_MinViews(t *testing.T) {
	got := rank(BoardConversion, DefaultThresholds(), []domain.Product{
		{ID: "low-traffic", ViewCount: 10, TotalSales: 9},
		{ID: "good", ViewCount: 100, TotalSales: 20},
		{ID: "same-rate-more-sales", ViewCount: 500, TotalSales: 100},
		{ID: "no-sales", ViewCount: 1000},
		{ID: "weak", ViewCount: 50, TotalSales: 1},
	})
	assert.Equal(t, []string{"same-rate-more-sales", "good", "weak"}, got)
}

func TestBoardConversion_ZeroFloorStillNeedsViews(t *testing.T) {
	p := domain.Product{ID: "x", TotalSales: 3}
	assert.False(t, BoardConversion.Qualifies(&p, Thresholds{MinViews: 0}))
}
