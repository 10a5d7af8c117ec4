// Package repository defines the read interface the discovery engine needs
// from the catalog store.
package repository

import (
	"context"
	"time"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/internal/query"
	"github.com/utafrali/ecommerce-discovery/internal/ranking"
)

// Match is a candidate product with the columns needed to order it before
// enrichment.
type Match struct {
	ID          string
	Name        string
	Description string
	ViewCount   int
	LikeCount   int
	TotalSales  int
	CreatedAt   time.Time
}

// MatchSet is the result of the id-selection round trip. For pushdown sort
// modes Matches holds only the requested window, ordered, and Total counts
// every match. Otherwise Matches holds every match in no particular order.
type MatchSet struct {
	Matches []Match
	Total   int
}

// LeaderboardQuery selects a store's top products for one board.
type LeaderboardQuery struct {
	Board      ranking.Board
	StoreID    string
	Limit      int
	Thresholds ranking.Thresholds
}

// Catalog is the read side of the catalog store. Implementations never
// return soft-deleted products.
type Catalog interface {
	// FindMatching returns the products satisfying plan. See MatchSet for
	// how the sort mode changes what is returned.
	FindMatching(ctx context.Context, plan *query.Plan) (*MatchSet, error)

	// FetchDetail loads variants, inventory, categories, store and main
	// photo for ids. Order is unspecified and missing ids are omitted.
	FetchDetail(ctx context.Context, ids []string) ([]domain.ProductDetail, error)

	// FetchEventAggregates counts analytics events since the given time
	// per product of the store.
	FetchEventAggregates(ctx context.Context, storeID string, since time.Time) (map[string]domain.EventAggregate, error)

	// Leaderboard returns ordered product ids for a board.
	Leaderboard(ctx context.Context, q LeaderboardQuery) ([]string, error)

	// Autocomplete returns products whose lowercased name starts with the
	// already lowercased prefix, most viewed first.
	Autocomplete(ctx context.Context, storeID, prefix string, limit int) ([]domain.ProductSuggestion, error)

	// FacetSummary describes the filter values available in a store.
	FacetSummary(ctx context.Context, storeID string) (*domain.FacetSummary, error)
}
