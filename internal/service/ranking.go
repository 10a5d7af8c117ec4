package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/ecommerce-discovery/internal/cache"
	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/internal/enrich"
	"github.com/utafrali/ecommerce-discovery/internal/ranking"
	"github.com/utafrali/ecommerce-discovery/internal/repository"
	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
)

// RankingService answers the per-store leaderboard and trending queries.
type RankingService struct {
	catalog  repository.Catalog
	enricher *enrich.Enricher
	cache    cache.Cache
	opts     Options
	now      func() time.Time
	logger   *slog.Logger
}

// NewRankingService creates a new ranking service.
func NewRankingService(catalog repository.Catalog, c cache.Cache, opts Options, logger *slog.Logger) *RankingService {
	return &RankingService{
		catalog:  catalog,
		enricher: enrich.New(catalog, logger),
		cache:    c,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// LeaderboardRequest selects one board for a store. Nil thresholds use the
// configured defaults.
type LeaderboardRequest struct {
	StoreID    string
	Board      ranking.Board
	Limit      int
	MinReviews *int
	MinViews   *int
}

// TopByViews returns the most viewed products of a store.
func (s *RankingService) TopByViews(ctx context.Context, storeID string, limit int) ([]domain.ProductSummary, error) {
	return s.Leaderboard(ctx, LeaderboardRequest{StoreID: storeID, Board: ranking.BoardViews, Limit: limit})
}

// TopBySales returns the best selling products of a store.
func (s *RankingService) TopBySales(ctx context.Context, storeID string, limit int) ([]domain.ProductSummary, error) {
	return s.Leaderboard(ctx, LeaderboardRequest{StoreID: storeID, Board: ranking.BoardSales, Limit: limit})
}

// TopRated returns the highest rated products with at least minReviews
// reviews.
func (s *RankingService) TopRated(ctx context.Context, storeID string, limit int, minReviews *int) ([]domain.ProductSummary, error) {
	return s.Leaderboard(ctx, LeaderboardRequest{StoreID: storeID, Board: ranking.BoardRated, Limit: limit, MinReviews: minReviews})
}

// TopByConversion returns the products converting the most views into
// sales, among those with at least minViews views.
func (s *RankingService) TopByConversion(ctx context.Context, storeID string, limit int, minViews *int) ([]domain.ProductSummary, error) {
	return s.Leaderboard(ctx, LeaderboardRequest{StoreID: storeID, Board: ranking.BoardConversion, Limit: limit, MinViews: minViews})
}

// Leaderboard resolves any board.
func (s *RankingService) Leaderboard(ctx context.Context, req LeaderboardRequest) ([]domain.ProductSummary, error) {
	if req.Limit < 0 {
		return nil, apperrors.InvalidPagination("limit must not be negative")
	}
	th := s.opts.Thresholds
	if req.MinReviews != nil {
		if *req.MinReviews < 0 {
			return nil, apperrors.InvalidFilter("min_reviews must not be negative")
		}
		th.MinReviews = *req.MinReviews
	}
	if req.MinViews != nil {
		if *req.MinViews < 0 {
			return nil, apperrors.InvalidFilter("min_views must not be negative")
		}
		th.MinViews = *req.MinViews
	}

	q := repository.LeaderboardQuery{
		Board:      req.Board,
		StoreID:    req.StoreID,
		Limit:      clampLimit(req.Limit, DefaultRankingLimit, MaxRankingLimit),
		Thresholds: th,
	}
	key := fmt.Sprintf("rank:%s:%d:%d:%d", q.Board, q.Limit, th.MinReviews, th.MinViews)

	return cached(ctx, s.cache, s.logger, req.StoreID, key, func() ([]domain.ProductSummary, error) {
		ids, err := s.catalog.Leaderboard(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%s leaderboard: %w", q.Board, err)
		}
		details, err := s.enricher.Enrich(ctx, ids)
		if err != nil {
			return nil, err
		}

		out := make([]domain.ProductSummary, len(details))
		for i := range details {
			out[i] = details[i].Summary()
			if q.Board == ranking.BoardConversion {
				rate := ranking.ConversionRate(details[i].TotalSales, details[i].ViewCount)
				out[i].ConversionRate = &rate
			}
		}
		return out, nil
	})
}

// Trending scores the store's products by recent activity and age. A zero
// windowDays uses the configured default.
func (s *RankingService) Trending(ctx context.Context, storeID string, windowDays, limit int) ([]domain.ProductSummary, error) {
	if limit < 0 {
		return nil, apperrors.InvalidPagination("limit must not be negative")
	}
	if windowDays < 0 {
		return nil, apperrors.InvalidFilter("window_days must not be negative")
	}
	if windowDays > MaxTrendingWindow {
		return nil, apperrors.InvalidFilter(fmt.Sprintf("window_days must not exceed %d", MaxTrendingWindow))
	}
	if windowDays == 0 {
		windowDays = s.opts.TrendingWindowDays
	}
	limit = clampLimit(limit, DefaultRankingLimit, MaxRankingLimit)
	key := fmt.Sprintf("trending:%d:%d", windowDays, limit)

	return cached(ctx, s.cache, s.logger, storeID, key, func() ([]domain.ProductSummary, error) {
		now := s.now()
		since := now.AddDate(0, 0, -windowDays)

		aggs, err := s.catalog.FetchEventAggregates(ctx, storeID, since)
		if err != nil {
			return nil, fmt.Errorf("fetch event aggregates: %w", err)
		}
		top := ranking.Trending(aggs, now, limit)

		ids := make([]string, len(top))
		scores := make(map[string]float64, len(top))
		for i, t := range top {
			ids[i] = t.ID
			scores[t.ID] = t.Score
		}
		details, err := s.enricher.Enrich(ctx, ids)
		if err != nil {
			return nil, err
		}

		out := make([]domain.ProductSummary, len(details))
		for i := range details {
			out[i] = details[i].Summary()
			score := scores[details[i].ID]
			out[i].TrendingScore = &score
		}
		return out, nil
	})
}
