package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/ecommerce-discovery/internal/cache"
	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/internal/query"
	"github.com/utafrali/ecommerce-discovery/internal/ranking"
)

// Autocomplete and ranking list bounds.
const (
	DefaultAutocompleteLimit = 10
	MaxAutocompleteLimit     = 50
	DefaultRankingLimit      = 10
	MaxRankingLimit          = 100
	DefaultTrendingWindow    = 7
	MaxTrendingWindow        = 365
	DefaultAutocompleteMin   = 2
)

// Options tune the discovery services.
type Options struct {
	Limits                query.Limits
	Thresholds            ranking.Thresholds
	TrendingWindowDays    int
	AutocompleteMinPrefix int
}

// DefaultOptions returns the standard engine settings.
func DefaultOptions() Options {
	return Options{
		Limits:                query.DefaultLimits(),
		Thresholds:            ranking.DefaultThresholds(),
		TrendingWindowDays:    DefaultTrendingWindow,
		AutocompleteMinPrefix: DefaultAutocompleteMin,
	}
}

// SearchRecorder receives a record of every successful search.
type SearchRecorder interface {
	RecordSearch(ctx context.Context, s domain.SearchPerformed)
}

// cached serves key from c when present and otherwise stores the result of
// load. Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, c cache.Cache, logger *slog.Logger, storeID, key string, load func() (T, error)) (T, error) {
	var v T
	hit, err := c.Get(ctx, storeID, key, &v)
	if err != nil {
		logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return v, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, storeID, key, v); err != nil {
		logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return v, nil
}
