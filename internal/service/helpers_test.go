package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/ecommerce-discovery/internal/cache"
	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/internal/repository"
	"github.com/utafrali/ecommerce-discovery/internal/repository/memory"
)

var baseTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu       sync.Mutex
	searches []domain.SearchPerformed
}

func (r *recorder) RecordSearch(_ context.Context, s domain.SearchPerformed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, s)
}

type fixture struct {
	id, store, name, desc string
	views, likes, sales   int
	ageHours              int
	rating                *float64
	reviews               int
	prices                []string
	stock                 []int
	categories            []string
}

func (f fixture) detail() domain.ProductDetail {
	d := domain.ProductDetail{
		Product: domain.Product{
			ID:            f.id,
			StoreID:       f.store,
			Name:          f.name,
			Description:   f.desc,
			AverageRating: f.rating,
			ReviewCount:   f.reviews,
			LikeCount:     f.likes,
			ViewCount:     f.views,
			TotalSales:    f.sales,
			CreatedAt:     baseTime.Add(-time.Duration(f.ageHours) * time.Hour),
		},
		Store: domain.Store{ID: f.store, Name: "store " + f.store},
	}
	if d.StoreID == "" {
		d.StoreID = "s1"
		d.Store.ID = "s1"
	}
	for i, p := range f.prices {
		qty := 0
		if i < len(f.stock) {
			qty = f.stock[i]
		}
		d.Variants = append(d.Variants, domain.ProductVariant{
			ID:        f.id + "-v" + string(rune('a'+i)),
			ProductID: f.id,
			Price:     decimal.RequireFromString(p),
			Inventory: domain.Inventory{Quantity: qty},
		})
	}
	for _, c := range f.categories {
		d.Categories = append(d.Categories, domain.Category{ID: c, Name: c})
	}
	return d
}

func newCatalog(fixtures ...fixture) *memory.Catalog {
	c := memory.New()
	for _, f := range fixtures {
		c.Put(f.detail())
	}
	return c
}

func newSearch(catalog repository.Catalog) (*SearchService, *recorder) {
	rec := &recorder{}
	return NewSearchService(catalog, cache.Noop{}, rec, DefaultOptions(), newTestLogger()), rec
}

func rating(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

// countingCatalog counts calls that the cache should absorb.
type countingCatalog struct {
	repository.Catalog
	mu          sync.Mutex
	facets      int
	leaderboard int
	aggregates  int
}

func (c *countingCatalog) FacetSummary(ctx context.Context, storeID string) (*domain.FacetSummary, error) {
	c.mu.Lock()
	c.facets++
	c.mu.Unlock()
	return c.Catalog.FacetSummary(ctx, storeID)
}

func (c *countingCatalog) Leaderboard(ctx context.Context, q repository.LeaderboardQuery) ([]string, error) {
	c.mu.Lock()
	c.leaderboard++
	c.mu.Unlock()
	return c.Catalog.Leaderboard(ctx, q)
}

func (c *countingCatalog) FetchEventAggregates(ctx context.Context, storeID string, since time.Time) (map[string]domain.EventAggregate, error) {
	c.mu.Lock()
	c.aggregates++
	c.mu.Unlock()
	return c.Catalog.FetchEventAggregates(ctx, storeID, since)
}

// vanishingCatalog loses products between id selection and enrichment.
type vanishingCatalog struct {
	repository.Catalog
	gone map[string]bool
}

func (c *vanishingCatalog) FetchDetail(ctx context.Context, ids []string) ([]domain.ProductDetail, error) {
	details, err := c.Catalog.FetchDetail(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := details[:0]
	for _, d := range details {
		if !c.gone[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}
