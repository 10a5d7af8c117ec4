// Package memory is an in-process Catalog used for local development and
// tests. It evaluates plans with the same predicates and orderings the
// Postgres catalog renders to SQL.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/internal/query"
	"github.com/utafrali/ecommerce-discovery/internal/repository"
)

var _ repository.Catalog = (*Catalog)(nil)

// Catalog holds product detail records and analytics events in memory.
// Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]domain.ProductDetail
	events   []domain.AnalyticsEvent
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{products: make(map[string]domain.ProductDetail)}
}

// Put adds or replaces products.
func (c *Catalog) Put(details ...domain.ProductDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range details {
		c.products[d.ID] = d
	}
}

// Remove deletes a product outright, as opposed to soft-deleting it.
func (c *Catalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

// Record appends analytics events.
func (c *Catalog) Record(events ...domain.AnalyticsEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

// Seed is the on-disk format accepted by LoadFile.
type Seed struct {
	Products []domain.ProductDetail  `json:"products"`
	Events   []domain.AnalyticsEvent `json:"events"`
}

// LoadFile reads a JSON seed file into the catalog.
func (c *Catalog) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("decode seed file %s: %w", path, err)
	}
	c.Put(seed.Products...)
	c.Record(seed.Events...)
	return nil
}

// FindMatching evaluates the plan against every stored product.
func (c *Catalog) FindMatching(_ context.Context, plan *query.Plan) (*repository.MatchSet, error) {
	c.mu.RLock()
	var hits []*domain.ProductDetail
	for id := range c.products {
		d := c.products[id]
		if plan.Matches(&d) {
			hits = append(hits, &d)
		}
	}
	c.mu.RUnlock()

	set := &repository.MatchSet{Total: len(hits)}
	if plan.Sort.Pushdown() {
		sort.Slice(hits, func(i, j int) bool { return plan.Sort.Less(&hits[i].Product, &hits[j].Product) })
		start := min(plan.Window.Offset, len(hits))
		end := min(start+plan.Window.Limit, len(hits))
		hits = hits[start:end]
	}

	set.Matches = make([]repository.Match, len(hits))
	for i, d := range hits {
		set.Matches[i] = repository.Match{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			ViewCount:   d.ViewCount,
			LikeCount:   d.LikeCount,
			TotalSales:  d.TotalSales,
			CreatedAt:   d.CreatedAt,
		}
	}
	return set, nil
}

// FetchDetail returns copies of the live products among ids.
func (c *Catalog) FetchDetail(_ context.Context, ids []string) ([]domain.ProductDetail, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.ProductDetail, 0, len(ids))
	for _, id := range ids {
		d, ok := c.products[id]
		if !ok || d.Deleted() {
			continue
		}
		d.Variants = append([]domain.ProductVariant(nil), d.Variants...)
		d.Categories = append([]domain.Category(nil), d.Categories...)
		out = append(out, d)
	}
	return out, nil
}

// FetchEventAggregates counts events per live store product since the given
// time.
func (c *Catalog) FetchEventAggregates(_ context.Context, storeID string, since time.Time) (map[string]domain.EventAggregate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.EventAggregate)
	for _, ev := range c.events {
		if ev.CreatedAt.Before(since) {
			continue
		}
		p, ok := c.products[ev.ProductID]
		if !ok || p.Deleted() || p.StoreID != storeID {
			continue
		}
		agg := out[ev.ProductID]
		agg.ProductID = ev.ProductID
		agg.ProductCreatedAt = p.CreatedAt
		agg.Counts.Add(ev.Type)
		out[ev.ProductID] = agg
	}
	return out, nil
}

// Leaderboard filters and orders the store's products by the board rules.
func (c *Catalog) Leaderboard(_ context.Context, q repository.LeaderboardQuery) ([]string, error) {
	c.mu.RLock()
	var qualified []*domain.Product
	for id := range c.products {
		p := c.products[id].Product
		if p.Deleted() || p.StoreID != q.StoreID || !q.Board.Qualifies(&p, q.Thresholds) {
			continue
		}
		qualified = append(qualified, &p)
	}
	c.mu.RUnlock()

	sort.Slice(qualified, func(i, j int) bool { return q.Board.Less(qualified[i], qualified[j]) })
	if len(qualified) > q.Limit {
		qualified = qualified[:q.Limit]
	}
	ids := make([]string, len(qualified))
	for i, p := range qualified {
		ids[i] = p.ID
	}
	return ids, nil
}

// Autocomplete matches name prefixes, most viewed first. An empty storeID
// searches every store.
func (c *Catalog) Autocomplete(_ context.Context, storeID, prefix string, limit int) ([]domain.ProductSuggestion, error) {
	c.mu.RLock()
	var hits []domain.ProductSuggestion
	for _, d := range c.products {
		if d.Deleted() || (storeID != "" && d.StoreID != storeID) {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(d.Name), prefix) {
			continue
		}
		hits = append(hits, domain.ProductSuggestion{
			ID:           d.ID,
			Name:         d.Name,
			ViewCount:    d.ViewCount,
			MainPhotoURL: d.MainPhotoURL,
		})
	}
	c.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].ViewCount != hits[j].ViewCount {
			return hits[i].ViewCount > hits[j].ViewCount
		}
		if hits[i].Name != hits[j].Name {
			return hits[i].Name < hits[j].Name
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []domain.ProductSuggestion{}
	}
	return hits, nil
}

// FacetSummary counts categories, price bounds and stock over the store's
// live products.
func (c *Catalog) FacetSummary(_ context.Context, storeID string) (*domain.FacetSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := &domain.FacetSummary{
		StoreID:    storeID,
		Categories: []domain.CategoryFacet{},
		PriceRange: domain.PriceRange{Min: decimal.Zero, Max: decimal.Zero},
	}
	cats := make(map[string]*domain.CategoryFacet)
	pricesSeen := false

	for _, d := range c.products {
		if d.Deleted() || d.StoreID != storeID {
			continue
		}
		for _, cat := range d.Categories {
			f, ok := cats[cat.ID]
			if !ok {
				f = &domain.CategoryFacet{ID: cat.ID, Name: cat.Name, ParentID: cat.ParentID}
				cats[cat.ID] = f
			}
			f.ProductCount++
		}

		stock := 0
		for _, v := range d.Variants {
			if !pricesSeen || v.Price.LessThan(summary.PriceRange.Min) {
				summary.PriceRange.Min = v.Price
			}
			if !pricesSeen || v.Price.GreaterThan(summary.PriceRange.Max) {
				summary.PriceRange.Max = v.Price
			}
			pricesSeen = true
			stock += v.Inventory.Quantity
		}
		if stock > 0 {
			summary.Availability.InStock++
		} else {
			summary.Availability.OutOfStock++
		}
	}

	for _, f := range cats {
		summary.Categories = append(summary.Categories, *f)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		a, b := summary.Categories[i], summary.Categories[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return summary, nil
}
