// Package enrich attaches relational detail and derived aggregates to an
// ordered page of product ids.
package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/pkg/logger"
)

// DetailFetcher loads product detail for a set of ids in any order.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, ids []string) ([]domain.ProductDetail, error)
}

// Enricher turns product ids into fully populated details.
type Enricher struct {
	fetcher DetailFetcher
	logger  *slog.Logger
}

// New creates an Enricher backed by fetcher.
func New(fetcher DetailFetcher, logger *slog.Logger) *Enricher {
	return &Enricher{fetcher: fetcher, logger: logger}
}

// Enrich fetches detail for ids and returns it in exactly the order of ids.
// Ids that are missing or soft-deleted at fetch time are dropped.
func (e *Enricher) Enrich(ctx context.Context, ids []string) ([]domain.ProductDetail, error) {
	if len(ids) == 0 {
		return []domain.ProductDetail{}, nil
	}

	details, err := e.fetcher.FetchDetail(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch product detail: %w", err)
	}

	byID := make(map[string]*domain.ProductDetail, len(details))
	for i := range details {
		byID[details[i].ID] = &details[i]
	}

	out := make([]domain.ProductDetail, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		d, ok := byID[id]
		if !ok || d.Deleted() {
			logger.WithContext(ctx, e.logger).DebugContext(ctx, "dropping product missing at enrichment",
				slog.String("product_id", id),
			)
			continue
		}
		Aggregate(d)
		out = append(out, *d)
	}
	return out, nil
}

// Aggregate computes price bounds and stock totals from the variants d owns.
// A product without variants has zero prices and no stock.
func Aggregate(d *domain.ProductDetail) {
	d.MinPrice, d.MaxPrice = decimal.Zero, decimal.Zero
	d.TotalStock = 0
	for i, v := range d.Variants {
		if i == 0 || v.Price.LessThan(d.MinPrice) {
			d.MinPrice = v.Price
		}
		if i == 0 || v.Price.GreaterThan(d.MaxPrice) {
			d.MaxPrice = v.Price
		}
		d.TotalStock += v.Inventory.Quantity
	}
	d.InStock = d.TotalStock > 0
}
