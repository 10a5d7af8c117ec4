// Package service implements the discovery operations: free-text and
// faceted search, autocomplete, facet summaries, leaderboards and trending.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/utafrali/ecommerce-discovery/internal/cache"
	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/internal/enrich"
	"github.com/utafrali/ecommerce-discovery/internal/query"
	"github.com/utafrali/ecommerce-discovery/internal/ranking"
	"github.com/utafrali/ecommerce-discovery/internal/repository"
	"github.com/utafrali/ecommerce-discovery/pkg/pagination"
	"github.com/utafrali/ecommerce-discovery/pkg/tracing"
)

const tracerName = "github.com/utafrali/ecommerce-discovery/internal/service"

// SearchService answers search, autocomplete and facet queries.
type SearchService struct {
	catalog  repository.Catalog
	enricher *enrich.Enricher
	cache    cache.Cache
	recorder SearchRecorder
	opts     Options
	logger   *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(
	catalog repository.Catalog,
	c cache.Cache,
	recorder SearchRecorder,
	opts Options,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		catalog:  catalog,
		enricher: enrich.New(catalog, logger),
		cache:    c,
		recorder: recorder,
		opts:     opts,
		logger:   logger,
	}
}

// Search runs a free-text search. Blank text is rejected with INVALID_QUERY.
func (s *SearchService) Search(ctx context.Context, p query.Params) (*pagination.Page[domain.ProductSummary], error) {
	return s.run(ctx, query.ModeText, p)
}

// AdvancedSearch runs a faceted search where text is optional.
func (s *SearchService) AdvancedSearch(ctx context.Context, p query.Params) (*pagination.Page[domain.ProductSummary], error) {
	return s.run(ctx, query.ModeAdvanced, p)
}

func (s *SearchService) run(ctx context.Context, mode query.Mode, p query.Params) (_ *pagination.Page[domain.ProductSummary], err error) {
	plan, err := query.Compile(mode, p, s.opts.Limits)
	if err != nil {
		return nil, err
	}

	ctx, end := tracing.Start(ctx, tracerName, "search."+mode.String())
	defer func() { end(err) }()

	set, err := s.catalog.FindMatching(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("find matching products: %w", err)
	}

	var (
		items []domain.ProductSummary
		total int
	)
	switch {
	case plan.Sort == query.SortRelevance:
		items, total, err = s.byRelevance(ctx, plan, set)
	case plan.Sort == query.SortPrice:
		items, total, err = s.byPrice(ctx, plan, set)
	default:
		items, total, err = s.pushedDown(ctx, set)
	}
	if err != nil {
		return nil, err
	}

	searchesTotal.WithLabelValues(mode.String(), string(plan.Sort)).Inc()
	searchResults.WithLabelValues(mode.String()).Observe(float64(total))
	s.recorder.RecordSearch(ctx, domain.SearchPerformed{
		Query:       plan.Query,
		StoreID:     plan.StoreID,
		ResultCount: total,
		Mode:        mode.String(),
		Sort:        string(plan.Sort),
	})

	page := pagination.NewPage(items, total, plan.Window)
	return &page, nil
}

// byRelevance scores every candidate, then enriches only the requested
// window.
func (s *SearchService) byRelevance(ctx context.Context, plan *query.Plan, set *repository.MatchSet) ([]domain.ProductSummary, int, error) {
	candidates := make([]ranking.Candidate, len(set.Matches))
	for i, m := range set.Matches {
		candidates[i] = ranking.Candidate{ID: m.ID, Signals: ranking.Signals{
			Name:        m.Name,
			Description: m.Description,
			ViewCount:   m.ViewCount,
			LikeCount:   m.LikeCount,
			TotalSales:  m.TotalSales,
			CreatedAt:   m.CreatedAt,
		}}
	}
	ranked := ranking.RankByRelevance(plan.Query, candidates)
	window := pagination.Slice(ranked, plan.Window)

	scores := make(map[string]float64, len(window))
	ids := make([]string, len(window))
	for i, r := range window {
		ids[i] = r.ID
		scores[r.ID] = r.Score
	}

	details, err := s.enrich(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	items := make([]domain.ProductSummary, len(details))
	for i := range details {
		items[i] = details[i].Summary()
		score := scores[details[i].ID]
		items[i].RelevanceScore = &score
	}
	return items, len(ranked), nil
}

// byPrice enriches the whole match set because the minimum variant price is
// only known after enrichment.
func (s *SearchService) byPrice(ctx context.Context, plan *query.Plan, set *repository.MatchSet) ([]domain.ProductSummary, int, error) {
	ids := make([]string, len(set.Matches))
	for i, m := range set.Matches {
		ids[i] = m.ID
	}
	details, err := s.enrich(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(details, func(i, j int) bool { return query.LessByPrice(&details[i], &details[j]) })

	window := pagination.Slice(details, plan.Window)
	return summaries(window), len(details), nil
}

func (s *SearchService) pushedDown(ctx context.Context, set *repository.MatchSet) ([]domain.ProductSummary, int, error) {
	ids := make([]string, len(set.Matches))
	for i, m := range set.Matches {
		ids[i] = m.ID
	}
	details, err := s.enrich(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return summaries(details), set.Total, nil
}

func (s *SearchService) enrich(ctx context.Context, ids []string) ([]domain.ProductDetail, error) {
	details, err := s.enricher.Enrich(ctx, ids)
	if err != nil {
		return nil, err
	}
	if dropped := len(ids) - len(details); dropped > 0 {
		enrichmentDrops.Add(float64(dropped))
	}
	return details, nil
}

func summaries(details []domain.ProductDetail) []domain.ProductSummary {
	out := make([]domain.ProductSummary, len(details))
	for i := range details {
		out[i] = details[i].Summary()
	}
	return out
}

// Autocomplete suggests products whose name starts with prefix. Prefixes
// shorter than the configured minimum yield an empty list, not an error.
func (s *SearchService) Autocomplete(ctx context.Context, storeID, prefix string, limit int) ([]domain.ProductSuggestion, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if utf8.RuneCountInString(prefix) < s.opts.AutocompleteMinPrefix {
		return []domain.ProductSuggestion{}, nil
	}
	limit = clampLimit(limit, DefaultAutocompleteLimit, MaxAutocompleteLimit)

	out, err := s.catalog.Autocomplete(ctx, strings.TrimSpace(storeID), prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}
	return out, nil
}

// Facets summarizes the filter values available in a store.
func (s *SearchService) Facets(ctx context.Context, storeID string) (*domain.FacetSummary, error) {
	return cached(ctx, s.cache, s.logger, storeID, "facets", func() (*domain.FacetSummary, error) {
		summary, err := s.catalog.FacetSummary(ctx, storeID)
		if err != nil {
			return nil, fmt.Errorf("facet summary: %w", err)
		}
		return summary, nil
	})
}

// clampLimit applies def to non-positive limits and caps them at ceiling.
func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, ceiling)
}
