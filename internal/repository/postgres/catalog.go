// Package postgres implements the catalog read interface over the
// relational schema in migrations/.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/internal/query"
	"github.com/utafrali/ecommerce-discovery/internal/ranking"
	"github.com/utafrali/ecommerce-discovery/internal/repository"
	"github.com/utafrali/ecommerce-discovery/pkg/database"
)

var _ repository.Catalog = (*Catalog)(nil)

// Catalog implements repository.Catalog using PostgreSQL.
type Catalog struct {
	db database.DBTX
}

// NewCatalog creates a PostgreSQL-backed catalog.
func NewCatalog(db database.DBTX) *Catalog {
	return &Catalog{db: db}
}

// FindMatching runs the id-selection round trip for a plan.
func (c *Catalog) FindMatching(ctx context.Context, plan *query.Plan) (_ *repository.MatchSet, err error) {
	stmt, params, pushdown := renderMatch(plan)
	ctx, end := database.TraceQuery(ctx, "FindMatching", stmt)
	defer func() { end(err) }()

	rows, err := c.db.Query(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("find matching products: %w", err)
	}
	defer rows.Close()

	set := &repository.MatchSet{Matches: []repository.Match{}}
	for rows.Next() {
		var m repository.Match
		dest := []any{&m.ID, &m.Name, &m.Description, &m.ViewCount, &m.LikeCount, &m.TotalSales, &m.CreatedAt}
		if pushdown {
			dest = append(dest, &set.Total)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan matching product: %w", err)
		}
		set.Matches = append(set.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matching products: %w", err)
	}

	if !pushdown {
		set.Total = len(set.Matches)
	}
	return set, nil
}

const detailQuery = `
		SELECT p.id, p.store_id, s.name, p.name, p.description, p.average_rating::float8,
			   p.review_count, p.like_count, p.view_count, p.total_sales, p.created_at,
			   COALESCE((
				   SELECT json_agg(json_build_object(
						   'id', v.id, 'sku', v.sku, 'price', v.price, 'attributes', v.attributes,
						   'quantity', COALESCE(i.quantity, 0)) ORDER BY v.price, v.id)
				   FROM product_variants v
				   LEFT JOIN inventory i ON i.variant_id = v.id
				   WHERE v.product_id = p.id), '[]') AS variants,
			   COALESCE((
				   SELECT json_agg(json_build_object('id', c.id, 'name', c.name, 'parent_id', c.parent_id) ORDER BY c.name, c.id)
				   FROM product_categories pc
				   JOIN categories c ON c.id = pc.category_id
				   WHERE pc.product_id = p.id), '[]') AS categories,
			   COALESCE((
				   SELECT ph.url FROM product_photos ph
				   WHERE ph.product_id = p.id
				   ORDER BY ph.is_main DESC, ph.position, ph.id
				   LIMIT 1), '') AS main_photo_url
		FROM products p
		JOIN stores s ON s.id = p.store_id
		WHERE p.id = ANY($1) AND p.deleted_at IS NULL`

type variantRow struct {
	ID         string            `json:"id"`
	SKU        string            `json:"sku"`
	Price      decimal.Decimal   `json:"price"`
	Attributes map[string]string `json:"attributes"`
	Quantity   int               `json:"quantity"`
}

// FetchDetail loads every relation of the requested products in a single
// round trip. Variants, categories and the main photo are correlated
// subqueries keyed on the product so prices never mix across products.
func (c *Catalog) FetchDetail(ctx context.Context, ids []string) (_ []domain.ProductDetail, err error) {
	if len(ids) == 0 {
		return []domain.ProductDetail{}, nil
	}
	ctx, end := database.TraceQuery(ctx, "FetchDetail", detailQuery)
	defer func() { end(err) }()

	rows, err := c.db.Query(ctx, detailQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch product detail: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProductDetail, 0, len(ids))
	for rows.Next() {
		var (
			d                      domain.ProductDetail
			variantsJSON, catsJSON []byte
		)
		if err := rows.Scan(
			&d.ID, &d.StoreID, &d.Store.Name, &d.Name, &d.Description, &d.AverageRating,
			&d.ReviewCount, &d.LikeCount, &d.ViewCount, &d.TotalSales, &d.CreatedAt,
			&variantsJSON, &catsJSON, &d.MainPhotoURL,
		); err != nil {
			return nil, fmt.Errorf("scan product detail: %w", err)
		}
		d.Store.ID = d.StoreID

		var variants []variantRow
		if err := json.Unmarshal(variantsJSON, &variants); err != nil {
			return nil, fmt.Errorf("decode variants of %s: %w", d.ID, err)
		}
		d.Variants = make([]domain.ProductVariant, len(variants))
		for i, v := range variants {
			d.Variants[i] = domain.ProductVariant{
				ID:         v.ID,
				ProductID:  d.ID,
				SKU:        v.SKU,
				Price:      v.Price,
				Attributes: v.Attributes,
				Inventory:  domain.Inventory{VariantID: v.ID, Quantity: v.Quantity},
			}
		}

		if err := json.Unmarshal(catsJSON, &d.Categories); err != nil {
			return nil, fmt.Errorf("decode categories of %s: %w", d.ID, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product detail: %w", err)
	}
	return out, nil
}

const eventAggregateQuery = `
		SELECT e.product_id, p.created_at,
			   count(*) FILTER (WHERE e.event_type = 'view')     AS views,
			   count(*) FILTER (WHERE e.event_type = 'like')     AS likes,
			   count(*) FILTER (WHERE e.event_type = 'purchase') AS sales
		FROM analytics_events e
		JOIN products p ON p.id = e.product_id
		WHERE p.store_id = $1 AND p.deleted_at IS NULL AND e.created_at >= $2
		GROUP BY e.product_id, p.created_at`

// FetchEventAggregates groups the store's events since the given time by
// product and type.
func (c *Catalog) FetchEventAggregates(ctx context.Context, storeID string, since time.Time) (_ map[string]domain.EventAggregate, err error) {
	ctx, end := database.TraceQuery(ctx, "FetchEventAggregates", eventAggregateQuery)
	defer func() { end(err) }()

	rows, err := c.db.Query(ctx, eventAggregateQuery, storeID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch event aggregates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.EventAggregate)
	for rows.Next() {
		var a domain.EventAggregate
		if err := rows.Scan(&a.ProductID, &a.ProductCreatedAt, &a.Counts.Views, &a.Counts.Likes, &a.Counts.Sales); err != nil {
			return nil, fmt.Errorf("scan event aggregate: %w", err)
		}
		out[a.ProductID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event aggregates: %w", err)
	}
	return out, nil
}

// renderLeaderboard builds the filter and order for a board. The comparison
// mirrors ranking.Board.Less.
func renderLeaderboard(q repository.LeaderboardQuery) (string, []any, error) {
	var a args
	conds := "p.deleted_at IS NULL AND p.store_id = " + a.add(q.StoreID)
	var order string

	switch q.Board {
	case ranking.BoardViews:
		conds += " AND p.view_count > 0"
		order = "p.view_count DESC, p.id ASC"
	case ranking.BoardSales:
		conds += " AND p.total_sales > 0"
		order = "p.total_sales DESC, p.id ASC"
	case ranking.BoardRated:
		conds += " AND p.average_rating IS NOT NULL AND p.review_count >= " + a.add(q.Thresholds.MinReviews)
		order = "p.average_rating DESC, p.review_count DESC, p.id ASC"
	case ranking.BoardConversion:
		conds += " AND p.view_count > 0 AND p.view_count >= " + a.add(q.Thresholds.MinViews) + " AND p.total_sales > 0"
		order = "(p.total_sales::float8 / p.view_count) DESC, p.total_sales DESC, p.id ASC"
	default:
		return "", nil, fmt.Errorf("unknown leaderboard %q", q.Board)
	}

	stmt := fmt.Sprintf(`
		SELECT p.id
		FROM products p
		WHERE %s
		ORDER BY %s
		LIMIT %s`, conds, order, a.add(q.Limit))
	return stmt, a, nil
}

// Leaderboard returns the ordered ids for a board.
func (c *Catalog) Leaderboard(ctx context.Context, q repository.LeaderboardQuery) (_ []string, err error) {
	stmt, params, err := renderLeaderboard(q)
	if err != nil {
		return nil, err
	}
	ctx, end := database.TraceQuery(ctx, "Leaderboard", stmt)
	defer func() { end(err) }()

	rows, err := c.db.Query(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s leaderboard: %w", q.Board, err)
	}
	defer rows.Close()

	ids := make([]string, 0, q.Limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return ids, nil
}

// Autocomplete matches name prefixes, most viewed first. An empty storeID
// searches every store.
func (c *Catalog) Autocomplete(ctx context.Context, storeID, prefix string, limit int) (_ []domain.ProductSuggestion, err error) {
	var a args
	conds := "p.deleted_at IS NULL AND starts_with(lower(p.name), " + a.add(prefix) + ")"
	if storeID != "" {
		conds += " AND p.store_id = " + a.add(storeID)
	}
	stmt := fmt.Sprintf(`
		SELECT p.id, p.name, p.view_count,
			   COALESCE((
				   SELECT ph.url FROM product_photos ph
				   WHERE ph.product_id = p.id
				   ORDER BY ph.is_main DESC, ph.position, ph.id
				   LIMIT 1), '') AS main_photo_url
		FROM products p
		WHERE %s
		ORDER BY p.view_count DESC, p.name COLLATE "C" ASC, p.id ASC
		LIMIT %s`, conds, a.add(limit))

	ctx, end := database.TraceQuery(ctx, "Autocomplete", stmt)
	defer func() { end(err) }()

	rows, err := c.db.Query(ctx, stmt, a...)
	if err != nil {
		return nil, fmt.Errorf("autocomplete products: %w", err)
	}
	defer rows.Close()

	out := []domain.ProductSuggestion{}
	for rows.Next() {
		var s domain.ProductSuggestion
		if err := rows.Scan(&s.ID, &s.Name, &s.ViewCount, &s.MainPhotoURL); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}
	return out, nil
}

const categoryFacetQuery = `
		SELECT c.id, c.name, c.parent_id, count(DISTINCT p.id) AS product_count
		FROM categories c
		JOIN product_categories pc ON pc.category_id = c.id
		JOIN products p ON p.id = pc.product_id
		WHERE p.store_id = $1 AND p.deleted_at IS NULL
		GROUP BY c.id, c.name, c.parent_id
		ORDER BY c.name COLLATE "C" ASC, c.id ASC`

const stockFacetQuery = `
		WITH live AS (
			SELECT p.id FROM products p WHERE p.store_id = $1 AND p.deleted_at IS NULL
		), stock AS (
			SELECT l.id, COALESCE(sum(i.quantity), 0) AS qty
			FROM live l
			LEFT JOIN product_variants v ON v.product_id = l.id
			LEFT JOIN inventory i ON i.variant_id = v.id
			GROUP BY l.id
		)
		SELECT COALESCE((SELECT min(v.price) FROM product_variants v JOIN live l ON l.id = v.product_id), 0),
			   COALESCE((SELECT max(v.price) FROM product_variants v JOIN live l ON l.id = v.product_id), 0),
			   (SELECT count(*) FROM stock WHERE qty > 0),
			   (SELECT count(*) FROM stock WHERE qty = 0)`

// FacetSummary computes category counts, the price span and availability
// for a store's live products.
func (c *Catalog) FacetSummary(ctx context.Context, storeID string) (_ *domain.FacetSummary, err error) {
	ctx, end := database.TraceQuery(ctx, "FacetSummary", categoryFacetQuery)
	defer func() { end(err) }()

	rows, err := c.db.Query(ctx, categoryFacetQuery, storeID)
	if err != nil {
		return nil, fmt.Errorf("query category facets: %w", err)
	}
	defer rows.Close()

	summary := &domain.FacetSummary{StoreID: storeID, Categories: []domain.CategoryFacet{}}
	for rows.Next() {
		var f domain.CategoryFacet
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.ProductCount); err != nil {
			return nil, fmt.Errorf("scan category facet: %w", err)
		}
		summary.Categories = append(summary.Categories, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category facets: %w", err)
	}
	rows.Close()

	err = c.db.QueryRow(ctx, stockFacetQuery, storeID).Scan(
		&summary.PriceRange.Min, &summary.PriceRange.Max,
		&summary.Availability.InStock, &summary.Availability.OutOfStock,
	)
	if err != nil {
		return nil, fmt.Errorf("query price and stock facets: %w", err)
	}
	return summary, nil
}
