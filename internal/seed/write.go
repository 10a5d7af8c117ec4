package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/utafrali/ecommerce-discovery/internal/repository/memory"
)

// WriteFile stores s in the format read by memory.Catalog.LoadFile.
func WriteFile(path string, s *memory.Seed) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write seed file: %w", err)
	}
	return nil
}

// Copier is the bulk-load subset of pgx used by Load. *pgxpool.Pool and
// pgx.Tx both satisfy it.
type Copier interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

type table struct {
	name    string
	columns []string
	rows    [][]any
}

// Load bulk-inserts s into the catalog tables in foreign key order. Callers
// wanting all-or-nothing semantics pass a transaction.
func Load(ctx context.Context, db Copier, s *memory.Seed, logger *slog.Logger) error {
	tables, err := tables(s)
	if err != nil {
		return err
	}
	for _, t := range tables {
		n, err := db.CopyFrom(ctx, pgx.Identifier{t.name}, t.columns, pgx.CopyFromRows(t.rows))
		if err != nil {
			return fmt.Errorf("copy %s: %w", t.name, err)
		}
		logger.Info("seeded table", slog.String("table", t.name), slog.Int64("rows", n))
	}
	return nil
}

func tables(s *memory.Seed) ([]table, error) {
	stores := table{name: "stores", columns: []string{"id", "name"}}
	categories := table{name: "categories", columns: []string{"id", "name", "parent_id"}}
	products := table{name: "products", columns: []string{
		"id", "store_id", "name", "description", "average_rating", "review_count",
		"like_count", "view_count", "total_sales", "created_at", "deleted_at",
	}}
	links := table{name: "product_categories", columns: []string{"product_id", "category_id"}}
	variants := table{name: "product_variants", columns: []string{"id", "product_id", "sku", "price", "attributes"}}
	inventory := table{name: "inventory", columns: []string{"variant_id", "quantity"}}
	photos := table{name: "product_photos", columns: []string{"id", "product_id", "url", "is_main", "position"}}
	events := table{name: "analytics_events", columns: []string{"product_id", "event_type", "created_at"}}

	seenStore := make(map[string]bool)
	seenCategory := make(map[string]bool)

	for _, d := range s.Products {
		id, err := parseID("product", d.ID)
		if err != nil {
			return nil, err
		}
		storeID, err := parseID("store", d.StoreID)
		if err != nil {
			return nil, err
		}

		if !seenStore[d.StoreID] {
			seenStore[d.StoreID] = true
			stores.rows = append(stores.rows, []any{storeID, d.Store.Name})
		}

		products.rows = append(products.rows, []any{
			id, storeID, d.Name, d.Description, d.AverageRating, d.ReviewCount,
			d.LikeCount, d.ViewCount, d.TotalSales, d.CreatedAt, d.DeletedAt,
		})

		for _, c := range d.Categories {
			catID, err := parseID("category", c.ID)
			if err != nil {
				return nil, err
			}
			if !seenCategory[c.ID] {
				seenCategory[c.ID] = true
				var parent *uuid.UUID
				if c.ParentID != nil {
					p, err := parseID("category parent", *c.ParentID)
					if err != nil {
						return nil, err
					}
					parent = &p
				}
				categories.rows = append(categories.rows, []any{catID, c.Name, parent})
			}
			links.rows = append(links.rows, []any{id, catID})
		}

		for _, v := range d.Variants {
			variantID, err := parseID("variant", v.ID)
			if err != nil {
				return nil, err
			}
			attrs := v.Attributes
			if attrs == nil {
				attrs = map[string]string{}
			}
			variants.rows = append(variants.rows, []any{variantID, id, v.SKU, numeric(v.Price), attrs})
			inventory.rows = append(inventory.rows, []any{variantID, v.Inventory.Quantity})
		}

		if d.MainPhotoURL != "" {
			photos.rows = append(photos.rows, []any{uuid.NewSHA1(namespace, []byte("photo:"+d.ID)), id, d.MainPhotoURL, true, 0})
		}
	}

	for _, e := range s.Events {
		productID, err := parseID("event product", e.ProductID)
		if err != nil {
			return nil, err
		}
		events.rows = append(events.rows, []any{productID, string(e.Type), e.CreatedAt})
	}

	return []table{stores, categories, products, links, variants, inventory, photos, events}, nil
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("seed %s id %q: %w", kind, raw, err)
	}
	return id, nil
}

// numeric converts without going through float64 so prices stay exact.
func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
