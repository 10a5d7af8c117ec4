// Package seed generates deterministic demo catalogs for local runs and
// load tests, either as a JSON file for the memory catalog or straight into
// the Postgres read model.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	"github.com/utafrali/ecommerce-discovery/internal/repository/memory"
)

// Options size the generated catalog.
type Options struct {
	Stores           int
	ProductsPerStore int
	// EventDays is how far back analytics events are spread.
	EventDays int
	// RandSeed makes runs reproducible.
	RandSeed int64
}

// DefaultOptions returns a small catalog suitable for local development.
func DefaultOptions() Options {
	return Options{Stores: 2, ProductsPerStore: 200, EventDays: 30, RandSeed: 42}
}

var namespace = uuid.MustParse("5b0f3c1e-8d7a-4c52-9a61-2f4e8b9d0c17")

// deterministicID derives a stable UUID from kind and index so re-runs
// produce the same ids.
func deterministicID(kind string, index int) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s:%d", kind, index))).String()
}

var (
	adjectives = []string{
		"Classic", "Slim", "Oversized", "Linen", "Pleated", "Quilted", "Organic",
		"Vintage", "Ribbed", "Waterproof", "Lightweight", "Embroidered",
	}
	nouns = []string{
		"Shirt", "Dress", "Jacket", "Trousers", "Sneaker", "Boot", "Scarf",
		"Cardigan", "Skirt", "Coat", "Sandal", "Backpack",
	}
	categoryNames = []string{
		"Tops", "Bottoms", "Outerwear", "Footwear", "Accessories", "Sale",
	}
	sizes = []string{"S", "M", "L"}
)

// Generate builds a catalog. now anchors product ages and event times.
func Generate(opts Options, now time.Time) *memory.Seed {
	rng := rand.New(rand.NewSource(opts.RandSeed))

	categories := make([]domain.Category, len(categoryNames))
	for i, name := range categoryNames {
		categories[i] = domain.Category{ID: deterministicID("category", i), Name: name}
	}

	out := &memory.Seed{}
	for s := 0; s < opts.Stores; s++ {
		store := domain.Store{ID: deterministicID("store", s), Name: fmt.Sprintf("Store %d", s+1)}

		for n := 0; n < opts.ProductsPerStore; n++ {
			idx := s*opts.ProductsPerStore + n
			d := product(rng, idx, store, categories, now)
			out.Products = append(out.Products, d)
			out.Events = append(out.Events, events(rng, &d, opts.EventDays, now)...)
		}
	}
	return out
}

func product(rng *rand.Rand, idx int, store domain.Store, categories []domain.Category, now time.Time) domain.ProductDetail {
	id := deterministicID("product", idx)
	adj := adjectives[rng.Intn(len(adjectives))]
	noun := nouns[rng.Intn(len(nouns))]

	views := rng.Intn(5000)
	d := domain.ProductDetail{
		Product: domain.Product{
			ID:          id,
			StoreID:     store.ID,
			Name:        fmt.Sprintf("%s %s %d", adj, noun, idx+1),
			Description: fmt.Sprintf("A %s %s from %s.", strings.ToLower(adj), strings.ToLower(noun), store.Name),
			ViewCount:   views,
			LikeCount:   rng.Intn(views/10 + 1),
			TotalSales:  rng.Intn(views/20 + 1),
			CreatedAt:   now.Add(-time.Duration(rng.Intn(120*24)) * time.Hour).Truncate(time.Second),
		},
		Store:        store,
		MainPhotoURL: fmt.Sprintf("https://cdn.example.com/products/%s/main.jpg", id),
	}

	if reviews := rng.Intn(40); reviews > 0 {
		r := float64(20+rng.Intn(31)) / 10 // 2.0-5.0
		d.AverageRating = &r
		d.ReviewCount = reviews
	}

	// One or two categories, never the same twice.
	first := rng.Intn(len(categories))
	d.Categories = []domain.Category{categories[first]}
	if rng.Intn(3) == 0 {
		d.Categories = append(d.Categories, categories[(first+1)%len(categories)])
	}

	base := decimal.NewFromInt(int64(10 + rng.Intn(190))).Add(decimal.New(99, -2))
	variants := 1 + rng.Intn(len(sizes))
	for v := 0; v < variants; v++ {
		variantID := deterministicID("variant", idx*len(sizes)+v)
		qty := rng.Intn(60)
		if rng.Intn(5) == 0 {
			qty = 0
		}
		d.Variants = append(d.Variants, domain.ProductVariant{
			ID:         variantID,
			ProductID:  id,
			SKU:        fmt.Sprintf("SKU-%06d-%s", idx+1, sizes[v]),
			Price:      base.Add(decimal.NewFromInt(int64(v * 5))),
			Attributes: map[string]string{"size": sizes[v]},
			Inventory:  domain.Inventory{VariantID: variantID, Quantity: qty},
		})
	}
	return d
}

// events spreads a slice of the product's counters over the window so the
// trending board has something to rank.
func events(rng *rand.Rand, d *domain.ProductDetail, days int, now time.Time) []domain.AnalyticsEvent {
	if days <= 0 {
		return nil
	}
	window := time.Duration(days) * 24 * time.Hour
	emit := func(t domain.EventType, n int) []domain.AnalyticsEvent {
		out := make([]domain.AnalyticsEvent, n)
		for i := range out {
			out[i] = domain.AnalyticsEvent{
				ProductID: d.ID,
				Type:      t,
				CreatedAt: now.Add(-time.Duration(rng.Int63n(int64(window)))).Truncate(time.Second),
			}
		}
		return out
	}

	var out []domain.AnalyticsEvent
	out = append(out, emit(domain.EventView, d.ViewCount/50)...)
	out = append(out, emit(domain.EventLike, d.LikeCount/10)...)
	out = append(out, emit(domain.EventPurchase, d.TotalSales/5)...)
	return out
}
