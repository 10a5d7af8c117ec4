package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ecommerce-discovery/internal/query"
	"github.com/utafrali/ecommerce-discovery/internal/repository/memory"
	"github.com/utafrali/ecommerce-discovery/pkg/database"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func small() Options {
	return Options{Stores: 2, ProductsPerStore: 15, EventDays: 7, RandSeed: 7}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(small(), now)
	b := Generate(small(), now)
	assert.Equal(t, a, b)

	other := small()
	other.RandSeed = 8
	assert.NotEqual(t, a.Products[0].Name, Generate(other, now).Products[0].Name)
}

func TestGenerate_Shape(t *testing.T) {
	s := Generate(small(), now)
	require.Len(t, s.Products, 30)

	stores := make(map[string]bool)
	for _, d := range s.Products {
		stores[d.StoreID] = true
		_, err := uuid.Parse(d.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, d.Variants, d.ID)
		assert.NotEmpty(t, d.Categories, d.ID)
		assert.False(t, d.CreatedAt.After(now))
		if d.AverageRating != nil {
			assert.InDelta(t, 3.5, *d.AverageRating, 1.5)
			assert.Positive(t, d.ReviewCount)
		}
		for _, v := range d.Variants {
			assert.True(t, v.Price.IsPositive())
			assert.Equal(t, d.ID, v.ProductID)
		}
	}
	assert.Len(t, stores, 2)

	window := now.AddDate(0, 0, -7)
	for _, e := range s.Events {
		assert.False(t, e.CreatedAt.Before(window), e.ProductID)
		assert.False(t, e.CreatedAt.After(now), e.ProductID)
	}
}

func TestWriteFile_LoadsIntoMemoryCatalog(t *testing.T) {
	s := Generate(small(), now)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, WriteFile(path, s))

	c := memory.New()
	require.NoError(t, c.LoadFile(path))

	plan, err := query.Compile(query.ModeAdvanced, query.Params{StoreID: s.Products[0].StoreID}, query.DefaultLimits())
	require.NoError(t, err)
	set, err := c.FindMatching(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 15, set.Total)
}

func TestLoad_CopiesTablesInOrder(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	s := Generate(Options{Stores: 1, ProductsPerStore: 1, EventDays: 0, RandSeed: 1}, now)
	d := s.Products[0]

	mock.ExpectCopyFrom(pgx.Identifier{"stores"}, []string{"id", "name"}).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"categories"}, []string{"id", "name", "parent_id"}).
		WillReturnResult(int64(len(d.Categories)))
	mock.ExpectCopyFrom(pgx.Identifier{"products"}, []string{
		"id", "store_id", "name", "description", "average_rating", "review_count",
		"like_count", "view_count", "total_sales", "created_at", "deleted_at",
	}).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"product_categories"}, []string{"product_id", "category_id"}).
		WillReturnResult(int64(len(d.Categories)))
	mock.ExpectCopyFrom(pgx.Identifier{"product_variants"}, []string{"id", "product_id", "sku", "price", "attributes"}).
		WillReturnResult(int64(len(d.Variants)))
	mock.ExpectCopyFrom(pgx.Identifier{"inventory"}, []string{"variant_id", "quantity"}).
		WillReturnResult(int64(len(d.Variants)))
	mock.ExpectCopyFrom(pgx.Identifier{"product_photos"}, []string{"id", "product_id", "url", "is_main", "position"}).
		WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"analytics_events"}, []string{"product_id", "event_type", "created_at"}).
		WillReturnResult(0)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, Load(context.Background(), mock, s, logger))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_StopsOnCopyError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("permission denied for table stores")
	mock.ExpectCopyFrom(pgx.Identifier{"stores"}, []string{"id", "name"}).WillReturnError(boom)

	s := Generate(Options{Stores: 1, ProductsPerStore: 1, RandSeed: 1}, now)
	err = Load(context.Background(), mock, s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "copy stores")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_RejectsNonUUIDIDs(t *testing.T) {
	s := Generate(Options{Stores: 1, ProductsPerStore: 1, RandSeed: 1}, now)
	s.Products[0].ID = "p1"

	err := Load(context.Background(), nil, s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `seed product id "p1"`)
}
