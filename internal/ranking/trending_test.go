package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
)

var now = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

func TestAgeDays(t *testing.T) {
	assert.Equal(t, 0, AgeDays(now, now))
	assert.Equal(t, 0, AgeDays(now.Add(-23*time.Hour), now))
	assert.Equal(t, 1, AgeDays(now.Add(-25*time.Hour), now))
	assert.Equal(t, 0, AgeDays(now.Add(time.Hour), now))
}

func TestRecencyBoost(t *testing.T) {
	assert.Equal(t, 100.0, RecencyBoost(0))
	assert.Equal(t, 80.0, RecencyBoost(10))
	assert.Equal(t, 2.0, RecencyBoost(49))
	assert.Equal(t, 0.0, RecencyBoost(50))
	for age := 50; age < 400; age += 7 {
		assert.Equal(t, 0.0, RecencyBoost(age))
	}
}

func TestTrendingScore(t *testing.T) {
	c := domain.EventCounts{Views: 10, Likes: 3, Sales: 2}
	assert.Equal(t, 10.0+6+10+80, TrendingScore(c, 10))
	assert.Equal(t, 26.0, TrendingScore(c, 60))
}

func TestTrending_ExcludesProductsWithoutEvents(t *testing.T) {
	aggs := map[string]domain.EventAggregate{
		"brand-new-idle": {ProductCreatedAt: now},
		"old-active":     {ProductCreatedAt: daysAgo(200), Counts: domain.EventCounts{Views: 1}},
	}
	got := Trending(aggs, now, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "old-active", got[0].ID)
	assert.Equal(t, 1.0, got[0].Score)
}

func TestTrending_OrderAndLimit(t *testing.T) {
	aggs := map[string]domain.EventAggregate{
		"a": {ProductCreatedAt: daysAgo(60), Counts: domain.EventCounts{Views: 50}},           // 50
		"b": {ProductCreatedAt: daysAgo(0), Counts: domain.EventCounts{Views: 1}},             // 101
		"c": {ProductCreatedAt: daysAgo(60), Counts: domain.EventCounts{Sales: 4, Likes: 10}}, // 40
		"d": {ProductCreatedAt: daysAgo(45), Counts: domain.EventCounts{Likes: 1}},            // 12
	}

	got := Trending(aggs, now, 3)
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))
	assert.Equal(t, 101.0, got[0].Score)
}

func TestTrending_Empty(t *testing.T) {
	assert.Empty(t, Trending(nil, now, 10))
	assert.Empty(t, Trending(map[string]domain.EventAggregate{"x": {Counts: domain.EventCounts{Views: 3}}}, now, 0))
}
