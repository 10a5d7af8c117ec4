package ranking

import (
	"time"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
)

const (
	maxRecencyBoost    = 100
	recencyDecayPerDay = 2

	trendViewWeight  = 1
	trendLikeWeight  = 2
	trendSalesWeight = 5
)

// AgeDays is the number of whole days between createdAt and now. Products
// created in the future count as age 0.
func AgeDays(createdAt, now time.Time) int {
	if !now.After(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt) / (24 * time.Hour))
}

// RecencyBoost decays linearly from 100 at age 0 to 0 at 50 days.
func RecencyBoost(ageDays int) float64 {
	boost := maxRecencyBoost - ageDays*recencyDecayPerDay
	if boost < 0 {
		return 0
	}
	return float64(boost)
}

// TrendingScore combines window activity with the recency boost.
func TrendingScore(c domain.EventCounts, ageDays int) float64 {
	return float64(c.Views*trendViewWeight+c.Likes*trendLikeWeight+c.Sales*trendSalesWeight) +
		RecencyBoost(ageDays)
}

// Trending scores every product with activity in the window and returns the
// top limit, highest score first. Products without events are skipped even
// though their recency boost alone would be positive.
func Trending(aggs map[string]domain.EventAggregate, now time.Time, limit int) []Scored {
	out := make([]Scored, 0, len(aggs))
	for id, a := range aggs {
		if a.Counts.Empty() {
			continue
		}
		score := TrendingScore(a.Counts, AgeDays(a.ProductCreatedAt, now))
		if score <= 0 {
			continue
		}
		out = append(out, Scored{ID: id, Score: score, CreatedAt: a.ProductCreatedAt})
	}
	sortScored(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
