// Package ranking holds the scoring rules for relevance search, trending
// and the per-store leaderboards.
package ranking

import (
	"sort"
	"strings"
	"time"
)

// Match-quality tiers, highest first.
const (
	TierExactName    = 1000
	TierNamePrefix   = 500
	TierNameContains = 100
	TierDescContains = 50
	TierOtherMatch   = 10
)

// Engagement weights added to the tier.
const (
	viewWeight  = 0.1
	likeWeight  = 0.5
	salesWeight = 2
)

// Signals are the per-product inputs to the relevance score.
type Signals struct {
	Name        string
	Description string
	ViewCount   int
	LikeCount   int
	TotalSales  int
	CreatedAt   time.Time
}

// Tier classifies how the whole normalized query matches a product. The
// query is compared unsplit, so a multi-term query whose terms match
// separately lands in TierOtherMatch.
func Tier(query, name, description string) int {
	name = strings.ToLower(name)
	switch {
	case name == query:
		return TierExactName
	case strings.HasPrefix(name, query):
		return TierNamePrefix
	case strings.Contains(name, query):
		return TierNameContains
	case strings.Contains(strings.ToLower(description), query):
		return TierDescContains
	default:
		return TierOtherMatch
	}
}

// Relevance returns the score of a candidate for an already normalized query.
func Relevance(query string, s Signals) float64 {
	return float64(Tier(query, s.Name, s.Description)) +
		float64(s.ViewCount)*viewWeight +
		float64(s.LikeCount)*likeWeight +
		float64(s.TotalSales)*salesWeight
}

// Candidate is a product id with its scoring signals.
type Candidate struct {
	ID string
	Signals
}

// Scored is a product id with its computed score.
type Scored struct {
	ID        string
	Score     float64
	CreatedAt time.Time
}

// RankByRelevance scores candidates and orders them by score, newest first
// on ties, then by id.
func RankByRelevance(query string, candidates []Candidate) []Scored {
	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		out[i] = Scored{ID: c.ID, Score: Relevance(query, c.Signals), CreatedAt: c.CreatedAt}
	}
	sortScored(out)
	return out
}

func sortScored(s []Scored) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.After(s[j].CreatedAt)
		}
		return s[i].ID < s[j].ID
	})
}
