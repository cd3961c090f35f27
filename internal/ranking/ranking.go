// Package ranking scores search candidates with a fixed set of weighted
// signals.
package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/utafrali/storefront-search/internal/domain"
)

// Signal weights.
const (
	WeightExactName        = 100
	WeightExactSKU         = 80
	WeightNamePrefix       = 50
	WeightNameSubstring    = 30
	WeightShortDescription = 15
	WeightDescription      = 10
	WeightFeatured         = 20
	WeightInStock          = 10
	WeightRecent           = 5
)

// RecentWindow is how long after creation a product counts as new.
const RecentWindow = 30 * 24 * time.Hour

// RankedCandidate pairs a candidate with its relevance score. It is never
// serialized; Candidates strips the scores before results leave the ranker.
type RankedCandidate struct {
	Candidate domain.Candidate
	Score     int
}

// Ranker computes relevance scores relative to a clock.
type Ranker struct {
	now func() time.Time
}

// New creates a Ranker using the wall clock.
func New() *Ranker {
	return &Ranker{now: time.Now}
}

// NewWithClock creates a Ranker with a custom time source.
func NewWithClock(now func() time.Time) *Ranker {
	return &Ranker{now: now}
}

// Score returns the relevance of c for an already-normalized query.
// Only the strongest name signal counts; the rest are additive.
func (r *Ranker) Score(c domain.Candidate, query string) int {
	score := nameScore(strings.ToLower(c.Name), query)

	if query != "" && strings.ToLower(c.SKU) == query {
		score += WeightExactSKU
	}
	if query != "" && strings.Contains(strings.ToLower(c.ShortDescription), query) {
		score += WeightShortDescription
	}
	if query != "" && strings.Contains(strings.ToLower(c.Description), query) {
		score += WeightDescription
	}
	if c.IsFeatured {
		score += WeightFeatured
	}
	if c.StockQuantity > 0 {
		score += WeightInStock
	}
	if !c.CreatedAt.IsZero() && r.now().Sub(c.CreatedAt) <= RecentWindow {
		score += WeightRecent
	}
	return score
}

func nameScore(name, query string) int {
	switch {
	case query == "":
		return 0
	case name == query:
		return WeightExactName
	case strings.HasPrefix(name, query):
		return WeightNamePrefix
	case strings.Contains(name, query):
		return WeightNameSubstring
	default:
		return 0
	}
}

// Rank scores candidates and orders them by descending score. Candidates
// with equal scores keep their input order.
func (r *Ranker) Rank(candidates []domain.Candidate, query string) []RankedCandidate {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedCandidate{Candidate: c, Score: r.Score(c, query)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Candidates drops the scores, preserving order.
func Candidates(ranked []RankedCandidate) []domain.Candidate {
	out := make([]domain.Candidate, len(ranked))
	for i, rc := range ranked {
		out[i] = rc.Candidate
	}
	return out
}
