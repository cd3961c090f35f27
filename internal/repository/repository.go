package repository

import (
	"context"

	"github.com/utafrali/storefront-search/internal/domain"
)

// CandidateFilter selects published, active products for a search.
type CandidateFilter struct {
	// Query is the normalized text matched case-insensitively against name,
	// description, short description and SKU.
	Query      string
	CategoryID *string
	MinPrice   *int64
	MaxPrice   *int64
	InStock    bool

	// SortBy is one of the domain sort modes. Relevance is ordered by
	// newest first; the caller ranks the window afterwards.
	SortBy string
	Order  string

	Limit  int
	Offset int
}

// SuggestionFilter selects autocomplete candidates by name.
type SuggestionFilter struct {
	Query string
	Limit int
}

// CandidateRepository is the read side of the product catalog.
//
// Every ordering breaks ties by id ascending so successive windows over the
// same filter are reproducible.
type CandidateRepository interface {
	// FindMatching returns one window of matches and the total number of
	// matches for the filter, independent of the window.
	FindMatching(ctx context.Context, filter CandidateFilter) ([]domain.Candidate, int, error)
	// SuggestByName returns name matches, featured first then by name.
	SuggestByName(ctx context.Context, filter SuggestionFilter) ([]domain.Suggestion, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
