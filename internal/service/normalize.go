package service

import (
	"fmt"

	"github.com/utafrali/storefront-search/internal/domain"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
	"github.com/utafrali/storefront-search/pkg/pagination"
)

// normalizeSearch returns a copy of query with defaults applied and the text
// normalized, or an InvalidInput error. The caller's query is not modified.
func normalizeSearch(query *domain.SearchQuery) (*domain.SearchQuery, pagination.Window, error) {
	if query == nil {
		return nil, pagination.Window{}, apperrors.InvalidInput("search query is required")
	}

	q := *query
	q.Query = domain.NormalizeQuery(q.Query)

	if q.SortBy == "" {
		q.SortBy = domain.SortRelevance
	}
	if !domain.IsValidSort(q.SortBy) {
		return nil, pagination.Window{}, apperrors.InvalidInput(
			fmt.Sprintf("sort must be one of relevance, name, price, date; got %q", q.SortBy))
	}

	if q.Order == "" {
		q.Order = domain.OrderDesc
	}
	if !domain.IsValidOrder(q.Order) {
		return nil, pagination.Window{}, apperrors.InvalidInput(
			fmt.Sprintf("order must be asc or desc; got %q", q.Order))
	}

	window, err := pagination.Window{Limit: q.Limit, Offset: q.Offset}.
		Normalize(pagination.DefaultLimit, pagination.MaxLimit)
	if err != nil {
		return nil, pagination.Window{}, apperrors.InvalidInput(err.Error())
	}
	q.Limit, q.Offset = window.Limit, window.Offset

	if q.MinPrice != nil && *q.MinPrice < 0 {
		return nil, pagination.Window{}, apperrors.InvalidInput("min_price must not be negative")
	}
	if q.MaxPrice != nil && *q.MaxPrice < 0 {
		return nil, pagination.Window{}, apperrors.InvalidInput("max_price must not be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return nil, pagination.Window{}, apperrors.InvalidInput("min_price must not exceed max_price")
	}

	if q.CategoryID != nil && *q.CategoryID == "" {
		q.CategoryID = nil
	}

	return &q, window, nil
}
