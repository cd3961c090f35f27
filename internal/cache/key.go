package cache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/storefront-search/internal/domain"
)

// Key namespaces owned by the search service.
const (
	SearchPrefix  = "search:"
	SuggestPrefix = "suggest:"
)

const unset = "all"

// categoryTag marks a set category. Escaped text never contains "=", so a
// category named like the sentinel still yields a distinct segment.
const categoryTag = "c="

// SearchKey derives the cache key for a normalized search query. Every
// parameter that changes the result is part of the key.
func SearchKey(q *domain.SearchQuery) string {
	parts := []string{
		escape(q.Query),
		categoryPart(q.CategoryID),
		optInt(q.MinPrice),
		optInt(q.MaxPrice),
		stockPart(q.InStock),
		escape(q.SortBy),
		escape(q.Order),
		strconv.Itoa(q.Limit),
		strconv.Itoa(q.Offset),
	}
	return SearchPrefix + strings.Join(parts, ":")
}

// SuggestKey derives the cache key for an autocomplete lookup.
func SuggestKey(query string, limit int) string {
	return SuggestPrefix + escape(query) + ":" + strconv.Itoa(limit)
}

// QueryPattern matches every cached search result of one normalized query.
func QueryPattern(query string) string {
	return SearchPrefix + escape(query) + ":*"
}

// escape keeps user text from producing separators or glob metacharacters.
func escape(s string) string {
	return url.QueryEscape(s)
}

func categoryPart(s *string) string {
	if s == nil || *s == "" {
		return unset
	}
	return categoryTag + escape(*s)
}

func optInt(v *int64) string {
	if v == nil {
		return unset
	}
	return strconv.FormatInt(*v, 10)
}

func stockPart(inStock bool) string {
	if !inStock {
		return unset
	}
	return "instock"
}
