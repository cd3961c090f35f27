package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MinQueryLength is the shortest normalized query, in characters, that
// reaches the cache or the catalog.
const MinQueryLength = 2

// Sort modes.
const (
	SortRelevance = "relevance"
	SortName      = "name"
	SortPrice     = "price"
	SortDate      = "date"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// IsValidSort checks whether sort is a supported sort mode.
func IsValidSort(sort string) bool {
	switch sort {
	case SortRelevance, SortName, SortPrice, SortDate:
		return true
	}
	return false
}

// IsValidOrder checks whether order is a supported sort order.
func IsValidOrder(order string) bool {
	return order == OrderAsc || order == OrderDesc
}

// NormalizeQuery trims and lowercases raw user input.
func NormalizeQuery(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsSearchable reports whether a normalized query is long enough to search.
func IsSearchable(normalized string) bool {
	return utf8.RuneCountInString(normalized) >= MinQueryLength
}

// SearchQuery holds all parameters for a search request. Prices are in minor
// currency units.
type SearchQuery struct {
	Query      string  `json:"query"`
	CategoryID *string `json:"category_id,omitempty"`
	MinPrice   *int64  `json:"min_price,omitempty"`
	MaxPrice   *int64  `json:"max_price,omitempty"`
	InStock    bool    `json:"in_stock,omitempty"`
	SortBy     string  `json:"sort_by"`
	Order      string  `json:"order"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

// Candidate is a published, active product as read from the catalog.
type Candidate struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	SKU              string    `json:"sku"`
	Price            int64     `json:"price"`
	CompareAtPrice   *int64    `json:"compare_at_price,omitempty"`
	StockQuantity    int       `json:"stock_quantity"`
	IsFeatured       bool      `json:"is_featured"`
	CreatedAt        time.Time `json:"created_at"`
	CategoryID       *string   `json:"category_id,omitempty"`
	Images           []string  `json:"images"`
}

// SearchResult is one page of search results.
type SearchResult struct {
	Products   []Candidate `json:"products"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Query      string      `json:"query"`
}

// EmptyResult is the result returned for queries too short to search.
func EmptyResult(normalized string) *SearchResult {
	return &SearchResult{
		Products:   []Candidate{},
		Total:      0,
		Page:       1,
		TotalPages: 0,
		Query:      normalized,
	}
}

// Suggestion is a lightweight product summary for autocomplete.
type Suggestion struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Price int64   `json:"price"`
	Image *string `json:"image"`
}
