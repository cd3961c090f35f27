// Package memory provides an in-memory product catalog for development,
// demos and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/repository"
	"github.com/utafrali/storefront-search/pkg/pagination"
	"github.com/utafrali/storefront-search/pkg/slug"
)

// StatusPublished is the only product status visible to search.
const StatusPublished = "published"

// Product is a catalog record including the visibility flags that search
// filters on.
type Product struct {
	domain.Candidate
	Status   string `json:"status"`
	IsActive bool   `json:"is_active"`
}

// CandidateRepository is an in-memory implementation of
// repository.CandidateRepository. Thread-safe via sync.RWMutex.
type CandidateRepository struct {
	mu       sync.RWMutex
	products map[string]Product
}

// New creates an empty catalog.
func New() *CandidateRepository {
	return &CandidateRepository{
		products: make(map[string]Product),
	}
}

// Upsert adds or replaces products. A missing slug is derived from the name.
func (r *CandidateRepository) Upsert(products ...Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range products {
		if p.Slug == "" {
			p.Slug = slug.Generate(p.Name)
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		r.products[p.ID] = p
	}
}

// Delete removes a product by id.
func (r *CandidateRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.products, id)
}

// Len returns the number of stored products.
func (r *CandidateRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}

// LoadFile seeds the catalog from a JSON array of products.
func (r *CandidateRepository) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog seed: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return 0, fmt.Errorf("decode catalog seed %s: %w", path, err)
	}
	for i, p := range products {
		if p.ID == "" {
			return 0, fmt.Errorf("catalog seed %s: product %d has no id", path, i)
		}
	}

	r.Upsert(products...)
	return len(products), nil
}

// Ping always succeeds.
func (r *CandidateRepository) Ping(context.Context) error {
	return nil
}

// FindMatching returns one window of matching products with the total count.
func (r *CandidateRepository) FindMatching(_ context.Context, filter repository.CandidateFilter) ([]domain.Candidate, int, error) {
	r.mu.RLock()
	matched := make([]domain.Candidate, 0)
	for _, p := range r.products {
		if visible(p) && matches(p.Candidate, filter) {
			matched = append(matched, cloneCandidate(p.Candidate))
		}
	}
	r.mu.RUnlock()

	sortCandidates(matched, filter.SortBy, filter.Order)

	window := pagination.Window{Limit: filter.Limit, Offset: filter.Offset}
	return pagination.Apply(matched, window), len(matched), nil
}

// SuggestByName returns summaries of products whose name contains the
// query, featured first then alphabetical.
func (r *CandidateRepository) SuggestByName(_ context.Context, filter repository.SuggestionFilter) ([]domain.Suggestion, error) {
	q := strings.ToLower(filter.Query)

	r.mu.RLock()
	matched := make([]domain.Candidate, 0)
	for _, p := range r.products {
		if visible(p) && strings.Contains(strings.ToLower(p.Name), q) {
			matched = append(matched, p.Candidate)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.IsFeatured != b.IsFeatured {
			return a.IsFeatured
		}
		if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})

	matched = pagination.Apply(matched, pagination.Window{Limit: filter.Limit})

	suggestions := make([]domain.Suggestion, 0, len(matched))
	for _, c := range matched {
		s := domain.Suggestion{ID: c.ID, Name: c.Name, Slug: c.Slug, Price: c.Price}
		if len(c.Images) > 0 {
			img := c.Images[0]
			s.Image = &img
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}

func visible(p Product) bool {
	return p.Status == StatusPublished && p.IsActive
}

// matches checks whether a candidate satisfies the filter.
func matches(c domain.Candidate, filter repository.CandidateFilter) bool {
	if q := strings.ToLower(filter.Query); q != "" {
		if !strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Description), q) &&
			!strings.Contains(strings.ToLower(c.ShortDescription), q) &&
			!strings.Contains(strings.ToLower(c.SKU), q) {
			return false
		}
	}

	if filter.CategoryID != nil {
		if c.CategoryID == nil || *c.CategoryID != *filter.CategoryID {
			return false
		}
	}

	if filter.MinPrice != nil && c.Price < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && c.Price > *filter.MaxPrice {
		return false
	}

	if filter.InStock && c.StockQuantity <= 0 {
		return false
	}

	return true
}

// sortCandidates orders candidates the way the SQL repository does,
// breaking ties by id.
func sortCandidates(cs []domain.Candidate, sortBy, order string) {
	desc := order != domain.OrderAsc

	var cmp func(a, b domain.Candidate) int
	switch sortBy {
	case domain.SortName:
		cmp = func(a, b domain.Candidate) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case domain.SortPrice:
		cmp = func(a, b domain.Candidate) int {
			switch {
			case a.Price < b.Price:
				return -1
			case a.Price > b.Price:
				return 1
			}
			return 0
		}
	case domain.SortDate:
		cmp = func(a, b domain.Candidate) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		desc = true
		cmp = func(a, b domain.Candidate) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}

	sort.Slice(cs, func(i, j int) bool {
		c := cmp(cs[i], cs[j])
		if c == 0 {
			return cs[i].ID < cs[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func cloneCandidate(c domain.Candidate) domain.Candidate {
	c.Images = append([]string{}, c.Images...)
	return c
}
