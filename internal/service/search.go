package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront-search/internal/cache"
	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/ranking"
	"github.com/utafrali/storefront-search/internal/repository"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
	"github.com/utafrali/storefront-search/pkg/pagination"
	"github.com/utafrali/storefront-search/pkg/tracing"
)

// Defaults applied when Options leaves a field at zero.
const (
	DefaultSearchTTL       = 5 * time.Minute
	DefaultSuggestTTL      = time.Hour
	DefaultRelevanceWindow = 1000

	DefaultSuggestionLimit = 5
	MaxSuggestionLimit     = 20
)

// ResultCache is the cache-aside accessor used by the service. Reads and
// writes never fail; invalidation reports its errors.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dst any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// Options tunes a SearchService.
type Options struct {
	SearchTTL  time.Duration
	SuggestTTL time.Duration
	// RelevanceWindow caps how many candidates are ranked per relevance query.
	RelevanceWindow int
}

func (o Options) withDefaults() Options {
	if o.SearchTTL <= 0 {
		o.SearchTTL = DefaultSearchTTL
	}
	if o.SuggestTTL <= 0 {
		o.SuggestTTL = DefaultSuggestTTL
	}
	if o.RelevanceWindow <= 0 {
		o.RelevanceWindow = DefaultRelevanceWindow
	}
	return o
}

// SearchService implements the business logic for search operations.
type SearchService struct {
	repo   repository.CandidateRepository
	cache  ResultCache
	ranker *ranking.Ranker
	opts   Options
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(
	repo repository.CandidateRepository,
	cache ResultCache,
	ranker *ranking.Ranker,
	logger *slog.Logger,
	opts Options,
) *SearchService {
	return &SearchService{
		repo:   repo,
		cache:  cache,
		ranker: ranker,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Search runs a product search. Queries shorter than the minimum length
// yield an empty result without touching the cache or the catalog.
func (s *SearchService) Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, error) {
	q, window, err := normalizeSearch(query)
	if err != nil {
		return nil, err
	}

	if !domain.IsSearchable(q.Query) {
		return domain.EmptyResult(q.Query), nil
	}

	ctx, span := tracing.StartSpan(ctx, "SearchService.Search",
		attribute.String("search.query", q.Query),
		attribute.String("search.sort", q.SortBy),
		attribute.Int("search.limit", q.Limit),
		attribute.Int("search.offset", q.Offset),
	)
	defer span.End()

	key := cache.SearchKey(q)

	var cached domain.SearchResult
	if s.cache.GetJSON(ctx, key, &cached) {
		span.SetAttributes(attribute.Bool("search.cache_hit", true))
		return &cached, nil
	}
	span.SetAttributes(attribute.Bool("search.cache_hit", false))

	products, total, err := s.retrieve(ctx, q, window)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, apperrors.Unavailable("SEARCH_UNAVAILABLE", "search is temporarily unavailable", err)
	}

	result := &domain.SearchResult{
		Products:   products,
		Total:      total,
		Page:       window.Page(),
		TotalPages: window.TotalPages(total),
		Query:      q.Query,
	}

	s.cache.SetJSON(ctx, key, result, s.opts.SearchTTL)

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", q.Query),
		slog.String("sort", q.SortBy),
		slog.Int("total", total),
		slog.Int("returned", len(products)),
	)

	return result, nil
}

// retrieve fetches one page of candidates. Relevance ranks a bounded window
// from the start of the match set and then slices the page out of it; the
// other sorts let the store paginate.
func (s *SearchService) retrieve(ctx context.Context, q *domain.SearchQuery, window pagination.Window) ([]domain.Candidate, int, error) {
	filter := repository.CandidateFilter{
		Query:      q.Query,
		CategoryID: q.CategoryID,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		InStock:    q.InStock,
		SortBy:     q.SortBy,
		Order:      q.Order,
		Limit:      window.Limit,
		Offset:     window.Offset,
	}

	if q.SortBy != domain.SortRelevance {
		candidates, total, err := s.repo.FindMatching(ctx, filter)
		if err != nil {
			return nil, 0, fmt.Errorf("find matching: %w", err)
		}
		return candidates, total, nil
	}

	filter.Limit = s.opts.RelevanceWindow
	filter.Offset = 0
	candidates, total, err := s.repo.FindMatching(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("find matching: %w", err)
	}

	ranked := s.ranker.Rank(candidates, q.Query)
	return pagination.Apply(ranking.Candidates(ranked), window), total, nil
}

// GetSuggestions returns autocomplete summaries for query. A zero limit
// selects DefaultSuggestionLimit; limits above MaxSuggestionLimit are capped.
func (s *SearchService) GetSuggestions(ctx context.Context, query string, limit int) ([]domain.Suggestion, error) {
	w, err := pagination.Window{Limit: limit}.Normalize(DefaultSuggestionLimit, MaxSuggestionLimit)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	normalized := domain.NormalizeQuery(query)
	if !domain.IsSearchable(normalized) {
		return []domain.Suggestion{}, nil
	}

	ctx, span := tracing.StartSpan(ctx, "SearchService.GetSuggestions",
		attribute.String("search.query", normalized),
		attribute.Int("search.limit", w.Limit),
	)
	defer span.End()

	key := cache.SuggestKey(normalized, w.Limit)

	var cached []domain.Suggestion
	if s.cache.GetJSON(ctx, key, &cached) && cached != nil {
		return cached, nil
	}

	suggestions, err := s.repo.SuggestByName(ctx, repository.SuggestionFilter{
		Query: normalized,
		Limit: w.Limit,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, apperrors.Unavailable("SEARCH_UNAVAILABLE", "search is temporarily unavailable",
			fmt.Errorf("suggest by name: %w", err))
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}

	s.cache.SetJSON(ctx, key, suggestions, s.opts.SuggestTTL)
	return suggestions, nil
}

// InvalidateSearchCache deletes cached entries matching pattern and returns
// how many were removed. An empty pattern clears every search result.
func (s *SearchService) InvalidateSearchCache(ctx context.Context, pattern string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "SearchService.InvalidateSearchCache",
		attribute.String("cache.pattern", pattern),
	)
	defer span.End()

	deleted, err := s.cache.Invalidate(ctx, pattern)
	if err != nil {
		tracing.RecordError(span, err)
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return 0, err
		}
		return 0, apperrors.Unavailable("CACHE_UNAVAILABLE", "cache is temporarily unavailable", err)
	}
	return deleted, nil
}

// Ready reports whether the catalog backing the service is reachable.
func (s *SearchService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
