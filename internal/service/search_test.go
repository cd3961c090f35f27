package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-search/internal/cache"
	cachememory "github.com/utafrali/storefront-search/internal/cache/memory"
	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/ranking"
	"github.com/utafrali/storefront-search/internal/repository"
	repomemory "github.com/utafrali/storefront-search/internal/repository/memory"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// spyRepository counts calls and records the last filter before delegating
// to an in-memory catalog. A non-nil err fails every call.
type spyRepository struct {
	inner *repomemory.CandidateRepository

	mu           sync.Mutex
	findCalls    int
	suggestCalls int
	lastFilter   repository.CandidateFilter
	err          error
}

func (s *spyRepository) FindMatching(ctx context.Context, f repository.CandidateFilter) ([]domain.Candidate, int, error) {
	s.mu.Lock()
	s.findCalls++
	s.lastFilter = f
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, 0, err
	}
	return s.inner.FindMatching(ctx, f)
}

func (s *spyRepository) SuggestByName(ctx context.Context, f repository.SuggestionFilter) ([]domain.Suggestion, error) {
	s.mu.Lock()
	s.suggestCalls++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inner.SuggestByName(ctx, f)
}

func (s *spyRepository) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *spyRepository) FindCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls
}

func (s *spyRepository) SuggestCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestCalls
}

func (s *spyRepository) LastFilter() repository.CandidateFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFilter
}

// spyCache counts accessor calls around a real cache.
type spyCache struct {
	*cache.Cache
	mu   sync.Mutex
	gets int
	sets int
}

func (c *spyCache) GetJSON(ctx context.Context, key string, dst any) bool {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Cache.GetJSON(ctx, key, dst)
}

func (c *spyCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	c.Cache.SetJSON(ctx, key, value, ttl)
}

func (c *spyCache) Calls() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.sets
}

type fixture struct {
	svc     *SearchService
	repo    *spyRepository
	catalog *repomemory.CandidateRepository
	cache   *spyCache
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	catalog := repomemory.New()
	repo := &spyRepository{inner: catalog}
	c := &spyCache{Cache: cache.New(cachememory.New(), newTestLogger(), cache.Options{})}
	ranker := ranking.NewWithClock(func() time.Time { return fixedNow })
	return &fixture{
		svc:     NewSearchService(repo, c, ranker, newTestLogger(), opts),
		repo:    repo,
		catalog: catalog,
		cache:   c,
	}
}

func published(c domain.Candidate) repomemory.Product {
	return repomemory.Product{Candidate: c, Status: repomemory.StatusPublished, IsActive: true}
}

func longAgo(days int) time.Time {
	return fixedNow.AddDate(0, 0, -days)
}

func seedWidgets(f *fixture, n int) {
	for i := 0; i < n; i++ {
		f.catalog.Upsert(published(domain.Candidate{
			ID:            fmt.Sprintf("w%03d", i),
			Name:          fmt.Sprintf("Widget %03d", i),
			Price:         int64(100 + i),
			StockQuantity: 1,
			CreatedAt:     longAgo(100 + i),
		}))
	}
}

func productIDs(r *domain.SearchResult) []string {
	out := make([]string, len(r.Products))
	for i, p := range r.Products {
		out[i] = p.ID
	}
	return out
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestSearch_ShortQueryShortCircuits(t *testing.T) {
	for _, raw := range []string{"", " ", "a", "  W  ", "ş"} {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			f := newFixture(t, Options{})
			seedWidgets(f, 3)

			result, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: raw})
			require.NoError(t, err)

			assert.Empty(t, result.Products)
			assert.NotNil(t, result.Products)
			assert.Zero(t, result.Total)
			assert.Equal(t, 1, result.Page)
			assert.Zero(t, result.TotalPages)
			assert.Equal(t, domain.NormalizeQuery(raw), result.Query)

			gets, sets := f.cache.Calls()
			assert.Zero(t, gets)
			assert.Zero(t, sets)
			assert.Zero(t, f.repo.FindCalls())
		})
	}
}

func TestSearch_PaginationFormulas(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 45)
	ctx := context.Background()

	tests := []struct {
		sort          string
		limit, offset int
		wantLen       int
		wantPage      int
	}{
		{domain.SortRelevance, 20, 0, 20, 1},
		{domain.SortRelevance, 20, 20, 20, 2},
		{domain.SortRelevance, 20, 40, 5, 3},
		{domain.SortPrice, 20, 40, 5, 3},
		{domain.SortName, 10, 15, 10, 2},
		{domain.SortDate, 20, 60, 0, 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d_%d", tt.sort, tt.limit, tt.offset), func(t *testing.T) {
			result, err := f.svc.Search(ctx, &domain.SearchQuery{
				Query: "widget", SortBy: tt.sort, Limit: tt.limit, Offset: tt.offset,
			})
			require.NoError(t, err)
			assert.Equal(t, 45, result.Total)
			assert.Len(t, result.Products, tt.wantLen)
			assert.LessOrEqual(t, len(result.Products), tt.limit)
			assert.Equal(t, tt.offset/tt.limit+1, result.Page)
			assert.Equal(t, tt.wantPage, result.Page)
			assert.Equal(t, (45+tt.limit-1)/tt.limit, result.TotalPages)
		})
	}
}

func TestSearch_Defaults(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 30)

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: "  WIDGET "})
	require.NoError(t, err)

	assert.Equal(t, "widget", result.Query)
	assert.Len(t, result.Products, 20)
	assert.Equal(t, 2, result.TotalPages)

	filter := f.repo.LastFilter()
	assert.Equal(t, domain.SortRelevance, filter.SortBy)
	assert.Equal(t, domain.OrderDesc, filter.Order)
	assert.Equal(t, "widget", filter.Query)
}

func TestSearch_LimitIsCapped(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 150)

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{
		Query: "widget", SortBy: domain.SortPrice, Limit: 500,
	})
	require.NoError(t, err)
	assert.Len(t, result.Products, 100)
	assert.Equal(t, 100, f.repo.LastFilter().Limit)
}

func TestSearch_NonRelevancePushesWindowDown(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 10)

	_, err := f.svc.Search(context.Background(), &domain.SearchQuery{
		Query: "widget", SortBy: domain.SortName, Order: domain.OrderAsc, Limit: 3, Offset: 6,
	})
	require.NoError(t, err)

	filter := f.repo.LastFilter()
	assert.Equal(t, 3, filter.Limit)
	assert.Equal(t, 6, filter.Offset)
	assert.Equal(t, domain.OrderAsc, filter.Order)
}

func TestSearch_RelevanceRanksBoundedWindow(t *testing.T) {
	f := newFixture(t, Options{RelevanceWindow: 4})
	seedWidgets(f, 6)
	// Oldest match, so outside the recency window of 4.
	f.catalog.Upsert(published(domain.Candidate{ID: "exact", Name: "Widget", CreatedAt: longAgo(500)}))

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: "widget", Limit: 10})
	require.NoError(t, err)

	filter := f.repo.LastFilter()
	assert.Equal(t, 4, filter.Limit)
	assert.Zero(t, filter.Offset)
	assert.Equal(t, 7, result.Total)
	assert.Len(t, result.Products, 4)
	assert.NotContains(t, productIDs(result), "exact")
}

func TestSearch_RelevanceOrdersAcrossPages(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 25)
	// Oldest match, so it would sit on the last page of a recency window.
	f.catalog.Upsert(published(domain.Candidate{ID: "exact", Name: "Widget", IsFeatured: true, CreatedAt: longAgo(900)}))

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: "widget", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Products)
	assert.Equal(t, "exact", result.Products[0].ID)
}

func TestSearch_Deterministic(t *testing.T) {
	q := &domain.SearchQuery{Query: "widget", Limit: 10, Offset: 5}

	var first []string
	for i := 0; i < 5; i++ {
		f := newFixture(t, Options{})
		seedWidgets(f, 20)
		result, err := f.svc.Search(context.Background(), q)
		require.NoError(t, err)
		if first == nil {
			first = productIDs(result)
			continue
		}
		assert.Equal(t, first, productIDs(result))
	}
}

func TestSearch_BlueWidgetScenario(t *testing.T) {
	f := newFixture(t, Options{})
	f.catalog.Upsert(
		published(domain.Candidate{ID: "wh2", Name: "Widget Holder", SKU: "WH2", StockQuantity: 0, CreatedAt: longAgo(60)}),
		published(domain.Candidate{ID: "bw1", Name: "Blue Widget", SKU: "BW1", IsFeatured: true, StockQuantity: 5, CreatedAt: longAgo(90)}),
	)

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: "widget"})
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "Blue Widget", result.Products[0].Name)
	assert.Equal(t, "Widget Holder", result.Products[1].Name)
}

func TestSearch_ExactNameBeatsDecoratedCompetitor(t *testing.T) {
	f := newFixture(t, Options{})
	f.catalog.Upsert(
		published(domain.Candidate{
			ID: "competitor", Name: "Navy Blue Widget", ShortDescription: "a blue widget", Description: "blue widget",
			IsFeatured: true, StockQuantity: 50, CreatedAt: fixedNow,
		}),
		published(domain.Candidate{ID: "exact", Name: "Blue Widget", CreatedAt: longAgo(400)}),
	)

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: "Blue Widget"})
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "exact", result.Products[0].ID)
}

func TestSearch_ScoreNeverSerialized(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 2)

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: "widget"})
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "score")
}

func TestSearch_CacheRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 5)
	ctx := context.Background()
	q := &domain.SearchQuery{Query: "widget", Limit: 3}

	first, err := f.svc.Search(ctx, q)
	require.NoError(t, err)
	second, err := f.svc.Search(ctx, q)
	require.NoError(t, err)

	assert.Equal(t, 1, f.repo.FindCalls())
	assert.Equal(t, productIDs(first), productIDs(second))
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.TotalPages, second.TotalPages)
}

func TestSearch_CategoryChangesCacheKey(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 5)
	ctx := context.Background()

	all, err := f.svc.Search(ctx, &domain.SearchQuery{Query: "widget"})
	require.NoError(t, err)
	filtered, err := f.svc.Search(ctx, &domain.SearchQuery{Query: "widget", CategoryID: strPtr("cat-1")})
	require.NoError(t, err)

	assert.Equal(t, 2, f.repo.FindCalls())
	assert.Equal(t, 5, all.Total)
	assert.Zero(t, filtered.Total)
}

func TestSearch_CategoryNamedLikeUnsetFilterIsNotServedFromCache(t *testing.T) {
	f := newFixture(t, Options{})
	f.catalog.Upsert(published(domain.Candidate{
		ID: "a1", Name: "Widget A", CategoryID: strPtr("all"), CreatedAt: longAgo(10),
	}))
	f.catalog.Upsert(published(domain.Candidate{
		ID: "t1", Name: "Widget T", CategoryID: strPtr("tools"), CreatedAt: longAgo(20),
	}))
	ctx := context.Background()

	unfiltered, err := f.svc.Search(ctx, &domain.SearchQuery{Query: "widget"})
	require.NoError(t, err)
	filtered, err := f.svc.Search(ctx, &domain.SearchQuery{Query: "widget", CategoryID: strPtr("all")})
	require.NoError(t, err)

	assert.Equal(t, 2, f.repo.FindCalls())
	assert.Equal(t, 2, unfiltered.Total)
	assert.Equal(t, 1, filtered.Total)
	assert.Equal(t, []string{"a1"}, productIDs(filtered))
}

func TestSearch_InvalidateThenRepeatHitsRepository(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 5)
	ctx := context.Background()
	q := &domain.SearchQuery{Query: "widget"}

	_, err := f.svc.Search(ctx, q)
	require.NoError(t, err)

	deleted, err := f.svc.InvalidateSearchCache(ctx, "search:*")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = f.svc.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.FindCalls())
}

func TestSearch_StaleUntilInvalidated(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 2)
	ctx := context.Background()
	q := &domain.SearchQuery{Query: "widget"}

	before, err := f.svc.Search(ctx, q)
	require.NoError(t, err)

	f.catalog.Upsert(published(domain.Candidate{ID: "new", Name: "New Widget", CreatedAt: fixedNow}))

	cached, err := f.svc.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, before.Total, cached.Total)

	_, err = f.svc.InvalidateSearchCache(ctx, "")
	require.NoError(t, err)

	fresh, err := f.svc.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, before.Total+1, fresh.Total)
}

func TestSearch_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		query domain.SearchQuery
	}{
		{"negative limit", domain.SearchQuery{Query: "widget", Limit: -1}},
		{"negative offset", domain.SearchQuery{Query: "widget", Offset: -5}},
		{"unknown sort", domain.SearchQuery{Query: "widget", SortBy: "popularity"}},
		{"unknown order", domain.SearchQuery{Query: "widget", Order: "sideways"}},
		{"min above max", domain.SearchQuery{Query: "widget", MinPrice: i64Ptr(500), MaxPrice: i64Ptr(100)}},
		{"negative min price", domain.SearchQuery{Query: "widget", MinPrice: i64Ptr(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			q := tt.query

			_, err := f.svc.Search(context.Background(), &q)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
			assert.Zero(t, f.repo.FindCalls())
		})
	}
}

func TestSearch_ShortQueryStillValidatesParameters(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 3)

	_, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: "w", SortBy: "bogus"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Zero(t, f.repo.FindCalls())

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{Query: "w", SortBy: domain.SortName})
	require.NoError(t, err)
	assert.Empty(t, result.Products)
}

func TestSearch_NilQuery(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Search(context.Background(), nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestSearch_EqualPriceBoundsAllowed(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 5)

	result, err := f.svc.Search(context.Background(), &domain.SearchQuery{
		Query: "widget", MinPrice: i64Ptr(102), MaxPrice: i64Ptr(102),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestSearch_RepositoryFailure(t *testing.T) {
	f := newFixture(t, Options{})
	repoErr := errors.New("connection refused")
	f.repo.err = repoErr
	ctx := context.Background()

	_, err := f.svc.Search(ctx, &domain.SearchQuery{Query: "widget"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SEARCH_UNAVAILABLE", appErr.Code)
	assert.Equal(t, "search is temporarily unavailable", appErr.Message)
	assert.Equal(t, 503, appErr.Status)
	assert.True(t, errors.Is(err, repoErr))

	_, sets := f.cache.Calls()
	assert.Zero(t, sets, "failures are not cached")

	f.repo.mu.Lock()
	f.repo.err = nil
	f.repo.mu.Unlock()
	_, err = f.svc.Search(ctx, &domain.SearchQuery{Query: "widget"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.FindCalls())
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("dial tcp: connection refused")
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("dial tcp: connection refused")
}

func (brokenStore) DeleteByPattern(context.Context, string) (int, error) {
	return 0, errors.New("dial tcp: connection refused")
}

func TestSearch_CacheOutageIsTransparent(t *testing.T) {
	catalog := repomemory.New()
	repo := &spyRepository{inner: catalog}
	svc := NewSearchService(repo, cache.New(brokenStore{}, newTestLogger(), cache.Options{}),
		ranking.New(), newTestLogger(), Options{})
	catalog.Upsert(published(domain.Candidate{ID: "w1", Name: "Widget"}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := svc.Search(ctx, &domain.SearchQuery{Query: "widget"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Total)
	}
	assert.Equal(t, 3, repo.FindCalls())

	suggestions, err := svc.GetSuggestions(ctx, "wi", 5)
	require.NoError(t, err)
	assert.Len(t, suggestions, 1)

	_, err = svc.InvalidateSearchCache(ctx, "search:*")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CACHE_UNAVAILABLE", appErr.Code)
}

func TestSearch_DoesNotMutateCallerQuery(t *testing.T) {
	f := newFixture(t, Options{})
	q := &domain.SearchQuery{Query: "  Widget  "}

	_, err := f.svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "  Widget  ", q.Query)
	assert.Empty(t, q.SortBy)
	assert.Zero(t, q.Limit)
}

// ---------------------------------------------------------------------------
// GetSuggestions
// ---------------------------------------------------------------------------

func seedSuggestions(f *fixture) {
	names := []string{"Wick", "Wire", "Wiper", "Widget", "Wind Chime", "Wing Nut", "Wipe", "Wig", "Wisp", "Twist Wire"}
	for i, n := range names {
		c := domain.Candidate{
			ID:          fmt.Sprintf("s%02d", i),
			Name:        n,
			Description: "long text that must not appear in suggestions",
			SKU:         fmt.Sprintf("SKU-%02d", i),
			Price:       int64(100 * (i + 1)),
			IsFeatured:  n == "Wisp" || n == "Wire",
			Images:      []string{fmt.Sprintf("https://cdn.example.com/s%02d-a.jpg", i), "https://cdn.example.com/other.jpg"},
		}
		f.catalog.Upsert(published(c))
	}
}

func TestGetSuggestions_FeaturedFirstThenName(t *testing.T) {
	f := newFixture(t, Options{})
	seedSuggestions(f)

	got, err := f.svc.GetSuggestions(context.Background(), "wi", 5)
	require.NoError(t, err)
	require.Len(t, got, 5)

	names := make([]string, len(got))
	for i, s := range got {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"Wire", "Wisp", "Twist Wire", "Wick", "Widget"}, names)

	raw, err := json.Marshal(got[0])
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.ElementsMatch(t, []string{"id", "name", "slug", "price", "image"}, keys(fields))
	assert.Equal(t, "https://cdn.example.com/s01-a.jpg", fields["image"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestGetSuggestions_Limits(t *testing.T) {
	f := newFixture(t, Options{})
	seedSuggestions(f)
	ctx := context.Background()

	got, err := f.svc.GetSuggestions(ctx, "wi", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultSuggestionLimit)

	got, err = f.svc.GetSuggestions(ctx, "wi", 500)
	require.NoError(t, err)
	assert.Len(t, got, 10)

	_, err = f.svc.GetSuggestions(ctx, "wi", -1)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestGetSuggestions_ShortQuery(t *testing.T) {
	f := newFixture(t, Options{})
	seedSuggestions(f)

	got, err := f.svc.GetSuggestions(context.Background(), " w ", 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, f.repo.SuggestCalls())

	gets, _ := f.cache.Calls()
	assert.Zero(t, gets)
}

func TestGetSuggestions_Cached(t *testing.T) {
	f := newFixture(t, Options{})
	seedSuggestions(f)
	ctx := context.Background()

	first, err := f.svc.GetSuggestions(ctx, "WI", 5)
	require.NoError(t, err)
	second, err := f.svc.GetSuggestions(ctx, "wi", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, f.repo.SuggestCalls())
	assert.Equal(t, first, second)

	_, err = f.svc.InvalidateSearchCache(ctx, "suggest:*")
	require.NoError(t, err)
	_, err = f.svc.GetSuggestions(ctx, "wi", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.SuggestCalls())
}

func TestGetSuggestions_RepositoryFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.repo.err = errors.New("timeout")

	_, err := f.svc.GetSuggestions(context.Background(), "wi", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
}

// ---------------------------------------------------------------------------
// InvalidateSearchCache
// ---------------------------------------------------------------------------

func TestInvalidateSearchCache_RejectsForeignPattern(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.InvalidateSearchCache(context.Background(), "cart:*")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestInvalidateSearchCache_ScopedToQuery(t *testing.T) {
	f := newFixture(t, Options{})
	seedWidgets(f, 3)
	f.catalog.Upsert(published(domain.Candidate{ID: "g1", Name: "Gadget"}))
	ctx := context.Background()

	_, err := f.svc.Search(ctx, &domain.SearchQuery{Query: "widget"})
	require.NoError(t, err)
	_, err = f.svc.Search(ctx, &domain.SearchQuery{Query: "widget", Offset: 20})
	require.NoError(t, err)
	_, err = f.svc.Search(ctx, &domain.SearchQuery{Query: "gadget"})
	require.NoError(t, err)

	deleted, err := f.svc.InvalidateSearchCache(ctx, cache.QueryPattern("widget"))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = f.svc.Search(ctx, &domain.SearchQuery{Query: "gadget"})
	require.NoError(t, err)
	assert.Equal(t, 3, f.repo.FindCalls(), "gadget stays cached")
}
