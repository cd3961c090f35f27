package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/repository"
	"github.com/utafrali/storefront-search/pkg/database"
)

// CandidateRepository is an Elasticsearch-backed implementation of
// repository.CandidateRepository.
type CandidateRepository struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New connects to Elasticsearch at esURL and ensures the products index
// exists. If indexName is empty, DefaultIndexName is used.
func New(ctx context.Context, esURL, indexName string, logger *slog.Logger) (*CandidateRepository, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	r := NewWithClient(client, indexName, logger)
	if err := r.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return r, nil
}

// NewWithClient wraps an existing client without touching the cluster.
func NewWithClient(client *elasticsearch.Client, indexName string, logger *slog.Logger) *CandidateRepository {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	return &CandidateRepository{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (r *CandidateRepository) Ping(ctx context.Context) error {
	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the products index with its mapping when missing.
func (r *CandidateRepository) EnsureIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.indexName}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		r.logger.Info("elasticsearch index already exists", slog.String("index", r.indexName))
		return nil
	}

	res, err = r.client.Indices.Create(
		r.indexName,
		r.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		r.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	r.logger.Info("elasticsearch index created", slog.String("index", r.indexName))
	return nil
}

// FindMatching returns one window of matching products with the total count.
func (r *CandidateRepository) FindMatching(ctx context.Context, filter repository.CandidateFilter) (candidates []domain.Candidate, total int, err error) {
	ctx, done := database.TraceCall(ctx, database.SystemElasticsearch, "search.find_matching", r.indexName)
	defer func() { done(err) }()

	filter, exhausted := clampToResultWindow(filter)
	resp, err := r.search(ctx, "find matching", buildSearchQuery(filter))
	if err != nil {
		return nil, 0, err
	}
	if exhausted {
		return []domain.Candidate{}, resp.Hits.Total.Value, nil
	}

	candidates = make([]domain.Candidate, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		candidates = append(candidates, hit.Source.Candidate())
	}
	return candidates, resp.Hits.Total.Value, nil
}

// SuggestByName returns lightweight summaries of products whose name
// contains the query, featured first then alphabetical.
func (r *CandidateRepository) SuggestByName(ctx context.Context, filter repository.SuggestionFilter) (suggestions []domain.Suggestion, err error) {
	ctx, done := database.TraceCall(ctx, database.SystemElasticsearch, "search.suggest", r.indexName)
	defer func() { done(err) }()

	resp, err := r.search(ctx, "suggest", buildSuggestQuery(filter))
	if err != nil {
		return nil, err
	}

	suggestions = make([]domain.Suggestion, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		suggestions = append(suggestions, hit.Source.Suggestion())
	}
	return suggestions, nil
}

func (r *CandidateRepository) search(ctx context.Context, op string, query map[string]any) (*esSearchResponse, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s: marshal query: %w", op, err)
	}

	res, err := r.client.Search(
		r.client.Search.WithIndex(r.indexName),
		r.client.Search.WithBody(bytes.NewReader(data)),
		r.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch "+op, res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch %s: decode response: %w", op, err)
	}
	return &esResp, nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	var errResp esErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// containsPattern builds a wildcard pattern matching s anywhere, with
// wildcard metacharacters in s taken literally.
func containsPattern(s string) string {
	return "*" + wildcardEscaper.Replace(s) + "*"
}

func wildcard(field, pattern string) map[string]any {
	return map[string]any{
		"wildcard": map[string]any{
			field: map[string]any{
				"value":            pattern,
				"case_insensitive": true,
			},
		},
	}
}

func visibleFilters() []any {
	return []any{
		map[string]any{"term": map[string]any{"status": StatusPublished}},
		map[string]any{"term": map[string]any{"is_active": true}},
	}
}

// maxResultWindow is the index.max_result_window default. Requests with
// from+size beyond it are rejected by Elasticsearch.
const maxResultWindow = 10000

// clampToResultWindow trims filter so from+size stays inside
// maxResultWindow. When the offset is already past it, the filter asks for
// the total only and exhausted is true.
func clampToResultWindow(filter repository.CandidateFilter) (repository.CandidateFilter, bool) {
	if filter.Offset >= maxResultWindow {
		filter.Offset, filter.Limit = 0, 0
		return filter, true
	}
	if filter.Offset+filter.Limit > maxResultWindow {
		filter.Limit = maxResultWindow - filter.Offset
	}
	return filter, false
}

// buildSearchQuery constructs the query DSL for FindMatching.
func buildSearchQuery(filter repository.CandidateFilter) map[string]any {
	filters := visibleFilters()

	if filter.CategoryID != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{"category_id": *filter.CategoryID},
		})
	}

	if filter.MinPrice != nil || filter.MaxPrice != nil {
		priceRange := map[string]any{}
		if filter.MinPrice != nil {
			priceRange["gte"] = *filter.MinPrice
		}
		if filter.MaxPrice != nil {
			priceRange["lte"] = *filter.MaxPrice
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"base_price": priceRange},
		})
	}

	if filter.InStock {
		filters = append(filters, map[string]any{
			"range": map[string]any{"stock_quantity": map[string]any{"gt": 0}},
		})
	}

	boolQuery := map[string]any{"filter": filters}
	if filter.Query != "" {
		pattern := containsPattern(filter.Query)
		boolQuery["should"] = []any{
			wildcard("name", pattern),
			wildcard("description", pattern),
			wildcard("short_description", pattern),
			wildcard("sku", pattern),
		}
		boolQuery["minimum_should_match"] = 1
	}

	return map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             filter.Offset,
		"size":             filter.Limit,
		"sort":             buildSort(filter.SortBy, filter.Order),
		"track_total_hits": true,
	}
}

// buildSort orders by the requested field, breaking ties by id.
func buildSort(sortBy, order string) []any {
	dir := "desc"
	if order == domain.OrderAsc {
		dir = "asc"
	}

	var primary map[string]any
	switch sortBy {
	case domain.SortName:
		primary = map[string]any{"name.sort": dir}
	case domain.SortPrice:
		primary = map[string]any{"base_price": dir}
	case domain.SortDate:
		primary = map[string]any{"created_at": dir}
	default:
		primary = map[string]any{"created_at": "desc"}
	}
	return []any{primary, map[string]any{"id": "asc"}}
}

// buildSuggestQuery constructs the query DSL for SuggestByName.
func buildSuggestQuery(filter repository.SuggestionFilter) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []any{wildcard("name", containsPattern(filter.Query))},
				"filter": visibleFilters(),
			},
		},
		"size":    filter.Limit,
		"_source": []string{"id", "name", "slug", "base_price", "images"},
		"sort": []any{
			map[string]any{"is_featured": "desc"},
			map[string]any{"name.sort": "asc"},
			map[string]any{"id": "asc"},
		},
	}
}
