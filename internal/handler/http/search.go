package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/storefront-search/internal/cache"
	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/service"
	"github.com/utafrali/storefront-search/pkg/httputil"
	"github.com/utafrali/storefront-search/pkg/pagination"
	"github.com/utafrali/storefront-search/pkg/validator"
)

// ShortQueryMessage accompanies the empty result returned for queries below
// the minimum length.
const ShortQueryMessage = "type at least 2 characters"

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request / response DTOs ---

// InvalidateCacheRequest is the JSON body for POST /cache/invalidate.
type InvalidateCacheRequest struct {
	Pattern string `json:"pattern" validate:"omitempty,max=256,startsnotwith=*"`
}

// InvalidateCacheResponse reports how many cache entries were removed.
type InvalidateCacheResponse struct {
	Pattern string `json:"pattern"`
	Deleted int    `json:"deleted"`
}

// SuggestionsResponse wraps autocomplete suggestions.
type SuggestionsResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// --- Handlers ---

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r)
	if err != nil {
		writeInvalidParameter(w, err.Error())
		return
	}

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := httputil.Response{Data: result}
	if !domain.IsSearchable(domain.NormalizeQuery(query.Query)) {
		resp.Message = ShortQueryMessage
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeInvalidParameter(w, "limit must be an integer")
			return
		}
		limit = n
	}

	suggestions, err := h.service.GetSuggestions(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SuggestionsResponse{Suggestions: suggestions},
	})
}

// InvalidateCache handles POST /api/v1/search/cache/invalidate
func (h *SearchHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req InvalidateCacheRequest
	if r.ContentLength != 0 {
		if err := validator.DecodeAndValidate(r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}

	deleted, err := h.service.InvalidateSearchCache(r.Context(), req.Pattern)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	pattern := req.Pattern
	if pattern == "" {
		pattern = cache.SearchPrefix + "*"
	}

	h.logger.InfoContext(r.Context(), "search cache invalidated",
		slog.String("pattern", pattern),
		slog.Int("deleted", deleted),
	)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: InvalidateCacheResponse{Pattern: pattern, Deleted: deleted},
	})
}

// parseSearchQuery reads search parameters from the query string. Only
// syntactic checks happen here; ranges are validated by the service.
func parseSearchQuery(r *http.Request) (*domain.SearchQuery, error) {
	params := r.URL.Query()

	window, err := pagination.FromRequest(r)
	if err != nil {
		return nil, err
	}

	query := &domain.SearchQuery{
		Query:  params.Get("q"),
		SortBy: params.Get("sort"),
		Order:  params.Get("order"),
		Limit:  window.Limit,
		Offset: window.Offset,
	}

	if v := params.Get("category_id"); v != "" {
		query.CategoryID = &v
	}
	if v := params.Get("min_price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New("min_price must be a valid number")
		}
		query.MinPrice = &price
	}
	if v := params.Get("max_price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New("max_price must be a valid number")
		}
		query.MaxPrice = &price
	}
	if v := params.Get("in_stock"); v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("in_stock must be a boolean")
		}
		query.InStock = inStock
	}

	return query, nil
}

func writeInvalidParameter(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}
