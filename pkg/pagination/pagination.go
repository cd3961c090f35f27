package pagination

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is used when a request does not specify a limit.
	DefaultLimit = 20
	// MaxLimit caps the number of items a single page may carry.
	MaxLimit = 100
)

// Window is an offset/limit slice of an ordered result set.
type Window struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FromRequest extracts limit and offset from the query string. Missing values
// are left at zero. Values that are not integers are rejected; range checks
// are left to the caller.
func FromRequest(r *http.Request) (Window, error) {
	var w Window
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Window{}, fmt.Errorf("limit must be an integer")
		}
		w.Limit = v
	}

	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Window{}, fmt.Errorf("offset must be an integer")
		}
		w.Offset = v
	}

	return w, nil
}

// Normalize applies defaultLimit when Limit is zero and caps Limit at max.
// Negative values are returned as an error.
func (w Window) Normalize(defaultLimit, max int) (Window, error) {
	if w.Limit < 0 {
		return Window{}, fmt.Errorf("limit must not be negative")
	}
	if w.Offset < 0 {
		return Window{}, fmt.Errorf("offset must not be negative")
	}
	if w.Limit == 0 {
		w.Limit = defaultLimit
	}
	if w.Limit > max {
		w.Limit = max
	}
	return w, nil
}

// Page returns the 1-based page number the window starts on.
func (w Window) Page() int {
	if w.Limit <= 0 {
		return 1
	}
	return w.Offset/w.Limit + 1
}

// TotalPages returns the number of pages needed to show total items.
func (w Window) TotalPages(total int) int {
	if w.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + w.Limit - 1) / w.Limit
}

// Apply returns the part of items covered by the window. The result is never
// nil so it encodes as an empty JSON array.
func Apply[T any](items []T, w Window) []T {
	if w.Offset >= len(items) || w.Limit <= 0 {
		return []T{}
	}
	end := w.Offset + w.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-w.Offset)
	copy(out, items[w.Offset:end])
	return out
}
