// Package cache implements the fail-open cache-aside accessor used by the
// search service. Stores are pluggable; see the redis and memory
// subpackages.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/storefront-search/pkg/breaker"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

// Store is a byte-oriented key/value store with TTLs and glob deletion.
type Store interface {
	// Get returns the value stored under key. found is false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set overwrites key with value for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteByPattern removes every key matching the glob pattern and
	// returns how many were removed.
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

// Outcomes recorded for cache operations.
const (
	outcomeHit     = "hit"
	outcomeMiss    = "miss"
	outcomeError   = "error"
	outcomeSkipped = "skipped"
	outcomeOK      = "ok"
)

// Options configures a Cache.
type Options struct {
	// Breaker guards store calls. Nil disables the breaker.
	Breaker *breaker.Config
}

// Cache wraps a Store with JSON encoding, a circuit breaker and metrics.
// Read and write failures are logged and swallowed.
type Cache struct {
	store   Store
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

// New creates a Cache over store.
func New(store Store, logger *slog.Logger, opts Options) *Cache {
	c := &Cache{store: store, logger: logger}
	if opts.Breaker != nil {
		c.breaker = breaker.New[[]byte](*opts.Breaker, logger)
	}
	return c
}

func (c *Cache) execute(fn func() ([]byte, error)) ([]byte, error) {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

// GetJSON decodes the entry under key into dst. It reports false on a miss
// and on any failure, including a corrupt entry.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	ns := namespace(key)

	data, err := c.execute(func() ([]byte, error) {
		value, found, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return value, nil
	})
	switch {
	case breaker.Rejected(err):
		observe(ns, "get", outcomeSkipped)
		return false
	case err != nil:
		observe(ns, "get", outcomeError)
		c.logger.WarnContext(ctx, "cache get failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	case data == nil:
		observe(ns, "get", outcomeMiss)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		observe(ns, "get", outcomeError)
		c.logger.WarnContext(ctx, "cache entry decode failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}

	observe(ns, "get", outcomeHit)
	return true
}

// SetJSON encodes value and stores it under key. Failures are logged only.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	ns := namespace(key)

	data, err := json.Marshal(value)
	if err != nil {
		observe(ns, "set", outcomeError)
		c.logger.WarnContext(ctx, "cache entry encode failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}

	_, err = c.execute(func() ([]byte, error) {
		return nil, c.store.Set(ctx, key, data, ttl)
	})
	switch {
	case breaker.Rejected(err):
		observe(ns, "set", outcomeSkipped)
	case err != nil:
		observe(ns, "set", outcomeError)
		c.logger.WarnContext(ctx, "cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	default:
		observe(ns, "set", outcomeOK)
	}
}

// Invalidate deletes every key matching pattern. An empty pattern selects
// all search results. Patterns outside the service namespaces are rejected.
// Unlike reads and writes, store failures are returned to the caller.
func (c *Cache) Invalidate(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		pattern = SearchPrefix + "*"
	}
	if !strings.HasPrefix(pattern, SearchPrefix) && !strings.HasPrefix(pattern, SuggestPrefix) {
		return 0, apperrors.InvalidInput(
			fmt.Sprintf("pattern must start with %q or %q", SearchPrefix, SuggestPrefix))
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("malformed pattern %q", pattern))
	}

	deleted, err := c.store.DeleteByPattern(ctx, pattern)
	if err != nil {
		observe(namespace(pattern), "invalidate", outcomeError)
		return 0, fmt.Errorf("invalidate %q: %w", pattern, err)
	}
	observe(namespace(pattern), "invalidate", outcomeOK)
	invalidatedKeys.Add(float64(deleted))

	c.logger.InfoContext(ctx, "cache invalidated",
		slog.String("pattern", pattern),
		slog.Int("deleted", deleted),
	)
	return deleted, nil
}

func namespace(key string) string {
	switch {
	case strings.HasPrefix(key, SearchPrefix):
		return "search"
	case strings.HasPrefix(key, SuggestPrefix):
		return "suggest"
	default:
		return "other"
	}
}
