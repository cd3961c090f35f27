// Package redis provides the Redis-backed cache store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	scanCount   = 100
	deleteBatch = 500
)

// Store implements cache.Store on a Redis client.
type Store struct {
	client redis.Cmdable
}

// New creates a Store using client.
func New(client redis.Cmdable) *Store {
	return &Store{client: client}
}

// Get fetches key. A missing key is a miss, not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, true, nil
}

// Set overwrites key with value and ttl.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// DeleteByPattern walks the keyspace with SCAN MATCH and deletes matches in
// batches.
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		pending []string
		deleted int
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, pending...).Result()
		if err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		deleted += int(n)
		pending = pending[:0]
		return nil
	}

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan %q: %w", pattern, err)
		}
		pending = append(pending, keys...)
		if len(pending) >= deleteBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
