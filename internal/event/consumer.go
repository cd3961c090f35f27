package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront-search/internal/cache"
	pkgkafka "github.com/utafrali/storefront-search/pkg/kafka"
)

// ConsumerGroup is the Kafka consumer group of the cache invalidator.
const ConsumerGroup = "search-cache-invalidator"

// Kafka topic constants for product domain events consumed by the search service.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// invalidationPatterns are flushed after any product mutation.
var invalidationPatterns = []string{
	cache.SearchPrefix + "*",
	cache.SuggestPrefix + "*",
}

// ProductEventData is the part of a product event payload the consumer logs.
type ProductEventData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Invalidator removes cached entries by pattern.
type Invalidator interface {
	InvalidateSearchCache(ctx context.Context, pattern string) (int, error)
}

// Consumer evicts cached search results and suggestions whenever the
// product catalog changes.
type Consumer struct {
	invalidator Invalidator
	logger      *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(invalidator Invalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		invalidator: invalidator,
		logger:      logger,
	}
}

// Handle processes a Kafka event based on its type. A returned error makes
// the caller retry the message.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated, TopicProductDeleted:
		return c.invalidate(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) invalidate(ctx context.Context, event *pkgkafka.Event) error {
	productID := event.AggregateID
	var data ProductEventData
	if err := event.UnmarshalData(&data); err == nil && data.ID != "" {
		productID = data.ID
	}

	deleted := 0
	for _, pattern := range invalidationPatterns {
		n, err := c.invalidator.InvalidateSearchCache(ctx, pattern)
		if err != nil {
			return fmt.Errorf("invalidate %s after %s: %w", pattern, event.EventType, err)
		}
		deleted += n
	}

	c.logger.InfoContext(ctx, "search cache invalidated by product event",
		slog.String("event_type", event.EventType),
		slog.String("event_id", event.EventID),
		slog.String("product_id", productID),
		slog.Int("deleted", deleted),
	)
	return nil
}
