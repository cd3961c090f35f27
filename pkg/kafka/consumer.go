package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	// maxHandlerRetries is how many times a handler runs before the message
	// is committed and skipped.
	maxHandlerRetries = 3
	retryBaseBackoff  = 100 * time.Millisecond
	fetchErrorBackoff = time.Second
)

// Handler is a function that processes a Kafka event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
}

// Consumer reads events for one consumer group across one or more topics
// and hands them to a Handler.
type Consumer struct {
	reader    MessageReader
	groupID   string
	topics    []string
	logger    *slog.Logger
	handler   Handler
	closeOnce sync.Once
}

// NewConsumer creates a consumer backed by a kafka-go group reader.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, cfg, handler, logger)
}

// NewConsumerWithReader creates a consumer over an existing reader.
func NewConsumerWithReader(r MessageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		groupID: cfg.GroupID,
		topics:  cfg.Topics,
		logger:  logger,
		handler: handler,
	}
}

// Start consumes messages until ctx is canceled. Messages are committed once
// handled, once a handler has failed maxHandlerRetries times, or when they
// cannot be decoded.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "consumer started",
		slog.Any("topics", c.topics),
		slog.String("group", c.groupID),
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("group", c.groupID))
				return c.Close()
			}
			// kafka-go reports io.EOF once the reader is closed.
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.ErrorContext(ctx, "failed to fetch message", slog.String("error", err.Error()))
			if !sleep(ctx, fetchErrorBackoff) {
				return c.Close()
			}
			continue
		}

		ConsumerMessagesReceived.WithLabelValues(msg.Topic, c.groupID).Inc()
		if !c.process(ctx, msg) {
			return c.Close()
		}
	}
}

// process handles one message and reports false when ctx ended mid-retry.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	start := time.Now()
	msgCtx := extractTraceContext(ctx, &msg)

	log := c.logger.With(
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		log.ErrorContext(msgCtx, "failed to unmarshal event", slog.String("error", err.Error()))
		ConsumerMessagesFailed.WithLabelValues(msg.Topic, c.groupID, "decode").Inc()
		c.commit(ctx, msg, log)
		return true
	}

	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		lastErr = c.handler(msgCtx, event)
		if lastErr == nil {
			break
		}
		log.WarnContext(msgCtx, "handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxHandlerRetries),
		)
		if attempt < maxHandlerRetries && !sleep(ctx, time.Duration(attempt)*retryBaseBackoff) {
			return false
		}
	}

	ConsumerProcessingDuration.WithLabelValues(msg.Topic, c.groupID).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		log.ErrorContext(msgCtx, "handler failed after all retries, skipping message",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
		)
		ConsumerMessagesFailed.WithLabelValues(msg.Topic, c.groupID, "handler").Inc()
	} else {
		ConsumerMessagesProcessed.WithLabelValues(msg.Topic, c.groupID).Inc()
	}

	c.commit(ctx, msg, log)
	return true
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, log *slog.Logger) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.ErrorContext(ctx, "failed to commit message", slog.String("error", err.Error()))
	}
}

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// TopicPrefix is the standard prefix for all storefront Kafka topics.
const TopicPrefix = "ecommerce"

// Topic constructs a fully-qualified topic name.
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
