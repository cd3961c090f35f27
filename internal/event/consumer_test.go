package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/utafrali/storefront-search/pkg/kafka"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingInvalidator struct {
	mu       sync.Mutex
	patterns []string
	err      error
}

func (r *recordingInvalidator) InvalidateSearchCache(_ context.Context, pattern string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
	if r.err != nil {
		return 0, r.err
	}
	return 2, nil
}

func (r *recordingInvalidator) Patterns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.patterns...)
}

func productEvent(t *testing.T, eventType string) *pkgkafka.Event {
	t.Helper()
	data, err := json.Marshal(ProductEventData{ID: "prod-1", Name: "Blue Widget"})
	require.NoError(t, err)
	return &pkgkafka.Event{
		EventID:       "evt-1",
		EventType:     eventType,
		AggregateID:   "prod-1",
		AggregateType: "product",
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        "product-service",
		Data:          data,
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{
		"ecommerce.product.created",
		"ecommerce.product.updated",
		"ecommerce.product.deleted",
	}, Topics())
}

func TestConsumer_ProductEventsInvalidateBothNamespaces(t *testing.T) {
	for _, topic := range Topics() {
		t.Run(topic, func(t *testing.T) {
			inv := &recordingInvalidator{}
			c := NewConsumer(inv, newTestLogger())

			require.NoError(t, c.Handle(context.Background(), productEvent(t, topic)))
			assert.Equal(t, []string{"search:*", "suggest:*"}, inv.Patterns())
		})
	}
}

func TestConsumer_UnknownEventIgnored(t *testing.T) {
	inv := &recordingInvalidator{}
	c := NewConsumer(inv, newTestLogger())

	require.NoError(t, c.Handle(context.Background(), productEvent(t, "ecommerce.order.created")))
	assert.Empty(t, inv.Patterns())
}

func TestConsumer_MissingDataStillInvalidates(t *testing.T) {
	inv := &recordingInvalidator{}
	c := NewConsumer(inv, newTestLogger())

	evt := productEvent(t, TopicProductDeleted)
	evt.Data = nil

	require.NoError(t, c.Handle(context.Background(), evt))
	assert.Len(t, inv.Patterns(), 2)
}

func TestConsumer_InvalidationFailureIsReturned(t *testing.T) {
	storeErr := errors.New("redis down")
	inv := &recordingInvalidator{err: storeErr}
	c := NewConsumer(inv, newTestLogger())

	err := c.Handle(context.Background(), productEvent(t, TopicProductUpdated))
	require.Error(t, err)
	assert.True(t, errors.Is(err, storeErr))
	assert.Equal(t, []string{"search:*"}, inv.Patterns(), "stops at the first failure")
}

// queueReader replays messages once and then reports io.EOF.
type queueReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed int
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed += len(msgs)
	return nil
}

func (r *queueReader) Close() error { return nil }

func TestConsumer_WiredThroughKafkaConsumer(t *testing.T) {
	inv := &recordingInvalidator{}
	handler := NewConsumer(inv, newTestLogger())

	payload, err := json.Marshal(productEvent(t, TopicProductCreated))
	require.NoError(t, err)
	reader := &queueReader{msgs: []kafka.Message{{Topic: TopicProductCreated, Value: payload}}}

	kc := pkgkafka.NewConsumerWithReader(reader, pkgkafka.ConsumerConfig{
		GroupID: ConsumerGroup,
		Topics:  Topics(),
	}, handler.Handle, newTestLogger())

	require.NoError(t, kc.Start(context.Background()))
	assert.Equal(t, []string{"search:*", "suggest:*"}, inv.Patterns())
	assert.Equal(t, 1, reader.committed)
}
