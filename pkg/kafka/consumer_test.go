package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages and then reports io.EOF.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func eventMessage(t *testing.T, topic, eventType string, offset int64) kafka.Message {
	t.Helper()
	body, err := json.Marshal(Event{
		EventID:     "evt-1",
		EventType:   eventType,
		AggregateID: "prod-1",
		Timestamp:   time.Now().UTC(),
		Data:        json.RawMessage(`{"product_id":"prod-1"}`),
	})
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Offset: offset, Value: body}
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		eventMessage(t, "ecommerce.product.created", "product.created", 1),
		eventMessage(t, "ecommerce.product.updated", "product.updated", 2),
	}}
	var seen []string
	handler := func(_ context.Context, e *Event) error {
		seen = append(seen, e.EventType)
		return nil
	}
	cfg := ConsumerConfig{GroupID: "group-handles", Topics: []string{"ecommerce.product.created", "ecommerce.product.updated"}}
	c := NewConsumerWithReader(reader, cfg, handler, testLogger())

	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, []string{"product.created", "product.updated"}, seen)
	assert.Len(t, reader.committed, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(ConsumerMessagesProcessed.WithLabelValues("ecommerce.product.created", "group-handles")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ConsumerMessagesReceived.WithLabelValues("ecommerce.product.updated", "group-handles")))
}

func TestConsumer_SkipsUndecodableMessage(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "ecommerce.product.deleted", Value: []byte("not json")},
		{Topic: "ecommerce.product.deleted", Value: []byte(`{"data":{}}`)},
	}}
	called := false
	c := NewConsumerWithReader(reader, ConsumerConfig{GroupID: "group-decode"},
		func(context.Context, *Event) error { called = true; return nil }, testLogger())

	require.NoError(t, c.Start(context.Background()))

	assert.False(t, called)
	assert.Len(t, reader.committed, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(ConsumerMessagesFailed.WithLabelValues("ecommerce.product.deleted", "group-decode", "decode")))
}

func TestConsumer_RetriesThenSkips(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{eventMessage(t, "ecommerce.product.updated", "product.updated", 7)}}
	attempts := 0
	c := NewConsumerWithReader(reader, ConsumerConfig{GroupID: "group-retry"},
		func(context.Context, *Event) error { attempts++; return errors.New("redis down") }, testLogger())

	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, maxHandlerRetries, attempts)
	assert.Len(t, reader.committed, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(ConsumerMessagesFailed.WithLabelValues("ecommerce.product.updated", "group-retry", "handler")))
}

func TestConsumer_RecoversAfterTransientFailure(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{eventMessage(t, "ecommerce.product.created", "product.created", 3)}}
	attempts := 0
	c := NewConsumerWithReader(reader, ConsumerConfig{GroupID: "group-recover"},
		func(context.Context, *Event) error {
			attempts++
			if attempts == 1 {
				return errors.New("timeout")
			}
			return nil
		}, testLogger())

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 2, attempts)
	assert.Equal(t, float64(1), testutil.ToFloat64(ConsumerMessagesProcessed.WithLabelValues("ecommerce.product.created", "group-recover")))
}

func TestConsumer_StopsOnContextCancel(t *testing.T) {
	reader := &fakeReader{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewConsumerWithReader(reader, ConsumerConfig{GroupID: "group-cancel"},
		func(context.Context, *Event) error { return nil }, testLogger())

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, 1, reader.closed)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, reader.closed)
}

func TestUnmarshalEvent(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"event_id":"x"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	e, err := UnmarshalEvent([]byte(`{"event_type":"product.updated","data":{"product_id":"p1"}}`))
	require.NoError(t, err)

	var payload struct {
		ProductID string `json:"product_id"`
	}
	require.NoError(t, e.UnmarshalData(&payload))
	assert.Equal(t, "p1", payload.ProductID)

	assert.ErrorIs(t, (&Event{EventType: "x"}).UnmarshalData(&payload), ErrInvalidEvent)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.product.updated", Topic("product", "updated"))
}
