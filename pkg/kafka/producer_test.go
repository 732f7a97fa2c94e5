package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg).Get(key)
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.False(t, cfg.Async)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: testLogger()}

	event, err := NewEvent("email.resolved", "lookup-1", "lookup", "mailfinder", map[string]string{"email": "a@b.co"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-9")

	require.NoError(t, p.Publish(context.Background(), "mailfinder.email.resolved", event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "mailfinder.email.resolved", msg.Topic)
	assert.Equal(t, []byte("lookup-1"), msg.Key)
	assert.Equal(t, "email.resolved", headerValue(msg, "event_type"))
	assert.Equal(t, "corr-9", headerValue(msg, "correlation_id"))

	decoded, err := UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}, logger: testLogger()}
	event, _ := NewEvent("email.resolved", "lookup-1", "lookup", "mailfinder", nil)

	err := p.Publish(context.Background(), "t", event)
	assert.ErrorContains(t, err, "broker down")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.ErrorContains(t, PingBrokers(context.Background(), nil), "no brokers")
}

func TestDeadLetter_AddsOriginHeaders(t *testing.T) {
	orig := kafka.Message{
		Topic: "mailfinder.lookup.requested", Partition: 2, Offset: 41,
		Key: []byte("k"), Value: []byte("v"),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte("lookup.requested")}},
	}

	dead := DeadLetter(orig, errors.New("verification unconfigured"), "mailfinder-workers")

	assert.Equal(t, "mailfinder.dlq.mailfinder.lookup.requested", dead.Topic)
	assert.Equal(t, orig.Value, dead.Value)
	assert.Equal(t, "lookup.requested", headerValue(dead, "event_type"))
	assert.Equal(t, "2", headerValue(dead, "dlq.original_partition"))
	assert.Equal(t, "41", headerValue(dead, "dlq.original_offset"))
	assert.Equal(t, "verification unconfigured", headerValue(dead, "dlq.error"))
}

func TestDLQProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	d := &DLQProducer{writer: w, logger: testLogger()}

	require.NoError(t, d.Publish(context.Background(), kafka.Message{Topic: "t"}, nil, "g"))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "mailfinder.dlq.t", w.msgs[0].Topic)
	assert.Empty(t, headerValue(w.msgs[0], "dlq.error"))
}
