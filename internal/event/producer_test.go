package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadagent/mailfinder/internal/domain"
	pkgkafka "github.com/leadagent/mailfinder/pkg/kafka"
	"github.com/leadagent/mailfinder/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	err  error
	sent []published
}

func (f *fakePublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: event})
	return nil
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "mailfinder.email.resolved", TopicEmailResolved)
	assert.Equal(t, "mailfinder.email.unresolved", TopicEmailUnresolved)
	assert.Equal(t, "mailfinder.lookup.requested", TopicLookupRequested)
}

func TestPublishLookupCompleted_Resolved(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, logger.Discard())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	err := p.PublishLookupCompleted(ctx, &domain.Lookup{
		ID: "l-1", FirstName: "Jane", LastName: "Doe", Domain: "acme.com",
		Email: "jdoe@acme.com", Status: "Accepted", Verified: true, Pattern: "flast",
	})

	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, TopicEmailResolved, pub.sent[0].topic)

	ev := pub.sent[0].event
	assert.Equal(t, TopicEmailResolved, ev.EventType)
	assert.Equal(t, "l-1", ev.AggregateID)
	assert.Equal(t, AggregateTypeLookup, ev.AggregateType)
	assert.Equal(t, "corr-1", ev.CorrelationID)

	var data LookupCompletedData
	require.NoError(t, ev.UnmarshalData(&data))
	assert.Equal(t, "jdoe@acme.com", data.Email)
	assert.Equal(t, "flast", data.Pattern)
}

func TestPublishLookupCompleted_Unresolved(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, logger.Discard())

	err := p.PublishLookupCompleted(context.Background(), &domain.Lookup{
		ID: "l-2", Domain: "acme.com", Reason: domain.ReasonNoDeliverable,
	})

	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, TopicEmailUnresolved, pub.sent[0].topic)

	var data LookupCompletedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, "no_deliverable", data.Reason)
}

func TestPublishLookupCompleted_Error(t *testing.T) {
	p := NewProducer(&fakePublisher{err: errors.New("broker down")}, logger.Discard())

	err := p.PublishLookupCompleted(context.Background(), &domain.Lookup{ID: "l-3"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestProducer_DisabledIsNoop(t *testing.T) {
	p := NewProducer(nil, logger.Discard())

	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishLookupCompleted(context.Background(), &domain.Lookup{ID: "l-4"}))

	_, err := p.PublishLookupRequested(context.Background(), LookupRequestedData{})
	assert.Error(t, err)
}

func TestPublishLookupRequested(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, logger.Discard())

	id, err := p.PublishLookupRequested(context.Background(), LookupRequestedData{
		FirstName: "Jane", LastName: "Doe", Domain: "acme.com",
	})

	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, TopicLookupRequested, pub.sent[0].topic)
	assert.Equal(t, pub.sent[0].event.EventID, id)

	var data LookupRequestedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, "acme.com", data.Domain)
}
