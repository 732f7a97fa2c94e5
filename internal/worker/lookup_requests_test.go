package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadagent/mailfinder/internal/domain"
	"github.com/leadagent/mailfinder/internal/event"
	"github.com/leadagent/mailfinder/internal/service"
	apperrors "github.com/leadagent/mailfinder/pkg/errors"
	pkgkafka "github.com/leadagent/mailfinder/pkg/kafka"
	"github.com/leadagent/mailfinder/pkg/logger"
)

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) FindEmail(ctx context.Context, input *service.FindEmailInput) (*domain.Lookup, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lookup), args.Error(1)
}

func requestEvent(t *testing.T, data any) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.NewEvent(event.TopicLookupRequested, "", event.AggregateTypeLookup, "crm", data)
	require.NoError(t, err)
	return ev
}

func TestHandle_RunsLookup(t *testing.T) {
	finder := &mockFinder{}
	h := NewLookupRequestHandler(finder, logger.Discard())
	ev := requestEvent(t, event.LookupRequestedData{FirstName: "Jane", LastName: "Doe", Domain: "acme.com", CompanyName: "Acme"})

	finder.On("FindEmail", mock.MatchedBy(func(ctx context.Context) bool {
		return logger.CorrelationIDFromContext(ctx) == ev.EventID
	}), &service.FindEmailInput{FirstName: "Jane", LastName: "Doe", Domain: "acme.com", CompanyName: "Acme"}).
		Return(&domain.Lookup{ID: "l-1", Verified: true}, nil)

	require.NoError(t, h.Handle(context.Background(), ev))
	finder.AssertExpectations(t)
}

func TestHandle_KeepsIncomingCorrelationID(t *testing.T) {
	finder := &mockFinder{}
	h := NewLookupRequestHandler(finder, logger.Discard())
	ev := requestEvent(t, event.LookupRequestedData{FirstName: "Jane", LastName: "Doe", Domain: "acme.com"})
	ev.WithCorrelationID("corr-9")

	finder.On("FindEmail", mock.MatchedBy(func(ctx context.Context) bool {
		return logger.CorrelationIDFromContext(ctx) == "corr-9"
	}), mock.Anything).Return(&domain.Lookup{ID: "l-1"}, nil)

	require.NoError(t, h.Handle(context.Background(), ev))
	finder.AssertExpectations(t)
}

func TestHandle_InvalidInputIsPermanent(t *testing.T) {
	finder := &mockFinder{}
	h := NewLookupRequestHandler(finder, logger.Discard())

	finder.On("FindEmail", mock.Anything, mock.Anything).
		Return(nil, apperrors.InvalidInput("first_name, last_name and domain are required"))

	err := h.Handle(context.Background(), requestEvent(t, event.LookupRequestedData{Domain: "acme.com"}))

	require.Error(t, err)
	assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
}

func TestHandle_TransientErrorIsRetryable(t *testing.T) {
	finder := &mockFinder{}
	h := NewLookupRequestHandler(finder, logger.Discard())

	finder.On("FindEmail", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	err := h.Handle(context.Background(), requestEvent(t, event.LookupRequestedData{FirstName: "Jane", LastName: "Doe", Domain: "acme.com"}))

	require.Error(t, err)
	assert.NotErrorIs(t, err, pkgkafka.ErrPermanent)
}

func TestHandle_UndecodablePayloadIsPermanent(t *testing.T) {
	h := NewLookupRequestHandler(&mockFinder{}, logger.Discard())

	err := h.Handle(context.Background(), requestEvent(t, "not an object"))

	assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
}

func TestHandle_IgnoresOtherEventTypes(t *testing.T) {
	finder := &mockFinder{}
	h := NewLookupRequestHandler(finder, logger.Discard())
	ev := requestEvent(t, event.LookupRequestedData{})
	ev.EventType = event.TopicEmailResolved

	assert.NoError(t, h.Handle(context.Background(), ev))
	finder.AssertNotCalled(t, "FindEmail", mock.Anything, mock.Anything)
}

func TestNewConsumer(t *testing.T) {
	c := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}}, NewLookupRequestHandler(&mockFinder{}, logger.Discard()), nil, logger.Discard())

	require.NotNil(t, c)
	assert.NoError(t, c.Close())
}
