// Package worker runs lookups requested asynchronously over Kafka.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadagent/mailfinder/internal/domain"
	"github.com/leadagent/mailfinder/internal/event"
	"github.com/leadagent/mailfinder/internal/service"
	apperrors "github.com/leadagent/mailfinder/pkg/errors"
	pkgkafka "github.com/leadagent/mailfinder/pkg/kafka"
	"github.com/leadagent/mailfinder/pkg/logger"
)

// DefaultGroupID is the consumer group used when none is configured.
const DefaultGroupID = "mailfinder-workers"

// dedupTTL is how long processed request IDs are remembered.
const dedupTTL = time.Hour

// LookupFinder runs a single lookup.
type LookupFinder interface {
	FindEmail(ctx context.Context, input *service.FindEmailInput) (*domain.Lookup, error)
}

// LookupRequestHandler turns lookup.requested events into lookups.
type LookupRequestHandler struct {
	finder LookupFinder
	logger *slog.Logger
}

// NewLookupRequestHandler creates a new handler.
func NewLookupRequestHandler(finder LookupFinder, logger *slog.Logger) *LookupRequestHandler {
	return &LookupRequestHandler{
		finder: finder,
		logger: logger,
	}
}

// Handle processes one lookup.requested event. Payloads that can never
// succeed are reported as permanent failures.
func (h *LookupRequestHandler) Handle(ctx context.Context, ev *pkgkafka.Event) error {
	if ev.EventType != event.TopicLookupRequested {
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", ev.EventType),
			slog.String("event_id", ev.EventID),
		)
		return nil
	}

	var req event.LookupRequestedData
	if err := ev.UnmarshalData(&req); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode lookup request: %w", err))
	}

	correlationID := ev.CorrelationID
	if correlationID == "" {
		correlationID = ev.EventID
	}
	ctx = logger.WithCorrelationID(ctx, correlationID)

	lookup, err := h.finder.FindEmail(ctx, &service.FindEmailInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Domain:      req.Domain,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return pkgkafka.Permanent(err)
		}
		return err
	}

	h.logger.InfoContext(ctx, "requested lookup processed",
		slog.String("event_id", ev.EventID),
		slog.String("lookup_id", lookup.ID),
		slog.Bool("verified", lookup.Verified),
	)
	return nil
}

// ConsumerConfig holds the settings for the lookup request consumer.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
}

// NewConsumer creates a consumer for lookup.requested. Events are
// de-duplicated by ID and failures end up in dlq when it is non-nil.
func NewConsumer(cfg ConsumerConfig, h *LookupRequestHandler, dlq pkgkafka.DeadLetterer, logger *slog.Logger) *pkgkafka.Consumer {
	group := cfg.GroupID
	if group == "" {
		group = DefaultGroupID
	}

	handler := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(dedupTTL), h.Handle, logger)
	consumer := pkgkafka.NewConsumer(
		pkgkafka.DefaultConsumerConfig(cfg.Brokers, group, event.TopicLookupRequested),
		handler,
		logger,
	)
	if dlq != nil {
		consumer.WithDLQ(dlq)
	}
	return consumer
}
