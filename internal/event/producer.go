package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leadagent/mailfinder/internal/domain"
	pkgkafka "github.com/leadagent/mailfinder/pkg/kafka"
	"github.com/leadagent/mailfinder/pkg/logger"
)

// Kafka topics for lookup events.
var (
	TopicEmailResolved   = pkgkafka.Topic("email", "resolved")
	TopicEmailUnresolved = pkgkafka.Topic("email", "unresolved")
	TopicLookupRequested = pkgkafka.Topic("lookup", "requested")
)

// Aggregate type constant.
const AggregateTypeLookup = "lookup"

// SourceMailfinder identifies events produced by this service.
const SourceMailfinder = "mailfinder"

// Publisher is the transport used to deliver events. *pkgkafka.Producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// LookupCompletedData is the payload of email.resolved and email.unresolved events.
type LookupCompletedData struct {
	LookupID    string `json:"lookup_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Domain      string `json:"domain"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Status      string `json:"status,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Reason      string `json:"reason,omitempty"`
	FallbackURL string `json:"fallback_url,omitempty"`
}

// LookupRequestedData is the payload of lookup.requested events.
type LookupRequestedData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Domain      string `json:"domain"`
	CompanyName string `json:"company_name,omitempty"`
}

// Producer publishes lookup events. A Producer without a Publisher drops
// every event, which is how the service runs with Kafka disabled.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. pub may be nil.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  pub,
		logger: logger,
	}
}

// Enabled reports whether events are actually delivered.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishLookupCompleted publishes email.resolved when the lookup verified an
// address and email.unresolved otherwise.
func (p *Producer) PublishLookupCompleted(ctx context.Context, l *domain.Lookup) error {
	if !p.Enabled() {
		return nil
	}

	topic := TopicEmailUnresolved
	if l.Verified {
		topic = TopicEmailResolved
	}

	data := LookupCompletedData{
		LookupID:    l.ID,
		FirstName:   l.FirstName,
		LastName:    l.LastName,
		Domain:      l.Domain,
		CompanyName: l.CompanyName,
		Email:       l.Email,
		Status:      l.Status,
		Pattern:     l.Pattern,
		Reason:      string(l.Reason),
		FallbackURL: l.FallbackURL,
	}
	if err := p.publish(ctx, topic, l.ID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published lookup event",
		slog.String("topic", topic),
		slog.String("lookup_id", l.ID),
	)
	return nil
}

// PublishLookupRequested enqueues a lookup for the asynchronous worker and
// returns the event ID.
func (p *Producer) PublishLookupRequested(ctx context.Context, req LookupRequestedData) (string, error) {
	if !p.Enabled() {
		return "", fmt.Errorf("publish %s: event publishing disabled", TopicLookupRequested)
	}

	event, err := newEvent(ctx, TopicLookupRequested, "", req)
	if err != nil {
		return "", err
	}
	if err := p.kafka.Publish(ctx, TopicLookupRequested, event); err != nil {
		return "", fmt.Errorf("publish %s event: %w", TopicLookupRequested, err)
	}
	return event.EventID, nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := newEvent(ctx, topic, aggregateID, data)
	if err != nil {
		return err
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func newEvent(ctx context.Context, topic, aggregateID string, data any) (*pkgkafka.Event, error) {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeLookup, SourceMailfinder, data)
	if err != nil {
		return nil, fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	return event, nil
}
