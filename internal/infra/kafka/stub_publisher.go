package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// PublishAuditEvent logs the audit event at info level.
func (p *StubPublisher) PublishAuditEvent(_ context.Context, event domain.AuditEvent) error {
	at := event.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", event.Action),
		zap.String("entity_type", event.EntityType),
		zap.String("entity_id", event.EntityID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("metadata", event.Metadata),
	)
	return nil
}

// Close is a no-op for the stub.
func (p *StubPublisher) Close() error {
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
