package port

import (
	"context"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// AuditRepository persists audit events. Writes are best-effort from the
// caller's point of view: services log failures but never fail the request
// over a missing audit row.
type AuditRepository interface {
	Create(ctx context.Context, event domain.AuditEvent) error
}

// EventPublisher pushes audit events to the message broker so downstream
// consumers (analytics, alerting) see them without polling the database.
type EventPublisher interface {
	PublishAuditEvent(ctx context.Context, event domain.AuditEvent) error
	Close() error
}
