package usecase

import (
	"context"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/infra/logger"
)

// AuditService appends audit events and forwards them to the event
// publisher. Both writes are best-effort: failures are logged and never
// propagate to the calling operation.
type AuditService struct {
	records   port.AuditRepository
	publisher port.EventPublisher
}

// NewAuditService constructs an audit service.
func NewAuditService(records port.AuditRepository, publisher port.EventPublisher) *AuditService {
	return &AuditService{records: records, publisher: publisher}
}

// Record appends an audit event for a named action against an entity.
func (s *AuditService) Record(ctx context.Context, action, entityType, entityID string, actorUserID, organizationID *string, metadata map[string]any) {
	event := domain.AuditEvent{
		ID:             uuid.NewString(),
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		ActorUserID:    actorUserID,
		OrganizationID: organizationID,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}

	log := logger.WithContext(ctx)

	if s.records != nil {
		if err := s.records.Create(ctx, event); err != nil {
			log.Error("append audit event", zap.String("action", action), zap.Error(err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAuditEvent(ctx, event); err != nil {
			log.Error("publish audit event", zap.String("action", action), zap.Error(err))
		}
	}
}
