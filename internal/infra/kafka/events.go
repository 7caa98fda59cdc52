package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/infra/config"
	"github.com/kidhack/bonfire/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// PublishAuditEvent publishes an audit event onto the audit topic, one topic
// per action name under the configured prefix.
func (p *EventPublisher) PublishAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	payload := struct {
		Action         string         `json:"action"`
		EntityType     string         `json:"entity_type"`
		EntityID       string         `json:"entity_id"`
		ActorUserID    *string        `json:"actor_user_id,omitempty"`
		OrganizationID *string        `json:"organization_id,omitempty"`
		Metadata       map[string]any `json:"metadata,omitempty"`
		CreatedAt      time.Time      `json:"created_at"`
	}{
		Action:         event.Action,
		EntityType:     event.EntityType,
		EntityID:       event.EntityID,
		ActorUserID:    event.ActorUserID,
		OrganizationID: event.OrganizationID,
		Metadata:       event.Metadata,
		CreatedAt:      event.CreatedAt.UTC(),
	}

	actor := ""
	if event.ActorUserID != nil {
		actor = *event.ActorUserID
	}

	return p.publish(ctx, event.ID, event.Action, actor, event.CreatedAt, payload)
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if requestID, ok := ctx.Value(logger.RequestIDKey{}).(string); ok && requestID != "" {
		metadata["request_id"] = requestID
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts down the underlying producer.
func (p *EventPublisher) Close() error {
	return p.producer.Close()
}

var _ port.EventPublisher = (*EventPublisher)(nil)
