package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	TopicUserUpdated          = "idp.user.updated"
	TopicEmailUpdateRequested = "idp.user.email_update_requested"
	TopicEmailUpdated         = "idp.user.email_updated"
	TopicPasswordChanged      = "idp.user.password_changed"
	TopicUserDeleted          = "idp.user.deleted"
	TopicSuspensionChanged    = "idp.user.suspension_changed"
	TopicAdminChanged         = "idp.user.admin_changed"
)

// outgoing is an event reduced to what both publishers need.
type outgoing struct {
	id        string
	eventType string
	userID    string
	at        time.Time
	payload   any
}

func userUpdated(e domain.UserUpdatedEvent) outgoing {
	return outgoing{e.EventID, TopicUserUpdated, e.UserID, e.UpdatedAt, struct {
		UserID    string         `json:"user_id"`
		Fields    []string       `json:"fields"`
		UpdatedAt time.Time      `json:"updated_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{e.UserID, e.Fields, e.UpdatedAt.UTC(), e.Metadata}}
}

func emailUpdateRequested(e domain.EmailUpdateRequestedEvent) outgoing {
	return outgoing{e.EventID, TopicEmailUpdateRequested, e.UserID, e.RequestedAt, struct {
		UserID      string         `json:"user_id"`
		NewEmail    string         `json:"new_email"`
		RequestedAt time.Time      `json:"requested_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{e.UserID, e.NewEmail, e.RequestedAt.UTC(), e.Metadata}}
}

func emailUpdated(e domain.EmailUpdatedEvent) outgoing {
	return outgoing{e.EventID, TopicEmailUpdated, e.UserID, e.UpdatedAt, struct {
		UserID    string         `json:"user_id"`
		OldEmail  string         `json:"old_email"`
		NewEmail  string         `json:"new_email"`
		UpdatedAt time.Time      `json:"updated_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{e.UserID, e.OldEmail, e.NewEmail, e.UpdatedAt.UTC(), e.Metadata}}
}

func passwordChanged(e domain.PasswordChangedEvent) outgoing {
	return outgoing{e.EventID, TopicPasswordChanged, e.UserID, e.ChangedAt, struct {
		UserID    string         `json:"user_id"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{e.UserID, e.ChangedAt.UTC(), e.Metadata}}
}

func userDeleted(e domain.UserDeletedEvent) outgoing {
	return outgoing{e.EventID, TopicUserDeleted, e.UserID, e.DeletedAt, struct {
		UserID    string         `json:"user_id"`
		DeletedAt time.Time      `json:"deleted_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{e.UserID, e.DeletedAt.UTC(), e.Metadata}}
}

func suspensionChanged(e domain.SuspensionChangedEvent) outgoing {
	return outgoing{e.EventID, TopicSuspensionChanged, e.UserID, e.ChangedAt, struct {
		UserID    string         `json:"user_id"`
		Suspended bool           `json:"suspended"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{e.UserID, e.Suspended, e.ChangedAt.UTC(), e.Metadata}}
}

func adminChanged(e domain.AdminChangedEvent) outgoing {
	return outgoing{e.EventID, TopicAdminChanged, e.UserID, e.ChangedAt, struct {
		UserID    string         `json:"user_id"`
		IsAdmin   bool           `json:"is_admin"`
		ChangedAt time.Time      `json:"changed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{e.UserID, e.IsAdmin, e.ChangedAt.UTC(), e.Metadata}}
}

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

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, ev outgoing) error {
	ts := ev.at
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	id := ev.id
	if id == "" {
		id = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:   id,
		EventType: ev.eventType,
		UserID:    ev.userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   ev.payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(ev.eventType),
		Key:   sarama.StringEncoder(ev.userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *EventPublisher) PublishUserUpdated(ctx context.Context, event domain.UserUpdatedEvent) error {
	return p.publish(ctx, userUpdated(event))
}

func (p *EventPublisher) PublishEmailUpdateRequested(ctx context.Context, event domain.EmailUpdateRequestedEvent) error {
	return p.publish(ctx, emailUpdateRequested(event))
}

func (p *EventPublisher) PublishEmailUpdated(ctx context.Context, event domain.EmailUpdatedEvent) error {
	return p.publish(ctx, emailUpdated(event))
}

func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	return p.publish(ctx, passwordChanged(event))
}

func (p *EventPublisher) PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error {
	return p.publish(ctx, userDeleted(event))
}

func (p *EventPublisher) PublishSuspensionChanged(ctx context.Context, event domain.SuspensionChangedEvent) error {
	return p.publish(ctx, suspensionChanged(event))
}

func (p *EventPublisher) PublishAdminChanged(ctx context.Context, event domain.AdminChangedEvent) error {
	return p.publish(ctx, adminChanged(event))
}

var _ port.EventPublisher = (*EventPublisher)(nil)
