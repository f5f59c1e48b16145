package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) log(ctx context.Context, ev outgoing) error {
	at := ev.at
	if at.IsZero() {
		at = time.Now()
	}

	logger.FromContext(p.logger, ctx).Info("stub event published",
		zap.String("event_type", ev.eventType),
		zap.String("user_id", ev.userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", ev.payload),
	)
	return nil
}

func (p *StubPublisher) PublishUserUpdated(ctx context.Context, event domain.UserUpdatedEvent) error {
	return p.log(ctx, userUpdated(event))
}

func (p *StubPublisher) PublishEmailUpdateRequested(ctx context.Context, event domain.EmailUpdateRequestedEvent) error {
	return p.log(ctx, emailUpdateRequested(event))
}

func (p *StubPublisher) PublishEmailUpdated(ctx context.Context, event domain.EmailUpdatedEvent) error {
	return p.log(ctx, emailUpdated(event))
}

func (p *StubPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	return p.log(ctx, passwordChanged(event))
}

func (p *StubPublisher) PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error {
	return p.log(ctx, userDeleted(event))
}

func (p *StubPublisher) PublishSuspensionChanged(ctx context.Context, event domain.SuspensionChangedEvent) error {
	return p.log(ctx, suspensionChanged(event))
}

func (p *StubPublisher) PublishAdminChanged(ctx context.Context, event domain.AdminChangedEvent) error {
	return p.log(ctx, adminChanged(event))
}

var _ port.EventPublisher = (*StubPublisher)(nil)
