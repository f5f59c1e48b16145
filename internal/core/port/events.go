package port

import (
	"context"

	"github.com/arklim/account-service/internal/core/domain"
)

// EventPublisher publishes account events to the message bus.
type EventPublisher interface {
	PublishUserUpdated(ctx context.Context, event domain.UserUpdatedEvent) error
	PublishEmailUpdateRequested(ctx context.Context, event domain.EmailUpdateRequestedEvent) error
	PublishEmailUpdated(ctx context.Context, event domain.EmailUpdatedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error
	PublishSuspensionChanged(ctx context.Context, event domain.SuspensionChangedEvent) error
	PublishAdminChanged(ctx context.Context, event domain.AdminChangedEvent) error
}
