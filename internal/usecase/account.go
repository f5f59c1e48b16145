package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/logger"
	"github.com/arklim/account-service/internal/infra/picture"
	"github.com/arklim/account-service/internal/repository"
)

const (
	EmailUpdateTemplate = "email-update"

	DefaultListPage = 1
	DefaultListSize = 10
	MaxListSize     = 100
)

var tracer = otel.Tracer("github.com/arklim/account-service/internal/usecase")

// SyncPolicy decides what a failed search index write does to the operation result.
type SyncPolicy string

const (
	// SyncStrict surfaces index failures as ErrInternalServerError after the repository write.
	SyncStrict SyncPolicy = "strict"
	// SyncLenient logs and counts index failures and returns the result.
	SyncLenient SyncPolicy = "lenient"
)

// AccountMetrics captures side-effect failures of account operations.
type AccountMetrics interface {
	SearchSyncFailed(operation string)
	MailFailed(template string)
	SoleAdminRejected(operation string)
	EventPublishFailed(event string)
}

type nopMetrics struct{}

func (nopMetrics) SearchSyncFailed(string)   {}
func (nopMetrics) MailFailed(string)         {}
func (nopMetrics) SoleAdminRejected(string)  {}
func (nopMetrics) EventPublishFailed(string) {}

// AccountOptions configures AccountService.
type AccountOptions struct {
	UIURL      string
	SyncPolicy SyncPolicy
}

// ListOptions selects one page of the admin user list. Query switches to the search index.
type ListOptions struct {
	Query string
	Page  int
	Size  int
}

// AccountService orchestrates reads and mutations of a single user account
// across the repository, the search index and the mail sender.
type AccountService struct {
	users    port.UserRepository
	index    port.SearchIndex
	mail     port.MailSender
	hasher   port.PasswordHasher
	policy   port.PasswordPolicy
	events   port.EventPublisher
	metrics  AccountMetrics
	logger   *zap.Logger
	now      func() time.Time
	newToken func() string
	opts     AccountOptions
}

// NewAccountService constructs the account service.
func NewAccountService(
	users port.UserRepository,
	index port.SearchIndex,
	mail port.MailSender,
	hasher port.PasswordHasher,
	opts AccountOptions,
) *AccountService {
	if opts.SyncPolicy == "" {
		opts.SyncPolicy = SyncStrict
	}
	return &AccountService{
		users:    users,
		index:    index,
		mail:     mail,
		hasher:   hasher,
		metrics:  nopMetrics{},
		logger:   zap.NewNop(),
		now:      time.Now,
		newToken: newHyphenlessUUID,
		opts:     opts,
	}
}

func newHyphenlessUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *AccountService) WithLogger(logger *zap.Logger) *AccountService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithPasswordPolicy enforces policy on new passwords.
func (s *AccountService) WithPasswordPolicy(policy port.PasswordPolicy) *AccountService {
	s.policy = policy
	return s
}

func (s *AccountService) WithEvents(events port.EventPublisher) *AccountService {
	s.events = events
	return s
}

func (s *AccountService) WithMetrics(metrics AccountMetrics) *AccountService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithNow overrides the clock, primarily for deterministic testing.
func (s *AccountService) WithNow(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithTokenSource overrides email update token generation.
func (s *AccountService) WithTokenSource(fn func() string) *AccountService {
	if fn != nil {
		s.newToken = fn
	}
	return s
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "AccountService."+name, trace.WithAttributes(attrs...))
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *AccountService) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(s.logger, ctx)
}

func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrUsernameUnavailable
	}
	return internalError(err)
}

func (s *AccountService) load(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return user, nil
}

// save writes patch for user id. Operations send only the fields they change.
func (s *AccountService) save(ctx context.Context, id string, patch port.UserPatch) (*domain.User, error) {
	updated, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return updated, nil
}

func (s *AccountService) syncFailed(ctx context.Context, operation, userID string, err error) error {
	s.metrics.SearchSyncFailed(operation)
	s.log(ctx).Warn("search index sync failed",
		zap.String("operation", operation),
		zap.String("user_id", userID),
		zap.String("policy", string(s.opts.SyncPolicy)),
		zap.Error(err),
	)
	if s.opts.SyncPolicy == SyncLenient {
		return nil
	}
	return internalError(fmt.Errorf("sync search index: %w", err))
}

func (s *AccountService) syncDocument(ctx context.Context, operation string, user domain.User) error {
	if s.index == nil {
		return nil
	}
	if err := s.index.UpdateDocuments(ctx, []domain.UserDocument{ToDocument(user)}); err != nil {
		return s.syncFailed(ctx, operation, user.ID, err)
	}
	return nil
}

func (s *AccountService) publish(ctx context.Context, event string, userID string, fn func(port.EventPublisher) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events); err != nil {
		s.metrics.EventPublishFailed(event)
		s.log(ctx).Warn("failed to publish account event",
			zap.String("event", event),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *AccountService) userUpdated(ctx context.Context, user domain.User, fields ...string) {
	s.publish(ctx, "user_updated", user.ID, func(p port.EventPublisher) error {
		return p.PublishUserUpdated(ctx, domain.UserUpdatedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			Fields:    fields,
			UpdatedAt: s.now().UTC(),
		})
	})
}

// Find returns the public projection of the user.
func (s *AccountService) Find(ctx context.Context, id string) (_ *UserDTO, err error) {
	ctx, span := startSpan(ctx, "Find", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := MapEntity(*user)
	return &dto, nil
}

// FindAsAdmin returns the admin projection of the user.
func (s *AccountService) FindAsAdmin(ctx context.Context, id string) (_ *UserAdminDTO, err error) {
	ctx, span := startSpan(ctx, "FindAsAdmin", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := MapAdminEntity(*user)
	return &dto, nil
}

// IsAdmin reports whether id belongs to an active admin.
func (s *AccountService) IsAdmin(ctx context.Context, id string) (bool, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin && user.IsActive, nil
}

// GetPicture decodes the stored picture. Any decode failure reads as ErrPictureNotFound.
func (s *AccountService) GetPicture(ctx context.Context, id string) (_ *domain.Picture, err error) {
	ctx, span := startSpan(ctx, "GetPicture", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Picture == nil || *user.Picture == "" {
		return nil, ErrPictureNotFound
	}

	data, err := picture.Decode(*user.Picture)
	if err != nil {
		return nil, ErrPictureNotFound
	}
	ext, err := picture.Extension(*user.Picture)
	if err != nil {
		return nil, ErrPictureNotFound
	}
	mime, err := picture.MIME(*user.Picture)
	if err != nil {
		return nil, ErrPictureNotFound
	}

	return &domain.Picture{Data: data, Extension: ext, MIME: mime}, nil
}

// GetCount returns the number of users.
func (s *AccountService) GetCount(ctx context.Context) (int64, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return 0, internalError(err)
	}
	return count, nil
}

func normalizeListOptions(opts ListOptions) (ListOptions, error) {
	if opts.Page == 0 {
		opts.Page = DefaultListPage
	}
	if opts.Size == 0 {
		opts.Size = DefaultListSize
	}
	if opts.Page < 1 || opts.Size < 1 || opts.Size > MaxListSize {
		return opts, ErrInvalidListOptions
	}
	opts.Query = strings.TrimSpace(opts.Query)
	return opts, nil
}

func totalPages(total int64, size int) int64 {
	return (total + int64(size) - 1) / int64(size)
}

// List returns one page of admin projections, from the search index when a query is given.
func (s *AccountService) List(ctx context.Context, opts ListOptions) (_ *UserAdminList, err error) {
	ctx, span := startSpan(ctx, "List", attribute.Bool("list.query", opts.Query != ""))
	defer func() { finishSpan(span, err) }()

	opts, err = normalizeListOptions(opts)
	if err != nil {
		return nil, err
	}

	var (
		users []domain.User
		total int64
	)

	if opts.Query != "" {
		users, total, err = s.searchUsers(ctx, opts)
	} else {
		users, total, err = s.pageUsers(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	data := make([]UserAdminDTO, 0, len(users))
	for _, user := range users {
		data = append(data, MapAdminEntity(user))
	}

	return &UserAdminList{
		Data:          data,
		Page:          opts.Page,
		Size:          opts.Size,
		TotalElements: total,
		TotalPages:    totalPages(total, opts.Size),
	}, nil
}

func (s *AccountService) searchUsers(ctx context.Context, opts ListOptions) ([]domain.User, int64, error) {
	if s.index == nil {
		return nil, 0, internalError(errors.New("search index not configured"))
	}

	result, err := s.index.Search(ctx, opts.Query, opts.Page, opts.Size)
	if err != nil {
		return nil, 0, internalError(err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}

	found, err := s.users.FindMany(ctx, ids)
	if err != nil {
		return nil, 0, internalError(err)
	}

	byID := make(map[string]domain.User, len(found))
	for _, user := range found {
		byID[user.ID] = user
	}

	// keep the engine's relevance order, skipping ids the index still holds after a delete
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := byID[id]; ok {
			users = append(users, user)
		}
	}
	return users, result.TotalHits, nil
}

func (s *AccountService) pageUsers(ctx context.Context, opts ListOptions) ([]domain.User, int64, error) {
	users, err := s.users.List(ctx, port.UserFilter{
		Limit:  opts.Size,
		Offset: (opts.Page - 1) * opts.Size,
	})
	if err != nil {
		return nil, 0, internalError(err)
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return users, total, nil
}

// UpdateFullName changes the display name and syncs the index.
func (s *AccountService) UpdateFullName(ctx context.Context, id, fullName string) (_ *UserDTO, err error) {
	ctx, span := startSpan(ctx, "UpdateFullName", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(fullName)
	updated, err := s.save(ctx, user.ID, port.UserPatch{FullName: &name})
	if err != nil {
		return nil, err
	}

	if err := s.syncDocument(ctx, "update_full_name", *updated); err != nil {
		return nil, err
	}
	s.userUpdated(ctx, *updated, "full_name")

	dto := MapEntity(*updated)
	return &dto, nil
}

// UpdateEmailRequest stages an email change and mails the confirmation token to the new address.
// Requesting the current email cancels any staged change.
func (s *AccountService) UpdateEmailRequest(ctx context.Context, id, email string) (_ *UserDTO, err error) {
	ctx, span := startSpan(ctx, "UpdateEmailRequest", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == user.Email {
		updated, err := s.save(ctx, user.ID, port.UserPatch{EmailUpdate: &port.EmailUpdateStage{}})
		if err != nil {
			return nil, err
		}
		dto := MapEntity(*updated)
		return &dto, nil
	}

	if _, err := s.users.FindByUsername(ctx, email); err == nil {
		return nil, ErrUsernameUnavailable
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internalError(err)
	}

	token := s.newToken()
	staged, err := s.save(ctx, user.ID, port.UserPatch{
		EmailUpdate: &port.EmailUpdateStage{Token: token, Value: email},
	})
	if err != nil {
		return nil, err
	}

	vars := map[string]string{
		"EMAIL":  email,
		"UI_URL": s.opts.UIURL,
		"TOKEN":  token,
	}
	if err := s.mail.Send(ctx, EmailUpdateTemplate, email, vars); err != nil {
		s.metrics.MailFailed(EmailUpdateTemplate)
		s.log(ctx).Error("email update mail failed, rolling back staged change",
			zap.String("user_id", staged.ID),
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)

		// a newer request may have replaced the pair; leave that one alone
		_, rbErr := s.users.Update(ctx, staged.ID, port.UserPatch{
			EmailUpdate:        &port.EmailUpdateStage{},
			IfEmailUpdateToken: &token,
		})
		if rbErr != nil && !errors.Is(rbErr, repository.ErrNotFound) {
			s.log(ctx).Error("failed to roll back staged email change",
				zap.String("user_id", staged.ID),
				zap.Error(rbErr),
			)
			return nil, internalError(errors.Join(err, rbErr))
		}
		return nil, internalError(err)
	}

	s.publish(ctx, "email_update_requested", staged.ID, func(p port.EventPublisher) error {
		return p.PublishEmailUpdateRequested(ctx, domain.EmailUpdateRequestedEvent{
			EventID:     uuid.NewString(),
			UserID:      staged.ID,
			NewEmail:    email,
			RequestedAt: s.now().UTC(),
		})
	})

	dto := MapEntity(*staged)
	return &dto, nil
}

// UpdateEmailConfirmation applies the change staged under token. Tokens are single use.
func (s *AccountService) UpdateEmailConfirmation(ctx context.Context, token string) (_ *UserDTO, err error) {
	ctx, span := startSpan(ctx, "UpdateEmailConfirmation")
	defer func() { finishSpan(span, err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.users.FindByEmailUpdateToken(ctx, token)
	if err != nil {
		err = mapRepositoryError(err)
		if errors.Is(err, ErrUserNotFound) {
			logger.FromContext(s.logger, ctx).Info("email confirmation token not recognised",
				zap.String("token", logger.MaskToken(token)),
			)
		}
		return nil, err
	}
	if !user.HasPendingEmail() {
		return nil, ErrUserNotFound
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	oldEmail := user.Email
	newEmail := *user.EmailUpdateValue

	// the token guard makes a concurrent second confirmation fail as not found
	updated, err := s.save(ctx, user.ID, port.UserPatch{
		Email:              &newEmail,
		Username:           &newEmail,
		EmailUpdate:        &port.EmailUpdateStage{},
		IfEmailUpdateToken: &token,
	})
	if err != nil {
		return nil, err
	}

	if err := s.syncDocument(ctx, "update_email_confirmation", *updated); err != nil {
		return nil, err
	}

	s.publish(ctx, "email_updated", updated.ID, func(p port.EventPublisher) error {
		return p.PublishEmailUpdated(ctx, domain.EmailUpdatedEvent{
			EventID:   uuid.NewString(),
			UserID:    updated.ID,
			OldEmail:  oldEmail,
			NewEmail:  newEmail,
			UpdatedAt: s.now().UTC(),
		})
	})

	dto := MapEntity(*updated)
	return &dto, nil
}

// UpdatePassword replaces the password after verifying the current one.
func (s *AccountService) UpdatePassword(ctx context.Context, id, currentPassword, newPassword string) (_ *UserDTO, err error) {
	ctx, span := startSpan(ctx, "UpdatePassword", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return nil, internalError(fmt.Errorf("verify current password: %w", err))
	}
	if !ok {
		return nil, ErrPasswordValidationFailed
	}

	if s.policy != nil {
		if err := s.policy.Validate(newPassword); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNewPasswordInvalid, err)
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, internalError(fmt.Errorf("hash new password: %w", err))
	}
	updated, err := s.save(ctx, user.ID, port.UserPatch{PasswordHash: &hash})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "password_changed", updated.ID, func(p port.EventPublisher) error {
		return p.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    updated.ID,
			ChangedAt: s.now().UTC(),
		})
	})

	dto := MapEntity(*updated)
	return &dto, nil
}

func readPictureFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// UpdatePicture stores the file at path as the user's picture, tagged with contentType.
func (s *AccountService) UpdatePicture(ctx context.Context, id, path, contentType string) (_ *UserDTO, err error) {
	ctx, span := startSpan(ctx, "UpdatePicture", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	data, err := readPictureFile(path)
	if err != nil {
		return nil, internalError(fmt.Errorf("read picture: %w", err))
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	encoded := picture.Encode(contentType, data)
	updated, err := s.save(ctx, user.ID, port.UserPatch{Picture: &encoded})
	if err != nil {
		return nil, err
	}

	if err := s.syncDocument(ctx, "update_picture", *updated); err != nil {
		return nil, err
	}
	s.userUpdated(ctx, *updated, "picture")

	dto := MapEntity(*updated)
	return &dto, nil
}

// DeletePicture clears the user's picture.
func (s *AccountService) DeletePicture(ctx context.Context, id string) (_ *UserDTO, err error) {
	ctx, span := startSpan(ctx, "DeletePicture", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.save(ctx, user.ID, port.UserPatch{ClearPicture: true})
	if err != nil {
		return nil, err
	}

	if err := s.syncDocument(ctx, "delete_picture", *updated); err != nil {
		return nil, err
	}
	s.userUpdated(ctx, *updated, "picture")

	dto := MapEntity(*updated)
	return &dto, nil
}

// Drop deletes the account after verifying password, then removes its index document.
func (s *AccountService) Drop(ctx context.Context, id, password string) (err error) {
	ctx, span := startSpan(ctx, "Drop", attribute.String("user.id", id))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return internalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return ErrInvalidPassword
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return mapRepositoryError(err)
	}

	if s.index != nil {
		if err := s.index.DeleteDocuments(ctx, []string{user.ID}); err != nil {
			if err := s.syncFailed(ctx, "drop", user.ID, err); err != nil {
				return err
			}
		}
	}

	s.publish(ctx, "user_deleted", user.ID, func(p port.EventPublisher) error {
		return p.PublishUserDeleted(ctx, domain.UserDeletedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			DeletedAt: s.now().UTC(),
		})
	})
	return nil
}

// Suspend toggles the active flag. Suspending the sole active admin is rejected.
func (s *AccountService) Suspend(ctx context.Context, id string, suspend bool) (err error) {
	ctx, span := startSpan(ctx, "Suspend", attribute.String("user.id", id), attribute.Bool("suspend", suspend))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if suspend && user.IsAdmin {
		if err := s.requireAnotherAdmin(ctx, "suspend", user.ID, ErrCannotSuspendSoleAdmin); err != nil {
			return err
		}
	}

	updated, err := s.users.Suspend(ctx, user.ID, suspend)
	if err != nil {
		if errors.Is(err, repository.ErrSoleAdmin) {
			s.metrics.SoleAdminRejected("suspend")
			return ErrCannotSuspendSoleAdmin
		}
		return mapRepositoryError(err)
	}

	if err := s.syncDocument(ctx, "suspend", *updated); err != nil {
		return err
	}

	s.publish(ctx, "suspension_changed", updated.ID, func(p port.EventPublisher) error {
		return p.PublishSuspensionChanged(ctx, domain.SuspensionChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    updated.ID,
			Suspended: suspend,
			ChangedAt: s.now().UTC(),
		})
	})
	return nil
}

// MakeAdmin toggles the admin flag. Demoting the sole active admin is rejected.
func (s *AccountService) MakeAdmin(ctx context.Context, id string, makeAdmin bool) (err error) {
	ctx, span := startSpan(ctx, "MakeAdmin", attribute.String("user.id", id), attribute.Bool("make_admin", makeAdmin))
	defer func() { finishSpan(span, err) }()

	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if !makeAdmin && user.IsAdmin {
		if err := s.requireAnotherAdmin(ctx, "make_admin", user.ID, ErrCannotDemoteSoleAdmin); err != nil {
			return err
		}
	}

	updated, err := s.users.MakeAdmin(ctx, user.ID, makeAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrSoleAdmin) {
			s.metrics.SoleAdminRejected("make_admin")
			return ErrCannotDemoteSoleAdmin
		}
		return mapRepositoryError(err)
	}

	if err := s.syncDocument(ctx, "make_admin", *updated); err != nil {
		return err
	}

	s.publish(ctx, "admin_changed", updated.ID, func(p port.EventPublisher) error {
		return p.PublishAdminChanged(ctx, domain.AdminChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    updated.ID,
			IsAdmin:   makeAdmin,
			ChangedAt: s.now().UTC(),
		})
	})
	return nil
}

func (s *AccountService) requireAnotherAdmin(ctx context.Context, operation, userID string, rejection error) error {
	enough, err := s.users.EnoughActiveAdmins(ctx, userID)
	if err != nil {
		return internalError(err)
	}
	if !enough {
		s.metrics.SoleAdminRejected(operation)
		return rejection
	}
	return nil
}
