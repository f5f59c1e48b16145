package port

import (
	"context"

	"github.com/arklim/account-service/internal/core/domain"
)

// UserFilter narrows paged user listings.
type UserFilter struct {
	Limit  int
	Offset int
}

// EmailUpdateStage is the pending email change pair. The zero value clears it.
type EmailUpdateStage struct {
	Token string
	Value string
}

// UserPatch names the columns one Update writes. Nil fields are left as stored.
type UserPatch struct {
	FullName     *string
	Username     *string
	Email        *string
	PasswordHash *string
	Picture      *string
	// ClearPicture sets the picture to NULL and wins over Picture.
	ClearPicture bool
	EmailUpdate  *EmailUpdateStage
	// IfEmailUpdateToken makes the write conditional on the stored token.
	// A mismatch is reported as repository.ErrNotFound.
	IfEmailUpdateToken *string
}

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmailUpdateToken(ctx context.Context, token string) (*domain.User, error)
	FindMany(ctx context.Context, ids []string) ([]domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	Suspend(ctx context.Context, id string, suspend bool) (*domain.User, error)
	MakeAdmin(ctx context.Context, id string, makeAdmin bool) (*domain.User, error)
	// EnoughActiveAdmins reports whether at least one active admin other than exceptID exists.
	EnoughActiveAdmins(ctx context.Context, exceptID string) (bool, error)
}
