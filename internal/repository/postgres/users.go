package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/repository"
)

const usersTable = "users"

var userColumns = []string{
	"id",
	"full_name",
	"username",
	"email",
	"password_hash",
	"picture",
	"is_admin",
	"is_active",
	"is_email_confirmed",
	"email_update_token",
	"email_update_value",
	"refresh_token_value",
	"refresh_token_expiry",
	"reset_password_token",
	"email_confirmation_token",
	"create_time",
	"update_time",
}

var returningUser = "RETURNING " + strings.Join(userColumns, ", ")

const lockOtherActiveAdminsSQL = `
	SELECT COUNT(*) FROM (
		SELECT id
		  FROM users
		 WHERE is_admin AND is_active AND id <> $1
		   FOR UPDATE
	) AS admins
`

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	db      pgDB
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewUserRepository wires a PostgreSQL-backed user repository over a pool, a tx or a mock.
func NewUserRepository(db pgDB) *UserRepository {
	return &UserRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user                   domain.User
		picture                sql.NullString
		emailUpdateToken       sql.NullString
		emailUpdateValue       sql.NullString
		refreshTokenValue      sql.NullString
		refreshTokenExpiry     sql.NullTime
		resetPasswordToken     sql.NullString
		emailConfirmationToken sql.NullString
		updateTime             sql.NullTime
	)

	if err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&picture,
		&user.IsAdmin,
		&user.IsActive,
		&user.IsEmailConfirmed,
		&emailUpdateToken,
		&emailUpdateValue,
		&refreshTokenValue,
		&refreshTokenExpiry,
		&resetPasswordToken,
		&emailConfirmationToken,
		&user.CreateTime,
		&updateTime,
	); err != nil {
		return nil, err
	}

	user.Picture = nullableStringPtr(picture)
	user.EmailUpdateToken = nullableStringPtr(emailUpdateToken)
	user.EmailUpdateValue = nullableStringPtr(emailUpdateValue)
	user.RefreshTokenValue = nullableStringPtr(refreshTokenValue)
	user.RefreshTokenExpiry = nullableTimePtr(refreshTokenExpiry)
	user.ResetPasswordToken = nullableStringPtr(resetPasswordToken)
	user.EmailConfirmationToken = nullableStringPtr(emailConfirmationToken)
	user.UpdateTime = nullableTimePtr(updateTime)

	return &user, nil
}

func (r *UserRepository) findOne(ctx context.Context, exec pgExecutor, where squirrel.Sqlizer, what string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by %s sql: %w", what, err)
	}

	user, err := scanUser(exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user by %s: %w", what, err)
	}
	return user, nil
}

// FindByID retrieves a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, r.db, squirrel.Eq{"id": id}, "id")
}

// FindByUsername retrieves a user by login handle.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, r.db, squirrel.Eq{"username": username}, "username")
}

// FindByEmailUpdateToken retrieves the user holding a pending email change token.
func (r *UserRepository) FindByEmailUpdateToken(ctx context.Context, token string) (*domain.User, error) {
	return r.findOne(ctx, r.db, squirrel.Eq{"email_update_token": token}, "email update token")
}

// FindMany loads the users with the given ids. Unknown ids are skipped.
func (r *UserRepository) FindMany(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}

	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select users by ids sql: %w", err)
	}

	return r.queryUsers(ctx, stmt, args)
}

// List returns one page of users in creation order.
func (r *UserRepository) List(ctx context.Context, filter port.UserFilter) ([]domain.User, error) {
	query := r.builder.Select(userColumns...).
		From(usersTable).
		OrderBy("create_time ASC", "id ASC")

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	return r.queryUsers(ctx, stmt, args)
}

func (r *UserRepository) queryUsers(ctx context.Context, stmt string, args []any) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").From(usersTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count users sql: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("scan users count: %w", err)
	}
	return count, nil
}

// Update writes only the columns set in patch, plus update_time, and returns
// the stored row. Admin and active flags change through Suspend and MakeAdmin.
func (r *UserRepository) Update(ctx context.Context, id string, patch port.UserPatch) (*domain.User, error) {
	query := r.builder.Update(usersTable)

	if patch.FullName != nil {
		query = query.Set("full_name", *patch.FullName)
	}
	if patch.Username != nil {
		query = query.Set("username", *patch.Username)
	}
	if patch.Email != nil {
		query = query.Set("email", *patch.Email)
	}
	if patch.PasswordHash != nil {
		query = query.Set("password_hash", *patch.PasswordHash)
	}
	switch {
	case patch.ClearPicture:
		query = query.Set("picture", nil)
	case patch.Picture != nil:
		query = query.Set("picture", *patch.Picture)
	}
	if stage := patch.EmailUpdate; stage != nil {
		if stage.Token == "" {
			query = query.Set("email_update_token", nil).Set("email_update_value", nil)
		} else {
			query = query.Set("email_update_token", stage.Token).Set("email_update_value", stage.Value)
		}
	}

	query = query.Set("update_time", r.now().UTC()).Where(squirrel.Eq{"id": id})
	if patch.IfEmailUpdateToken != nil {
		query = query.Where(squirrel.Eq{"email_update_token": *patch.IfEmailUpdateToken})
	}

	stmt, args, err := query.Suffix(returningUser).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update user sql: %w", err)
	}

	updated, err := scanUser(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, repository.ErrNotFound
		case isUniqueViolation(err):
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// Delete removes the user row.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete(usersTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	ct, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Suspend sets is_active to !suspend. Suspending an admin fails with ErrSoleAdmin
// when no other active admin exists at commit time.
func (r *UserRepository) Suspend(ctx context.Context, id string, suspend bool) (*domain.User, error) {
	return r.setFlagGuarded(ctx, id, "is_active", !suspend, suspend)
}

// MakeAdmin sets is_admin. Demoting fails with ErrSoleAdmin when no other active admin exists.
func (r *UserRepository) MakeAdmin(ctx context.Context, id string, makeAdmin bool) (*domain.User, error) {
	return r.setFlagGuarded(ctx, id, "is_admin", makeAdmin, !makeAdmin)
}

func (r *UserRepository) setFlagGuarded(ctx context.Context, id, column string, value, guard bool) (*domain.User, error) {
	var updated *domain.User

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if guard {
			if err := r.ensureOtherActiveAdmin(ctx, tx, id); err != nil {
				return err
			}
		}

		stmt, args, err := r.builder.Update(usersTable).
			Set(column, value).
			Set("update_time", r.now().UTC()).
			Where(squirrel.Eq{"id": id}).
			Suffix(returningUser).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update %s sql: %w", column, err)
		}

		updated, err = scanUser(tx.QueryRow(ctx, stmt, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("update %s: %w", column, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UserRepository) ensureOtherActiveAdmin(ctx context.Context, tx pgx.Tx, id string) error {
	stmt, args, err := r.builder.Select("is_admin").
		From(usersTable).
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock user sql: %w", err)
	}

	var isAdmin bool
	if err := tx.QueryRow(ctx, stmt, args...).Scan(&isAdmin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}
	if !isAdmin {
		return nil
	}

	var others int64
	if err := tx.QueryRow(ctx, lockOtherActiveAdminsSQL, id).Scan(&others); err != nil {
		return fmt.Errorf("lock active admins: %w", err)
	}
	if others == 0 {
		return repository.ErrSoleAdmin
	}
	return nil
}

// EnoughActiveAdmins reports whether an active admin other than exceptID exists.
func (r *UserRepository) EnoughActiveAdmins(ctx context.Context, exceptID string) (bool, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From(usersTable).
		Where(squirrel.Eq{"is_admin": true, "is_active": true}).
		Where(squirrel.NotEq{"id": exceptID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build count active admins sql: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("scan active admins count: %w", err)
	}
	return count > 0, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
