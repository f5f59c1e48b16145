package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound indicates the user (or the pending email change token) does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrPictureNotFound indicates the user has no readable picture.
	ErrPictureNotFound = errors.New("picture not found")
	// ErrUsernameUnavailable indicates the requested email is already used as a login handle.
	ErrUsernameUnavailable = errors.New("username unavailable")

	// ErrCredentialMismatch is the shared cause of the two password mismatch errors.
	ErrCredentialMismatch = errors.New("password does not match")
	// ErrInvalidPassword is returned when dropping an account with the wrong password.
	ErrInvalidPassword = fmt.Errorf("invalid password: %w", ErrCredentialMismatch)
	// ErrPasswordValidationFailed is returned when changing a password with the wrong current password.
	ErrPasswordValidationFailed = fmt.Errorf("password validation failed: %w", ErrCredentialMismatch)
	// ErrNewPasswordInvalid indicates the desired password fails the strength policy.
	ErrNewPasswordInvalid = errors.New("new password is invalid")

	ErrCannotSuspendSoleAdmin = errors.New("cannot suspend sole admin")
	ErrCannotDemoteSoleAdmin  = errors.New("cannot demote sole admin")

	// ErrInvalidListOptions indicates a negative page or size, or a size above MaxListSize.
	ErrInvalidListOptions = errors.New("invalid list options")

	// ErrInternalServerError wraps unexpected downstream failures.
	ErrInternalServerError = errors.New("internal server error")
)

func internalError(err error) error {
	return fmt.Errorf("%w: %w", ErrInternalServerError, err)
}
