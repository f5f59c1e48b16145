package domain

import "time"

// User mirrors the persisted representation in the users table.
type User struct {
	ID                     string
	FullName               string
	Username               string
	Email                  string
	PasswordHash           string
	Picture                *string
	IsAdmin                bool
	IsActive               bool
	IsEmailConfirmed       bool
	EmailUpdateToken       *string
	EmailUpdateValue       *string
	RefreshTokenValue      *string
	RefreshTokenExpiry     *time.Time
	ResetPasswordToken     *string
	EmailConfirmationToken *string
	CreateTime             time.Time
	UpdateTime             *time.Time
}

// HasPendingEmail reports whether an email change is staged.
func (u User) HasPendingEmail() bool {
	return u.EmailUpdateToken != nil && u.EmailUpdateValue != nil
}

// StageEmailUpdate sets both halves of the pending email change.
func (u *User) StageEmailUpdate(token, email string) {
	u.EmailUpdateToken = &token
	u.EmailUpdateValue = &email
}

// ClearEmailUpdate drops any pending email change.
func (u *User) ClearEmailUpdate() {
	u.EmailUpdateToken = nil
	u.EmailUpdateValue = nil
}

// UserDocument is the projection mirrored into the search index.
type UserDocument struct {
	ID               string          `json:"id"`
	Username         string          `json:"username"`
	Email            string          `json:"email"`
	FullName         string          `json:"fullName"`
	IsEmailConfirmed bool            `json:"isEmailConfirmed"`
	CreateTime       time.Time       `json:"createTime"`
	UpdateTime       *time.Time      `json:"updateTime,omitempty"`
	Picture          *PictureSummary `json:"picture,omitempty"`
}

// PictureSummary exposes only the derived extension of a stored picture.
type PictureSummary struct {
	Extension string `json:"extension"`
}

// Picture is a decoded user picture.
type Picture struct {
	Data      []byte
	Extension string
	MIME      string
}
