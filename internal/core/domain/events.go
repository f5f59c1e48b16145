package domain

import "time"

// UserUpdatedEvent is emitted after a user's searchable profile changes.
type UserUpdatedEvent struct {
	EventID   string
	UserID    string
	Fields    []string
	UpdatedAt time.Time
	Metadata  map[string]any
}

// EmailUpdateRequestedEvent is emitted once a confirmation mail was dispatched.
type EmailUpdateRequestedEvent struct {
	EventID     string
	UserID      string
	NewEmail    string
	RequestedAt time.Time
	Metadata    map[string]any
}

// EmailUpdatedEvent is emitted when a staged email change is confirmed.
type EmailUpdatedEvent struct {
	EventID   string
	UserID    string
	OldEmail  string
	NewEmail  string
	UpdatedAt time.Time
	Metadata  map[string]any
}

// PasswordChangedEvent captures a completed password change.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	Metadata  map[string]any
}

// UserDeletedEvent is emitted after an account is dropped.
type UserDeletedEvent struct {
	EventID   string
	UserID    string
	DeletedAt time.Time
	Metadata  map[string]any
}

// SuspensionChangedEvent is emitted when a user's active flag flips.
type SuspensionChangedEvent struct {
	EventID   string
	UserID    string
	Suspended bool
	ChangedAt time.Time
	Metadata  map[string]any
}

// AdminChangedEvent is emitted when a user is promoted or demoted.
type AdminChangedEvent struct {
	EventID   string
	UserID    string
	IsAdmin   bool
	ChangedAt time.Time
	Metadata  map[string]any
}
