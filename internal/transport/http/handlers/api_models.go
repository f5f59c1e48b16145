package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// CountResponse wraps the total number of users.
type CountResponse struct {
	Count int64 `json:"count"`
}

type FullNameRequest struct {
	FullName string `json:"fullName" binding:"required,max=255"`
}

type EmailUpdateRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

type EmailConfirmationRequest struct {
	Token string `json:"token" binding:"required"`
}

type PasswordUpdateRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type DropRequest struct {
	Password string `json:"password" binding:"required"`
}

// SuspendRequest uses a pointer so an explicit false is distinguishable from a missing field.
type SuspendRequest struct {
	Suspend *bool `json:"suspend" binding:"required"`
}

type MakeAdminRequest struct {
	MakeAdmin *bool `json:"makeAdmin" binding:"required"`
}

// ListQuery binds the admin list query string.
type ListQuery struct {
	Query string `form:"query"`
	Page  int    `form:"page"`
	Size  int    `form:"size"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports the state of each dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
