package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/account-service/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// accountErrorCases covers every sentinel the account service returns.
var accountErrorCases = []ErrorCase{
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
	{Err: usecase.ErrPictureNotFound, Status: http.StatusNotFound, Message: "picture not found"},
	{Err: usecase.ErrUsernameUnavailable, Status: http.StatusConflict, Message: "username unavailable"},
	{Err: usecase.ErrInvalidPassword, Status: http.StatusUnauthorized, Message: "invalid password"},
	{Err: usecase.ErrPasswordValidationFailed, Status: http.StatusUnauthorized, Message: "password validation failed"},
	{Err: usecase.ErrNewPasswordInvalid, Status: http.StatusBadRequest, Message: "new password is invalid"},
	{Err: usecase.ErrInvalidListOptions, Status: http.StatusBadRequest, Message: "invalid page or size"},
	{Err: usecase.ErrCannotSuspendSoleAdmin, Status: http.StatusConflict, Message: "cannot suspend sole admin"},
	{Err: usecase.ErrCannotDemoteSoleAdmin, Status: http.StatusConflict, Message: "cannot demote sole admin"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	_ = c.Error(err)

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func respondAccountError(c *gin.Context, err error, fallbackMessage string) {
	RespondWithMappedError(c, err, accountErrorCases, http.StatusInternalServerError, fallbackMessage)
}
