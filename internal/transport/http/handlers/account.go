package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/infra/logger"
	"github.com/arklim/account-service/internal/transport/http/middleware"
	"github.com/arklim/account-service/internal/usecase"
)

const pictureFormField = "file"

var errNotAnImage = errors.New("uploaded file is not an image")

// SelfService is the slice of the account service used by the /users/me endpoints.
type SelfService interface {
	Find(ctx context.Context, id string) (*usecase.UserDTO, error)
	GetPicture(ctx context.Context, id string) (*domain.Picture, error)
	UpdateFullName(ctx context.Context, id, fullName string) (*usecase.UserDTO, error)
	UpdateEmailRequest(ctx context.Context, id, email string) (*usecase.UserDTO, error)
	UpdateEmailConfirmation(ctx context.Context, token string) (*usecase.UserDTO, error)
	UpdatePassword(ctx context.Context, id, currentPassword, newPassword string) (*usecase.UserDTO, error)
	UpdatePicture(ctx context.Context, id, path, contentType string) (*usecase.UserDTO, error)
	DeletePicture(ctx context.Context, id string) (*usecase.UserDTO, error)
	Drop(ctx context.Context, id, password string) error
}

// PictureUploadOptions bounds picture uploads. An empty Dir uses the OS temp dir.
type PictureUploadOptions struct {
	MaxSize int64
	Dir     string
}

// AccountHandler serves the caller's own account.
type AccountHandler struct {
	svc    SelfService
	upload PictureUploadOptions
	logger *zap.Logger
}

func NewAccountHandler(svc SelfService, upload PictureUploadOptions, log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{svc: svc, upload: upload, logger: log}
}

func callerID(c *gin.Context) (string, bool) {
	id, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return "", false
	}
	return id, true
}

// Me returns the caller's public profile.
func (h *AccountHandler) Me(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	dto, err := h.svc.Find(c.Request.Context(), id)
	if err != nil {
		respondAccountError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Picture streams the caller's picture.
func (h *AccountHandler) Picture(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}
	servePicture(c, h.svc.GetPicture, id)
}

func servePicture(c *gin.Context, load func(context.Context, string) (*domain.Picture, error), id string) {
	pic, err := load(c.Request.Context(), id)
	if err != nil {
		respondAccountError(c, err, "failed to load picture")
		return
	}

	if ext := strings.TrimSpace(c.Query("ext")); ext != "" {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !strings.EqualFold(ext, pic.Extension) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "picture not found"))
			return
		}
	}

	c.Header("Cache-Control", "private, max-age=60")
	c.Data(http.StatusOK, pic.MIME, pic.Data)
}

// UpdateFullName changes the caller's display name.
func (h *AccountHandler) UpdateFullName(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var req FullNameRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.FullName) == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid full name payload"))
		return
	}

	dto, err := h.svc.UpdateFullName(c.Request.Context(), id, req.FullName)
	if err != nil {
		respondAccountError(c, err, "failed to update full name")
		return
	}
	c.JSON(http.StatusOK, dto)
}

// RequestEmailUpdate stages a new email and mails its confirmation link.
func (h *AccountHandler) RequestEmailUpdate(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var req EmailUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid email payload"))
		return
	}

	dto, err := h.svc.UpdateEmailRequest(c.Request.Context(), id, req.Email)
	if err != nil {
		respondAccountError(c, err, "failed to request email update")
		return
	}
	c.JSON(http.StatusOK, dto)
}

// ConfirmEmailUpdate applies a staged email change. The token authenticates the request.
func (h *AccountHandler) ConfirmEmailUpdate(c *gin.Context) {
	var req EmailConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirmation payload"))
		return
	}

	dto, err := h.svc.UpdateEmailConfirmation(c.Request.Context(), req.Token)
	if err != nil {
		respondAccountError(c, err, "failed to confirm email update")
		return
	}
	c.JSON(http.StatusOK, dto)
}

// UpdatePassword replaces the caller's password.
func (h *AccountHandler) UpdatePassword(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var req PasswordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	dto, err := h.svc.UpdatePassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondAccountError(c, err, "failed to update password")
		return
	}
	c.JSON(http.StatusOK, dto)
}

// UploadPicture accepts a multipart image in the "file" field.
func (h *AccountHandler) UploadPicture(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	if h.upload.MaxSize > 0 {
		// multipart overhead on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.upload.MaxSize+64*1024)
	}

	header, err := c.FormFile(pictureFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse(c, "picture too large"))
			return
		}
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing picture file"))
		return
	}
	if h.upload.MaxSize > 0 && header.Size > h.upload.MaxSize {
		c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse(c, "picture too large"))
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unreadable picture file"))
		return
	}
	defer src.Close()

	path, contentType, err := h.spool(src)
	if path != "" {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.FromContext(h.logger, c.Request.Context()).Warn("failed to remove upload", zap.String("path", path), zap.Error(rmErr))
			}
		}()
	}
	if err != nil {
		if errors.Is(err, errNotAnImage) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "file must be an image"))
			return
		}
		logger.FromContext(h.logger, c.Request.Context()).Error("failed to spool upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to store picture"))
		return
	}

	dto, err := h.svc.UpdatePicture(c.Request.Context(), id, path, contentType)
	if err != nil {
		respondAccountError(c, err, "failed to update picture")
		return
	}
	c.JSON(http.StatusOK, dto)
}

// spool copies src to a temp file and sniffs its type. The caller removes path when it is non-empty.
func (h *AccountHandler) spool(src io.Reader) (path, contentType string, err error) {
	tmp, err := os.CreateTemp(h.upload.Dir, "picture-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	path = tmp.Name()

	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return path, "", fmt.Errorf("write temp file: %w", err)
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return path, "", fmt.Errorf("detect picture type: %w", err)
	}
	if !strings.HasPrefix(detected.String(), "image/") {
		return path, "", fmt.Errorf("%w: %s", errNotAnImage, detected.String())
	}
	mime, _, _ := strings.Cut(detected.String(), ";")
	return path, mime, nil
}

// DeletePicture clears the caller's picture.
func (h *AccountHandler) DeletePicture(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	dto, err := h.svc.DeletePicture(c.Request.Context(), id)
	if err != nil {
		respondAccountError(c, err, "failed to delete picture")
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Drop deletes the caller's account after re-checking the password.
func (h *AccountHandler) Drop(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var req DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid drop payload"))
		return
	}

	if err := h.svc.Drop(c.Request.Context(), id, req.Password); err != nil {
		respondAccountError(c, err, "failed to delete account")
		return
	}
	c.Status(http.StatusNoContent)
}
