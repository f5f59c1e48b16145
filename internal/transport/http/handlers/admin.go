package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/usecase"
)

// AdminService is the slice of the account service used by /admin/users.
type AdminService interface {
	FindAsAdmin(ctx context.Context, id string) (*usecase.UserAdminDTO, error)
	GetPicture(ctx context.Context, id string) (*domain.Picture, error)
	GetCount(ctx context.Context) (int64, error)
	List(ctx context.Context, opts usecase.ListOptions) (*usecase.UserAdminList, error)
	Suspend(ctx context.Context, id string, suspend bool) error
	MakeAdmin(ctx context.Context, id string, makeAdmin bool) error
}

// AdminHandler serves user management endpoints. Callers are checked by RequireAdmin.
type AdminHandler struct {
	svc AdminService
}

func NewAdminHandler(svc AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func targetID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing user id"))
		return "", false
	}
	return id, true
}

// List pages through users, optionally filtered by a search query.
func (h *AdminHandler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid list query"))
		return
	}

	list, err := h.svc.List(c.Request.Context(), usecase.ListOptions{
		Query: q.Query,
		Page:  q.Page,
		Size:  q.Size,
	})
	if err != nil {
		respondAccountError(c, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) Count(c *gin.Context) {
	count, err := h.svc.GetCount(c.Request.Context())
	if err != nil {
		respondAccountError(c, err, "failed to count users")
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: count})
}

func (h *AdminHandler) Get(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}

	dto, err := h.svc.FindAsAdmin(c.Request.Context(), id)
	if err != nil {
		respondAccountError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) Picture(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	servePicture(c, h.svc.GetPicture, id)
}

func (h *AdminHandler) Suspend(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}

	var req SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid suspend payload"))
		return
	}

	if err := h.svc.Suspend(c.Request.Context(), id, *req.Suspend); err != nil {
		respondAccountError(c, err, "failed to change suspension")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) MakeAdmin(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}

	var req MakeAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid admin payload"))
		return
	}

	if err := h.svc.MakeAdmin(c.Request.Context(), id, *req.MakeAdmin); err != nil {
		respondAccountError(c, err, "failed to change admin flag")
		return
	}
	c.Status(http.StatusNoContent)
}
