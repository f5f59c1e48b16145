package usecase

import (
	"time"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/infra/picture"
)

type PictureDTO struct {
	Extension string `json:"extension"`
}

// UserDTO is the public projection of a user. It never carries secrets or flags.
type UserDTO struct {
	ID           string      `json:"id"`
	FullName     string      `json:"fullName"`
	Picture      *PictureDTO `json:"picture,omitempty"`
	Email        string      `json:"email"`
	Username     string      `json:"username"`
	PendingEmail *string     `json:"pendingEmail,omitempty"`
}

// UserAdminDTO is the projection served to admins. Secret fields stay empty.
type UserAdminDTO struct {
	ID                     string      `json:"id"`
	FullName               string      `json:"fullName"`
	Username               string      `json:"username"`
	Email                  string      `json:"email"`
	PasswordHash           *string     `json:"passwordHash,omitempty"`
	RefreshTokenValue      *string     `json:"refreshTokenValue,omitempty"`
	RefreshTokenExpiry     *string     `json:"refreshTokenExpiry,omitempty"`
	ResetPasswordToken     *string     `json:"resetPasswordToken,omitempty"`
	EmailConfirmationToken *string     `json:"emailConfirmationToken,omitempty"`
	IsEmailConfirmed       bool        `json:"isEmailConfirmed"`
	IsAdmin                bool        `json:"isAdmin"`
	IsActive               bool        `json:"isActive"`
	EmailUpdateToken       *string     `json:"emailUpdateToken,omitempty"`
	EmailUpdateValue       *string     `json:"emailUpdateValue,omitempty"`
	Picture                *PictureDTO `json:"picture,omitempty"`
	CreateTime             string      `json:"createTime"`
	UpdateTime             *string     `json:"updateTime,omitempty"`
}

type UserAdminList struct {
	Data          []UserAdminDTO `json:"data"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int64          `json:"totalPages"`
}

func pictureDTO(value *string) *PictureDTO {
	if value == nil {
		return nil
	}
	ext, err := picture.Extension(*value)
	if err != nil {
		return nil
	}
	return &PictureDTO{Extension: ext}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// MapEntity projects user for its owner.
func MapEntity(user domain.User) UserDTO {
	dto := UserDTO{
		ID:       user.ID,
		FullName: user.FullName,
		Email:    user.Email,
		Username: user.Username,
		Picture:  pictureDTO(user.Picture),
	}
	if user.HasPendingEmail() {
		pending := *user.EmailUpdateValue
		dto.PendingEmail = &pending
	}
	return dto
}

// MapAdminEntity projects user for admin listings.
func MapAdminEntity(user domain.User) UserAdminDTO {
	dto := UserAdminDTO{
		ID:               user.ID,
		FullName:         user.FullName,
		Username:         user.Username,
		Email:            user.Email,
		IsEmailConfirmed: user.IsEmailConfirmed,
		IsAdmin:          user.IsAdmin,
		IsActive:         user.IsActive,
		Picture:          pictureDTO(user.Picture),
		CreateTime:       formatTime(user.CreateTime),
	}
	if user.UpdateTime != nil {
		updated := formatTime(*user.UpdateTime)
		dto.UpdateTime = &updated
	}
	return dto
}

// ToDocument builds the search index projection of user.
func ToDocument(user domain.User) domain.UserDocument {
	doc := domain.UserDocument{
		ID:               user.ID,
		Username:         user.Username,
		Email:            user.Email,
		FullName:         user.FullName,
		IsEmailConfirmed: user.IsEmailConfirmed,
		CreateTime:       user.CreateTime,
		UpdateTime:       user.UpdateTime,
	}
	if p := pictureDTO(user.Picture); p != nil {
		doc.Picture = &domain.PictureSummary{Extension: p.Extension}
	}
	return doc
}
