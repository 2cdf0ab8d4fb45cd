package users

import (
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
)

// Actor is the authenticated back-office user performing a request.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"isActive"`
	LastLoginAt *int64         `json:"lastLoginAt,omitempty"`
	CreatedAt   int64          `json:"createdAt"`
	UpdatedAt   int64          `json:"updatedAt"`
}

// ListResult is one page of users.
type ListResult struct {
	Users      []UserDTO `json:"users"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"totalPages"`
}

// CreateUserInput is the body of POST /api/admin/users.
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin editor"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// UpdateUserInput applies only the provided fields.
type UpdateUserInput struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin editor"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// FromModel converts a user row into its API shape.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	var lastLogin *int64
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		lastLogin = &v
	}
	return &UserDTO{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: lastLogin,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
