package auth

import (
	"github.com/sonaskin/storefront-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session token and the signed-in user.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expiresAt"`
	User      *users.UserDTO `json:"user"`
}
