package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a session token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// JTI doubles as the server-side session key. Generated when empty.
	JTI string
}

// AccessTokenClaims is the signed body of an admin session token.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
