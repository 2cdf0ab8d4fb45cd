package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxSessionID contextKey = "session_id"
	ctxCartToken contextKey = "cart_token"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

// SessionIDFromContext returns the jti of the token that authenticated the request.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// CartTokenFromContext returns the cart token resolved by CartToken.
func CartTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCartToken).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the authenticated user id and role. ok is false for anonymous requests.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.UserRole, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, RoleFromContext(ctx), true
}

// WithActor injects the authenticated user into the context.
func WithActor(ctx context.Context, userID uuid.UUID, role enums.UserRole, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID.String())
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxSessionID, sessionID)
}

// WithCartToken injects the cart token into the context.
func WithCartToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartToken, token)
}
