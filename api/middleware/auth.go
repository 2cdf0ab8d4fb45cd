package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/api/responses"
	pkgAuth "github.com/sonaskin/storefront-backend/pkg/auth"
	"github.com/sonaskin/storefront-backend/pkg/auth/session"
	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// UserLookup resolves the account behind a session so disabled or deleted users lose access immediately.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth validates the session cookie or bearer token and seeds the request context with the actor.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, users UserLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cfg.CookieName)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				msg := "Phiên đăng nhập không hợp lệ"
				if errors.Is(err, pkgAuth.ErrTokenExpired) {
					msg = "Phiên đăng nhập đã hết hạn"
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			role := claims.Role
			if users != nil {
				user, err := users.FindByID(r.Context(), claims.UserID)
				if err != nil {
					err = db.MapError(err, "user not found", "load session user")
					if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
						responses.WriteError(r.Context(), logg, w, err)
						return
					}
				}
				if err != nil || user == nil || !user.IsActive {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account unavailable"))
					return
				}
				role = user.Role
			}

			ctx := WithActor(r.Context(), claims.UserID, role, claims.ID)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromRequest prefers the Authorization header and falls back to the session cookie.
func tokenFromRequest(r *http.Request, cookieName string) string {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
