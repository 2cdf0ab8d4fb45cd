package controllers

import (
	"net/http"
	"time"

	"github.com/sonaskin/storefront-backend/api/middleware"
	"github.com/sonaskin/storefront-backend/api/responses"
	"github.com/sonaskin/storefront-backend/api/validators"
	"github.com/sonaskin/storefront-backend/internal/auth"
	"github.com/sonaskin/storefront-backend/pkg/config"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// AuthLogin verifies credentials and hands the session token back as an HttpOnly cookie and in the body.
func AuthLogin(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, sessionCookie(cfg, result.Token, int(cfg.SessionTTL()/time.Second)))
		responses.WriteSuccessMessage(w, http.StatusOK, result, "Đăng nhập thành công")
	}
}

// AuthLogout revokes the current session and clears the cookie.
func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.SetCookie(w, sessionCookie(cfg, "", -1))
		responses.WriteSuccessMessage(w, http.StatusOK, nil, "Đã đăng xuất")
	}
}

// AuthMe returns the signed-in account.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		userID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func sessionCookie(cfg config.JWTConfig, value string, maxAge int) *http.Cookie {
	name := cfg.CookieName
	if name == "" {
		name = "admin_session"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
