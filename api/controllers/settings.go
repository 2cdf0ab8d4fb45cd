package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sonaskin/storefront-backend/api/responses"
	"github.com/sonaskin/storefront-backend/api/validators"
	"github.com/sonaskin/storefront-backend/internal/settings"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// settingKey reads the key path parameter. chi matches on RawPath when the
// request carries one, so the segment is still escaped only in that case.
func settingKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(key)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid setting key")
		}
		key = decoded
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	return key, nil
}

// PublicListSettings returns public settings, optionally narrowed by ?group=.
func PublicListSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settings")
			return
		}
		rows, err := svc.ListPublic(r.Context(), strings.TrimSpace(r.URL.Query().Get("group")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func PublicContactInfo(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settings")
			return
		}
		info, err := svc.Contact(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

func AdminListSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settings")
			return
		}
		rows, err := svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("group")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AdminGetSetting(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settings")
			return
		}
		key, err := settingKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setting, err := svc.Get(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, setting)
	}
}

func AdminCreateSetting(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settings")
			return
		}
		var body settings.CreateSettingInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setting, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, setting, "Đã tạo cài đặt")
	}
}

func AdminUpdateSetting(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settings")
			return
		}
		key, err := settingKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body settings.UpdateSettingInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setting, err := svc.Update(r.Context(), key, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, setting, "Đã cập nhật cài đặt")
	}
}

func AdminDeleteSetting(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settings")
			return
		}
		key, err := settingKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), key); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, nil, "Đã xoá cài đặt")
	}
}

// AdminRefreshContact rebuilds the cached contact snapshot after edits.
func AdminRefreshContact(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settings")
			return
		}
		info, err := svc.RefreshContact(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}
