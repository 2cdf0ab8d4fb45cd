package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sonaskin/storefront-backend/api/responses"
	"github.com/sonaskin/storefront-backend/pkg/locations"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// LocationDirectory is the upstream administrative-division lookup.
type LocationDirectory interface {
	Provinces(ctx context.Context) ([]locations.Division, error)
	Districts(ctx context.Context, provinceCode string) ([]locations.Division, error)
	Wards(ctx context.Context, districtCode string) ([]locations.Division, error)
}

func ListProvinces(dir LocationDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dir == nil {
			serviceUnavailable(w, r, logg, "locations")
			return
		}
		rows, err := dir.Provinces(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ListDistricts(dir LocationDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dir == nil {
			serviceUnavailable(w, r, logg, "locations")
			return
		}
		rows, err := dir.Districts(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ListWards(dir LocationDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dir == nil {
			serviceUnavailable(w, r, logg, "locations")
			return
		}
		rows, err := dir.Wards(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
