package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sonaskin/storefront-backend/api/middleware"
	"github.com/sonaskin/storefront-backend/api/responses"
	"github.com/sonaskin/storefront-backend/api/validators"
	"github.com/sonaskin/storefront-backend/internal/cart"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

func cartToken(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	token := middleware.CartTokenFromContext(r.Context())
	if token == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart token is required"))
		return "", false
	}
	return token, true
}

func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		token, ok := cartToken(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.Get(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func AddCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		token, ok := cartToken(w, r, logg)
		if !ok {
			return
		}

		var body cart.AddItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.AddItem(r.Context(), token, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, view, "Đã thêm vào giỏ hàng")
	}
}

// UpdateCartItem sets a line quantity; zero removes the line.
func UpdateCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		token, ok := cartToken(w, r, logg)
		if !ok {
			return
		}

		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateQuantity(r.Context(), token, strings.TrimSpace(chi.URLParam(r, "id")), *body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func RemoveCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		token, ok := cartToken(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.RemoveItem(r.Context(), token, strings.TrimSpace(chi.URLParam(r, "id")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ClearCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		token, ok := cartToken(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.Clear(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
