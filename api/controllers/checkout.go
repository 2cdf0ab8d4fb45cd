package controllers

import (
	"net/http"

	"github.com/sonaskin/storefront-backend/api/middleware"
	"github.com/sonaskin/storefront-backend/api/responses"
	"github.com/sonaskin/storefront-backend/api/validators"
	"github.com/sonaskin/storefront-backend/internal/checkout"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// Checkout turns the selected cart lines into an order and removes them from the cart.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "checkout")
			return
		}

		var body checkout.Input
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), middleware.CartTokenFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, result, "Đặt hàng thành công")
	}
}
