package controllers

import (
	"net/http"

	"github.com/sonaskin/storefront-backend/api/middleware"
	"github.com/sonaskin/storefront-backend/api/responses"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
)

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

// actorRef builds the outbox actor for the authenticated admin, if any.
func actorRef(r *http.Request) *outbox.ActorRef {
	id, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return nil
	}
	return &outbox.ActorRef{
		UserID:    id,
		Role:      role,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}
}
