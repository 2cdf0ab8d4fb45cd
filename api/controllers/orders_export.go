package controllers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/sonaskin/storefront-backend/api/responses"
	"github.com/sonaskin/storefront-backend/internal/orders"
	"github.com/sonaskin/storefront-backend/internal/orders/report"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// locationProvider resolves the reporting timezone; config.AppConfig satisfies it.
type locationProvider interface {
	Location() *time.Location
}

// AdminExportOrders streams an aggregated order report as an attachment.
func AdminExportOrders(svc orders.Service, loc locationProvider, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "order")
			return
		}

		q := r.URL.Query()
		kind, err := report.ParseKind(q.Get("type"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		format, err := report.ParseFormat(q.Get("format"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		location := loc.Location()
		filters, err := orders.ParseFilters(orderFilterInput(r), location)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ExportOrders(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		table, err := report.Build(kind, rows, report.Filters{
			From:     filters.From,
			To:       filters.To,
			Status:   filters.Status,
			Location: location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// render fully before writing headers so a failure still yields a JSON error
		var buf bytes.Buffer
		if err := report.Render(&buf, format, table); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render export"))
			return
		}

		name := report.FileName(kind, format, now().In(location))
		if _, err := responses.WriteAttachment(w, format.ContentType(), name, buf.Bytes()); err != nil && logg != nil {
			logg.Error(r.Context(), "write export body", err)
		}
	}
}
