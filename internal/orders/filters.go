package orders

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/internal/repo"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/epoch"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
)

// ListFilters narrows order lists and exports. Zero values mean no filter.
type ListFilters struct {
	Status        enums.OrderStatus
	PaymentMethod enums.PaymentMethod
	Search        string
	// From and To are inclusive unix-second bounds on created_at.
	From int64
	To   int64
}

func (f ListFilters) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}
	if f.From > 0 {
		q = q.Where("created_at >= ?", f.From)
	}
	if f.To > 0 {
		q = q.Where("created_at <= ?", f.To)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := repo.LikePattern(term)
		q = q.Where(`(LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(customer_name) LIKE ? ESCAPE '\' OR customer_phone LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern)
	}
	return q
}

// FilterInput is the raw query form shared by the list and export endpoints.
type FilterInput struct {
	Status        string
	PaymentMethod string
	Search        string
	StartDate     string
	EndDate       string
}

// ParseFilters validates raw query values. Date-only bounds are read in loc; an end date
// without a time expands to the last second of that day. status=all disables the status filter.
func ParseFilters(in FilterInput, loc *time.Location) (ListFilters, error) {
	if loc == nil {
		loc = time.UTC
	}
	var out ListFilters
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status != "" && status != "all" {
		parsed, err := enums.ParseOrderStatus(status)
		if err != nil {
			return out, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").WithDetails(map[string]string{"status": err.Error()})
		}
		out.Status = parsed
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method != "" && method != "all" {
		parsed, err := enums.ParsePaymentMethod(method)
		if err != nil {
			return out, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method filter").WithDetails(map[string]string{"paymentMethod": err.Error()})
		}
		out.PaymentMethod = parsed
	}
	out.Search = strings.TrimSpace(in.Search)

	from, err := dateBound(in.StartDate, loc, false)
	if err != nil {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "invalid startDate").WithDetails(map[string]string{"startDate": err.Error()})
	}
	to, err := dateBound(in.EndDate, loc, true)
	if err != nil {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "invalid endDate").WithDetails(map[string]string{"endDate": err.Error()})
	}
	if from > 0 && to > 0 && from > to {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "startDate must not be after endDate")
	}
	out.From, out.To = from, to
	return out, nil
}

func dateBound(raw string, loc *time.Location, endOfDay bool) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if day, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		if endOfDay {
			return day.AddDate(0, 0, 1).Unix() - 1, nil
		}
		return day.Unix(), nil
	}
	secs, err := epoch.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("expected YYYY-MM-DD, RFC3339 or epoch: %w", err)
	}
	return secs, nil
}
