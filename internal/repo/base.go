package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds the base to tx. A nil tx keeps the current connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// SlugTaken reports whether any row of model already uses slug, ignoring the row with id exclude.
func (b Base) SlugTaken(ctx context.Context, model any, slug string, exclude uuid.UUID) (bool, error) {
	q := b.DB(ctx).Model(model).Where("slug = ?", slug)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Page counts the rows matched by q and loads one page of them ordered by order.
func Page[T any](q *gorm.DB, p pagination.Params, order string) ([]T, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	n := p.Normalize()
	rows := []T{}
	if total == 0 {
		return rows, 0, nil
	}
	if strings.TrimSpace(order) != "" {
		q = q.Order(order)
	}
	if err := q.Offset(p.Offset()).Limit(n.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// LikePattern escapes a user search term for a case-insensitive LIKE.
func LikePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(replacer.Replace(strings.TrimSpace(term))) + "%"
}
