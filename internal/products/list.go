package products

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/internal/repo"
)

// Sort orders product listings.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortName      Sort = "name"
)

func (s Sort) orderBy() string {
	switch s {
	case SortPriceAsc:
		return "price ASC, id ASC"
	case SortPriceDesc:
		return "price DESC, id ASC"
	case SortName:
		return "name ASC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

// ParseSort maps a query value to a Sort, defaulting to newest first.
func ParseSort(raw string) Sort {
	switch s := Sort(strings.ToLower(strings.TrimSpace(raw))); s {
	case SortPriceAsc, SortPriceDesc, SortName:
		return s
	default:
		return SortNewest
	}
}

// ListFilters describe the supported filter knobs for product listings.
type ListFilters struct {
	CategoryID uuid.UUID
	Search     string
	Need       string
	Featured   *bool
	ActiveOnly bool
	MinPrice   *int64
	MaxPrice   *int64
	Sort       Sort
}

func (f ListFilters) apply(q *gorm.DB) *gorm.DB {
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.CategoryID != uuid.Nil {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := repo.LikePattern(term)
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(slug) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if need := strings.TrimSpace(f.Need); need != "" {
		// needs is a JSON array column; match the quoted element text.
		q = q.Where(`LOWER(CAST(needs AS TEXT)) LIKE ? ESCAPE '\'`, repo.LikePattern(`"`+need+`"`))
	}
	return q
}
