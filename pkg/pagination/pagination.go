package pagination

import "math"

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page/limit inputs from controllers or services. Pages are 1-based.
type Params struct {
	Page  int
	Limit int
}

// Meta describes the page that was returned alongside the total row count.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize clamps page and limit into their valid ranges.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: NormalizeLimit(p.Limit)}
}

// Offset is the number of rows to skip for the page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NewMeta builds the response metadata for a page and total count.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(n.Limit)))
	}
	return Meta{Page: n.Page, Limit: n.Limit, Total: total, TotalPages: pages}
}

// Slice returns the page window of items already held in memory.
func Slice[T any](items []T, p Params) []T {
	offset := p.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + p.Normalize().Limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
