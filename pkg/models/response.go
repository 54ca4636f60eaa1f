package models

import (
	"math"
	"time"
)

// ✅ GENERIC API RESPONSE
type APIResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ✅ PAGINATION (page/limit windows over a stable ordering)
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the index of the first row of the page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// MaxOffset bounds Offset so it never overflows; pages past it are empty
const MaxOffset = math.MaxInt32

// ClampPagination normalizes page and limit: page < 1 becomes 1, limit < 1
// becomes def, limit > max becomes max. Page is capped so that Offset stays
// within MaxOffset.
func ClampPagination(page, limit, def, max int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if lastPage := MaxOffset/limit + 1; page > lastPage {
		page = lastPage
	}
	return Pagination{Page: page, Limit: limit}
}

// ClampLimit applies the same rule to cursor-based listings
func ClampLimit(limit, def, max int) int {
	return ClampPagination(1, limit, def, max).Limit
}
