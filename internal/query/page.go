package query

import (
	"math"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside int.
	MaxPage = math.MaxInt / MaxLimit
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page and limit into the accepted range.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}

	if page > MaxPage {
		page = MaxPage
	}

	if limit < 1 {
		limit = DefaultLimit
	}

	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Scope applies LIMIT/OFFSET to a gorm query.
func (p Page) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.Limit)
}

// Window returns the bounds of the page inside a slice of length n.
func (p Page) Window(n int) (int, int) {
	start := p.Offset()
	if start < 0 || start > n {
		start = n
	}

	end := start + p.Limit
	if end < start || end > n {
		end = n
	}

	return start, end
}

type Pagination struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

func (p Page) Pagination(total int64) Pagination {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))

	return Pagination{
		Total:       total,
		Page:        p.Page,
		Limit:       p.Limit,
		TotalPages:  totalPages,
		HasNext:     p.Page < totalPages,
		HasPrevious: p.Page > 1,
	}
}

// Result is one page of items plus the unpaginated total.
type Result[T any] struct {
	Items []T
	Total int64
	Page  Page
}

// Paginate slices an in-memory list, used where rows are grouped after
// loading.
func Paginate[T any](items []T, page Page) Result[T] {
	start, end := page.Window(len(items))

	return Result[T]{
		Items: items[start:end],
		Total: int64(len(items)),
		Page:  page,
	}
}
