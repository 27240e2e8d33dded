package model

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ListQuery carries the search, sort and pagination inputs of list endpoints.
type ListQuery struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// Normalize clamps paging values and lowercases the sort order.
func (q *ListQuery) Normalize() {
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	if strings.ToLower(q.SortOrder) == "desc" {
		q.SortOrder = "desc"
	} else {
		q.SortOrder = "asc"
	}
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// TransactionQuery adds ledger specific filters to ListQuery. Zero values
// mean no filter.
type TransactionQuery struct {
	ListQuery
	ProductID uuid.UUID
	Kind      TransactionKind
}

type Pagination struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
}

func NewPagination(total int64, q ListQuery) Pagination {
	last := int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	if last < 1 {
		last = 1
	}
	return Pagination{
		Total:       total,
		PerPage:     q.PerPage,
		CurrentPage: q.Page,
		LastPage:    last,
	}
}

// Page is a generic paginated result.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
