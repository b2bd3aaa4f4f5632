package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// SetOrdering accepts "field" or "-field".
func (q *ListQuery) SetOrdering(ordering string) {
	ordering = strings.TrimSpace(ordering)
	if ordering == "" {
		return
	}
	q.SortDir = "asc"
	if strings.HasPrefix(ordering, "-") {
		q.SortDir = "desc"
		ordering = ordering[1:]
	}
	q.SortBy = ordering
}

// Filter returns a filter value or "".
func (q *ListQuery) Filter(key string) string {
	if q.Filters == nil {
		return ""
	}
	return q.Filters[key]
}

// applySort orders by a whitelisted column; unknown fields fall back to def.
func applySort(db *gorm.DB, query *ListQuery, allowed map[string]string, def string) *gorm.DB {
	if col, ok := allowed[query.SortBy]; ok {
		if query.SortDir == "desc" {
			col += " DESC"
		}
		return db.Order(col)
	}
	return db.Order(def)
}

// applyPage limits and offsets by page.
func applyPage(db *gorm.DB, query *ListQuery) *gorm.DB {
	if query.PerPage > 0 {
		page := query.Page
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * query.PerPage).Limit(query.PerPage)
	}
	return db
}

func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraintName == "" || pgErr.ConstraintName == constraintName)
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
func IsDuplicateKey(err error) bool {
	return isDuplicateKeyError(err, "")
}

// ErrRecordNotFound is gorm's missing-row error, re-exported for callers
// that need to produce it.
var ErrRecordNotFound = gorm.ErrRecordNotFound

// IsNotFound reports whether err is gorm's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
