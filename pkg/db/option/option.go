package option

import (
	"fmt"
	"regexp"

	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

// Operator names a comparison applied to a single column.
type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition is a single column comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ApplyOperator adds a WHERE clause for the condition. Fields that are not
// plain identifiers are ignored rather than interpolated.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if !identPattern.MatchString(cond.Field) {
			return db
		}
		switch cond.Operator {
		case EQ, NEQ, GT, GTE, LT, LTE:
			return db.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
		default:
			return db
		}
	})
}

// QuerySortBy selects the sort column against an allowlist.
type QuerySortBy struct {
	Field     string
	Direction string
	Allow     map[string]bool
}

// WithSortBy orders the query by the requested column when allowed, falling
// back to insertion order (created_at desc, id desc).
func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		direction := "desc"
		if sort.Direction == "asc" {
			direction = "asc"
		}
		if sort.Field != "" && sort.Allow[sort.Field] && identPattern.MatchString(sort.Field) {
			return db.Order(fmt.Sprintf("%s %s, id desc", sort.Field, direction))
		}
		return db.Order("created_at desc, id desc")
	})
}

// ApplyPagination applies normalized limit/offset bounds.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		page = page.Normalize()
		return db.Limit(page.Limit).Offset(page.Offset)
	})
}
