package option

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func ApplyOperator(conds ...Condition) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		for _, c := range conds {
			if c.Operator == IN {
				db = db.Where(fmt.Sprintf("%s IN ?", c.Field), c.Value)
				continue
			}
			db = db.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
		}
		return db
	})
}

type QuerySortBy struct {
	Field   string
	OrderBy string
}

// WithSortBy orders by Field (default created_at) in OrderBy direction
// (default ASC).
func WithSortBy(sorts ...QuerySortBy) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		for _, s := range sorts {
			field := s.Field
			if field == "" {
				field = "created_at"
			}
			db = db.Order(clause.OrderByColumn{
				Column: clause.Column{Name: field},
				Desc:   s.OrderBy == "DESC" || s.OrderBy == "desc",
			})
		}
		return db
	})
}

func WithLimit(limit int) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOffset(offset int) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Offset(offset)
	})
}

func WithLockingUpdate() QueryOption {
	return QueryOptionFunc(LockingUpdate)
}

// LockingUpdate adds SELECT ... FOR UPDATE. Dialects without row locks
// (sqlite) drop the clause.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
