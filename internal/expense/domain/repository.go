package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows expense listings. A zero field is ignored.
type ListFilter struct {
	OrgID     snowflake.ID
	AccountID snowflake.ID
	VendorID  snowflake.ID
	IsVoided  *bool
	From      date.Date
	To        date.Date
	Search    string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, expense *Expense) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Expense, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Expense, int64, error)
	Update(ctx context.Context, db *gorm.DB, expense *Expense) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
}
