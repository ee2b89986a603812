package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows bill listings. A zero field is ignored.
type ListFilter struct {
	OrgID      snowflake.ID
	VendorID   snowflake.ID
	Statuses   []BillStatus
	IssuedFrom date.Date
	IssuedTo   date.Date
	Search     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *Bill, lines []BillLineItem) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Bill, error)

	// FindByIDForUpdate locks the header row until the surrounding
	// transaction ends. Derived-field recomputation goes through this so
	// concurrent applications against one bill serialize.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Bill, error)

	LinesFor(ctx context.Context, db *gorm.DB, orgID, billID snowflake.ID) ([]BillLineItem, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Bill, int64, error)
	Update(ctx context.Context, db *gorm.DB, bill *Bill) error

	// ReplaceLines deletes the bill's lines and inserts the given set.
	ReplaceLines(ctx context.Context, db *gorm.DB, orgID, billID snowflake.ID, lines []BillLineItem) error

	// Delete removes the header and its lines.
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	// ApplicationTotal sums applications from non-voided vendor payments
	// that reference the bill.
	ApplicationTotal(ctx context.Context, db *gorm.DB, orgID, billID snowflake.ID) (decimal.Decimal, error)
}
