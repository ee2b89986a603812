package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows invoice listings. A zero field is ignored.
type ListFilter struct {
	OrgID      snowflake.ID
	CustomerID snowflake.ID
	Statuses   []InvoiceStatus
	DueBefore  date.Date
	IssuedFrom date.Date
	IssuedTo   date.Date
	Search     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice, lines []InvoiceLineItem) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)

	// FindByIDForUpdate locks the header row until the surrounding
	// transaction ends. Derived-field recomputation goes through this so
	// concurrent applications against one invoice serialize.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)

	LinesFor(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]InvoiceLineItem, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Invoice, int64, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error

	// ReplaceLines deletes the invoice's lines and inserts the given set.
	ReplaceLines(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, lines []InvoiceLineItem) error

	// Delete removes the header and its lines.
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	// ApplicationTotal sums payment applications from non-voided payments
	// that reference the invoice.
	ApplicationTotal(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) (decimal.Decimal, error)
}
