package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows journal entry listings. A zero field is ignored.
type ListFilter struct {
	From   date.Date
	To     date.Date
	Search string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *JournalEntry, lines []JournalEntryLine) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*JournalEntry, error)
	LinesFor(ctx context.Context, db *gorm.DB, orgID, entryID snowflake.ID) ([]JournalEntryLine, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*JournalEntry, int64, error)
	Update(ctx context.Context, db *gorm.DB, entry *JournalEntry) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
}
