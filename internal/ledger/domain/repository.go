package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

// AccountSum aggregates posted activity for one account.
type AccountSum struct {
	AccountID snowflake.ID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// SumFilter bounds an aggregate query. Nil date bounds mean unbounded.
type SumFilter struct {
	From     *date.Date
	To       *date.Date
	Accounts []snowflake.ID
}

// EntryFilter narrows entry listings.
type EntryFilter struct {
	From            *date.Date
	To              *date.Date
	TransactionType *TransactionType
	AccountID       *snowflake.ID
}

type Repository interface {
	InsertEntries(ctx context.Context, db *gorm.DB, entries []LedgerEntry) error
	FindBySource(ctx context.Context, db *gorm.DB, orgID snowflake.ID, txType TransactionType, sourceID snowflake.ID) ([]LedgerEntry, error)
	ListByAccount(ctx context.Context, db *gorm.DB, orgID, accountID snowflake.ID, filter EntryFilter, page pagination.Pagination) ([]LedgerEntry, int64, error)
	ListRange(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter EntryFilter) ([]LedgerEntry, error)
	SumByAccount(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter SumFilter) ([]AccountSum, error)
	HasEntriesForAccount(ctx context.Context, db *gorm.DB, orgID, accountID snowflake.ID) (bool, error)
	CountAccountsInOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) (int64, error)
}
