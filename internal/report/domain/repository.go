package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"gorm.io/gorm"
)

// AccountActivityRow is one account's posted debit and credit totals over
// the queried window.
type AccountActivityRow struct {
	AccountID     snowflake.ID
	AccountNumber *string
	Name          string
	Type          accountdomain.AccountType
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// OpenDocRow is one outstanding invoice or bill for aging.
type OpenDocRow struct {
	PartyID        snowflake.ID
	PartyName      string
	DocumentID     snowflake.ID
	DocumentNumber string
	DueDate        date.Date
	AmountDue      decimal.Decimal
}

// UnappliedRow is the portion of a counterparty's payments not yet applied
// to any document.
type UnappliedRow struct {
	PartyID snowflake.ID
	Amount  decimal.Decimal
}

// EntryRow is a posted ledger entry joined to its account identity.
type EntryRow struct {
	EntryID         snowflake.ID
	SourceID        snowflake.ID
	TransactionType ledgerdomain.TransactionType
	TransactionDate date.Date
	AccountID       snowflake.ID
	AccountNumber   *string
	AccountName     string
	Description     string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
}

// EntryWindow bounds a journal query. Zero dates mean unbounded.
type EntryWindow struct {
	From            date.Date
	To              date.Date
	AccountID       snowflake.ID
	TransactionType ledgerdomain.TransactionType
}

type Repository interface {
	// AccountActivity aggregates posted entries per account within the
	// window, joined to the chart of accounts. Accounts without activity
	// are omitted.
	AccountActivity(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to date.Date) ([]AccountActivityRow, error)

	// OpenInvoices returns invoices with status outside draft, paid and
	// voided, joined to their customer.
	OpenInvoices(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]OpenDocRow, error)

	// OpenBills returns bills with status outside draft, paid and voided,
	// joined to their vendor.
	OpenBills(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]OpenDocRow, error)

	// UnappliedPayments sums, per customer, non-voided payment amounts
	// minus their applications. Fully applied customers are omitted.
	UnappliedPayments(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]UnappliedRow, error)

	// UnappliedVendorPayments is the payable-side mirror of
	// UnappliedPayments.
	UnappliedVendorPayments(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]UnappliedRow, error)

	// Entries lists posted ledger entries in the window ordered by
	// transaction date, source and entry id.
	Entries(ctx context.Context, db *gorm.DB, orgID snowflake.ID, window EntryWindow) ([]EntryRow, error)
}
