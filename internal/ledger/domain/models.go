// Package domain contains the double-entry ledger types. Ledger entries are
// append-only: corrections happen through reversal postings, never updates.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// TransactionType identifies the document class a posting originated from.
type TransactionType string

const (
	TransactionTypeInvoice      TransactionType = "invoice"
	TransactionTypePayment      TransactionType = "payment"
	TransactionTypeExpense      TransactionType = "expense"
	TransactionTypeBill         TransactionType = "bill"
	TransactionTypeBillPayment  TransactionType = "bill_payment"
	TransactionTypeJournalEntry TransactionType = "journal_entry"
	TransactionTypeTransfer     TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeInvoice,
		TransactionTypePayment,
		TransactionTypeExpense,
		TransactionTypeBill,
		TransactionTypeBillPayment,
		TransactionTypeJournalEntry,
		TransactionTypeTransfer:
		return true
	default:
		return false
	}
}

// LedgerEntry is one side of a double-entry posting. Exactly one of Debit
// and Credit is positive; the other is zero.
type LedgerEntry struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID    `gorm:"not null;index:ix_ledger_entries_org_account_date,priority:1" json:"org_id"`
	AccountID       snowflake.ID    `gorm:"not null;index:ix_ledger_entries_org_account_date,priority:2" json:"account_id"`
	TransactionDate date.Date       `gorm:"type:date;not null;index:ix_ledger_entries_org_account_date,priority:3" json:"transaction_date"`
	TransactionType TransactionType `gorm:"type:text;not null" json:"transaction_type"`
	SourceID        snowflake.ID    `gorm:"not null;index" json:"source_id"`
	SourceLineID    *snowflake.ID   `json:"source_line_id,omitempty"`
	Description     string          `gorm:"type:text;not null;default:''" json:"description"`
	Debit           decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"debit"`
	Credit          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"credit"`
	CustomerID      *snowflake.ID   `gorm:"index" json:"customer_id,omitempty"`
	VendorID        *snowflake.ID   `gorm:"index" json:"vendor_id,omitempty"`
	IsPosted        bool            `gorm:"not null;default:true" json:"is_posted"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }
