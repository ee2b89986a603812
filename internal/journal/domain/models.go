// Package domain contains persistence models for manual journal entries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// JournalEntry is a manual posting document. Its lines post to the ledger
// verbatim when the entry is created.
type JournalEntry struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_journal_entries_org_number,priority:1" json:"org_id"`
	EntryNumber string       `gorm:"type:text;not null;uniqueIndex:ux_journal_entries_org_number,priority:2" json:"entry_number"`
	EntryDate   date.Date    `gorm:"type:date;not null" json:"entry_date"`
	Memo        string       `gorm:"type:text;not null;default:''" json:"memo"`
	IsVoided    bool         `gorm:"not null;default:false" json:"is_voided"`
	VoidedAt    *time.Time   `json:"voided_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (JournalEntry) TableName() string { return "journal_entries" }

// JournalEntryLine is one leg of a manual posting; exactly one of Debit and
// Credit is positive.
type JournalEntryLine struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID    `gorm:"not null;index" json:"org_id"`
	JournalEntryID snowflake.ID    `gorm:"not null;index" json:"journal_entry_id"`
	AccountID      snowflake.ID    `gorm:"not null;index" json:"account_id"`
	Description    string          `gorm:"type:text;not null;default:''" json:"description"`
	Debit          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"debit"`
	Credit         decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"credit"`
	Position       int             `gorm:"not null;default:0" json:"position"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (JournalEntryLine) TableName() string { return "journal_entry_lines" }
