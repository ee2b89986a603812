// Package domain contains the per-tenant document numbering types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Class names a numbered document family. Each (org, class) pair owns one
// sequence row.
type Class string

const (
	ClassInvoice       Class = "invoice"
	ClassPayment       Class = "payment"
	ClassBill          Class = "bill"
	ClassVendorPayment Class = "vendor_payment"
	ClassExpense       Class = "expense"
	ClassJournalEntry  Class = "journal_entry"
)

func (c Class) Valid() bool {
	_, ok := classDefaults[c]
	return ok
}

// ClassDefault carries the formatting defaults a sequence row is created with.
type ClassDefault struct {
	Prefix  string
	Padding int
}

var classDefaults = map[Class]ClassDefault{
	ClassInvoice:       {Prefix: "INV-", Padding: 4},
	ClassPayment:       {Prefix: "PMT-", Padding: 4},
	ClassBill:          {Prefix: "BILL-", Padding: 4},
	ClassVendorPayment: {Prefix: "VP-", Padding: 4},
	ClassExpense:       {Prefix: "EXP-", Padding: 4},
	ClassJournalEntry:  {Prefix: "JE-", Padding: 4},
}

// Defaults returns the creation defaults for a class.
func Defaults(c Class) ClassDefault {
	return classDefaults[c]
}

// AllClasses lists every document class in seeding order.
func AllClasses() []Class {
	return []Class{
		ClassInvoice,
		ClassPayment,
		ClassBill,
		ClassVendorPayment,
		ClassExpense,
		ClassJournalEntry,
	}
}

// DocumentSequence is the counter row behind document numbers like INV-0001.
type DocumentSequence struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;uniqueIndex:ux_document_sequences_org_class,priority:1" json:"org_id"`
	DocumentClass Class        `gorm:"type:text;not null;uniqueIndex:ux_document_sequences_org_class,priority:2" json:"document_class"`
	Prefix        string       `gorm:"type:text;not null;default:''" json:"prefix"`
	Padding       int          `gorm:"not null;default:4" json:"padding"`
	NextNumber    int64        `gorm:"not null;default:1" json:"next_number"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DocumentSequence) TableName() string { return "document_sequences" }
