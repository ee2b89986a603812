// Package domain contains persistence models for direct expenses.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// Expense is a disbursement recorded outside the bill workflow. It posts
// to the ledger if and only if a payment account is set; without one it is
// a bookkeeping placeholder with no ledger effect.
type Expense struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID    `gorm:"not null;uniqueIndex:ux_expenses_org_number,priority:1" json:"org_id"`
	ExpenseNumber    string          `gorm:"type:text;not null;uniqueIndex:ux_expenses_org_number,priority:2" json:"expense_number"`
	AccountID        snowflake.ID    `gorm:"not null;index:ix_expenses_org_account" json:"account_id"`
	PaymentAccountID *snowflake.ID   `json:"payment_account_id,omitempty"`
	VendorID         *snowflake.ID   `json:"vendor_id,omitempty"`
	ExpenseDate      date.Date       `gorm:"type:date;not null" json:"expense_date"`
	Amount           decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	Currency         string          `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Memo             string          `gorm:"type:text;not null;default:''" json:"memo"`
	Reference        string          `gorm:"type:text;not null;default:''" json:"reference"`
	IsVoided         bool            `gorm:"not null;default:false" json:"is_voided"`
	VoidedAt         *time.Time      `json:"voided_at,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Expense) TableName() string { return "expenses" }

// Posted reports whether the expense has ledger entries behind it.
func (e Expense) Posted() bool { return e.PaymentAccountID != nil }
