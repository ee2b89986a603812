// Package domain contains persistence models for vendor bills.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// BillStatus represents bill lifecycle states.
type BillStatus string

const (
	BillStatusDraft   BillStatus = "draft"
	BillStatusOpen    BillStatus = "open"
	BillStatusPartial BillStatus = "partial"
	BillStatusPaid    BillStatus = "paid"
	BillStatusVoided  BillStatus = "voided"
)

// Terminal reports whether no further lifecycle transitions are allowed.
// Leaving paid is possible only through a vendor payment void.
func (s BillStatus) Terminal() bool {
	return s == BillStatusPaid || s == BillStatusVoided
}

// Bill is an accounts-payable document. Unlike invoices, bills post to the
// ledger as soon as they are open; draft is the only unposted state.
type Bill struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID    `gorm:"not null;uniqueIndex:ux_bills_org_number,priority:1;index:ix_bills_org_status,priority:1" json:"org_id"`
	BillNumber     string          `gorm:"type:text;not null;uniqueIndex:ux_bills_org_number,priority:2" json:"bill_number"`
	VendorID       snowflake.ID    `gorm:"not null;index:ix_bills_org_vendor" json:"vendor_id"`
	Status         BillStatus      `gorm:"type:text;not null;default:'open';index:ix_bills_org_status,priority:2" json:"status"`
	IssueDate      date.Date       `gorm:"type:date;not null" json:"issue_date"`
	DueDate        date.Date       `gorm:"type:date;not null" json:"due_date"`
	Currency       string          `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"total"`
	AmountPaid     decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount_paid"`
	AmountDue      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount_due"`
	APAccountID    *snowflake.ID   `json:"ap_account_id,omitempty"`
	Memo           string          `gorm:"type:text;not null;default:''" json:"memo"`
	Reference      string          `gorm:"type:text;not null;default:''" json:"reference"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }

// Posted reports whether the bill has ledger entries behind it.
func (b Bill) Posted() bool { return b.Status != BillStatusDraft }

// BillLineItem is one line of a bill. Every line debits an explicit
// expense or asset account.
type BillLineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID    `gorm:"not null;index" json:"org_id"`
	BillID      snowflake.ID    `gorm:"not null;index:ix_bill_line_items_bill" json:"bill_id"`
	AccountID   snowflake.ID    `gorm:"not null" json:"account_id"`
	Description string          `gorm:"type:text;not null;default:''" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,4);not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0" json:"unit_price"`
	TaxRateID   *snowflake.ID   `json:"tax_rate_id,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	TaxAmount   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"tax_amount"`
	Position    int             `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillLineItem) TableName() string { return "bill_line_items" }
