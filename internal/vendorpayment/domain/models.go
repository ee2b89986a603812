// Package domain contains persistence models for vendor payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// VendorPayment is money paid out to a vendor. It posts to the ledger only
// when a payment account is set. Applications spread the amount across
// bills.
type VendorPayment struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID    `gorm:"not null;uniqueIndex:ux_vendor_payments_org_number,priority:1" json:"org_id"`
	PaymentNumber    string          `gorm:"type:text;not null;uniqueIndex:ux_vendor_payments_org_number,priority:2" json:"payment_number"`
	VendorID         snowflake.ID    `gorm:"not null;index:ix_vendor_payments_org_vendor" json:"vendor_id"`
	PaymentDate      date.Date       `gorm:"type:date;not null" json:"payment_date"`
	Amount           decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	PaymentAccountID *snowflake.ID   `json:"payment_account_id,omitempty"`
	PaymentMethod    string          `gorm:"type:text;not null;default:''" json:"payment_method"`
	ReferenceNumber  string          `gorm:"type:text;not null;default:''" json:"reference_number"`
	Memo             string          `gorm:"type:text;not null;default:''" json:"memo"`
	IsVoided         bool            `gorm:"not null;default:false" json:"is_voided"`
	VoidedAt         *time.Time      `json:"voided_at,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (VendorPayment) TableName() string { return "vendor_payments" }

// Posted reports whether the payment has ledger entries behind it.
func (p VendorPayment) Posted() bool { return p.PaymentAccountID != nil }

// BillPaymentApplication ties part of a vendor payment to one bill.
// Voiding the payment deletes its applications.
type BillPaymentApplication struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID    `gorm:"not null;index" json:"org_id"`
	VendorPaymentID snowflake.ID    `gorm:"not null;index:ix_bill_payment_applications_payment" json:"vendor_payment_id"`
	BillID          snowflake.ID    `gorm:"not null;index:ix_bill_payment_applications_bill" json:"bill_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillPaymentApplication) TableName() string { return "bill_payment_applications" }
