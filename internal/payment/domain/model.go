// Package domain contains persistence models for customer payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// Payment is money received from a customer. It posts to the ledger only
// when a deposit account is set; without one the amount sits as an
// unapplied credit. Applications spread the amount across invoices.
type Payment struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID    `gorm:"not null;uniqueIndex:ux_payments_org_number,priority:1" json:"org_id"`
	PaymentNumber    string          `gorm:"type:text;not null;uniqueIndex:ux_payments_org_number,priority:2" json:"payment_number"`
	CustomerID       snowflake.ID    `gorm:"not null;index:ix_payments_org_customer" json:"customer_id"`
	PaymentDate      date.Date       `gorm:"type:date;not null" json:"payment_date"`
	Amount           decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	DepositAccountID *snowflake.ID   `json:"deposit_account_id,omitempty"`
	PaymentMethod    string          `gorm:"type:text;not null;default:''" json:"payment_method"`
	ReferenceNumber  string          `gorm:"type:text;not null;default:''" json:"reference_number"`
	Memo             string          `gorm:"type:text;not null;default:''" json:"memo"`
	IsVoided         bool            `gorm:"not null;default:false" json:"is_voided"`
	VoidedAt         *time.Time      `json:"voided_at,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Posted reports whether the payment has ledger entries behind it.
func (p Payment) Posted() bool { return p.DepositAccountID != nil }

// PaymentApplication ties part of a payment to one invoice. Voiding the
// payment deletes its applications.
type PaymentApplication struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID    `gorm:"not null;index" json:"org_id"`
	PaymentID snowflake.ID    `gorm:"not null;index:ix_payment_applications_payment" json:"payment_id"`
	InvoiceID snowflake.ID    `gorm:"not null;index:ix_payment_applications_invoice" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PaymentApplication) TableName() string { return "payment_applications" }
