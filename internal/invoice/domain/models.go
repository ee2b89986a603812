// Package domain contains persistence models for customer invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusViewed  InvoiceStatus = "viewed"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusVoided  InvoiceStatus = "voided"

	// InvoiceStatusOverdue is derived at read time from due_date; it is
	// never stored.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Terminal reports whether no further lifecycle transitions are allowed.
// Leaving paid is possible only through a payment void.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoided
}

// Invoice is an accounts-receivable document. Amounts are recomputed from
// the line items on every draft write; amount_paid and amount_due are
// derived from non-voided payment applications.
type Invoice struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID    `gorm:"not null;uniqueIndex:ux_invoices_org_number,priority:1;index:ix_invoices_org_status,priority:1" json:"org_id"`
	InvoiceNumber  string          `gorm:"type:text;not null;uniqueIndex:ux_invoices_org_number,priority:2" json:"invoice_number"`
	CustomerID     snowflake.ID    `gorm:"not null;index:ix_invoices_org_customer" json:"customer_id"`
	Status         InvoiceStatus   `gorm:"type:text;not null;default:'draft';index:ix_invoices_org_status,priority:2" json:"status"`
	IssueDate      date.Date       `gorm:"type:date;not null" json:"issue_date"`
	DueDate        date.Date       `gorm:"type:date;not null" json:"due_date"`
	Currency       string          `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"discount_amount"`
	ShippingAmount decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"shipping_amount"`
	Total          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"total"`
	AmountPaid     decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount_paid"`
	AmountDue      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount_due"`
	ARAccountID    *snowflake.ID   `json:"ar_account_id,omitempty"`
	Memo           string          `gorm:"type:text;not null;default:''" json:"memo"`
	Notes          string          `gorm:"type:text;not null;default:''" json:"notes"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// EffectiveStatus overlays the virtual overdue state: an unpaid invoice in
// the sent family whose due date has passed reads as overdue.
func (i Invoice) EffectiveStatus(today date.Date) InvoiceStatus {
	switch i.Status {
	case InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPartial:
		if i.DueDate.Before(today) {
			return InvoiceStatusOverdue
		}
	}
	return i.Status
}

// Posted reports whether the invoice has ledger entries behind it.
func (i Invoice) Posted() bool { return i.SentAt != nil }

// InvoiceLineItem is one line of an invoice. Amount and TaxAmount are
// computed, never accepted from input.
type InvoiceLineItem struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID    `gorm:"not null;index" json:"org_id"`
	InvoiceID       snowflake.ID    `gorm:"not null;index:ix_invoice_line_items_invoice" json:"invoice_id"`
	Description     string          `gorm:"type:text;not null;default:''" json:"description"`
	Quantity        decimal.Decimal `gorm:"type:numeric(18,4);not null;default:1" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0" json:"unit_price"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(8,4);not null;default:0" json:"discount_percent"`
	TaxRateID       *snowflake.ID   `json:"tax_rate_id,omitempty"`
	IncomeAccountID *snowflake.ID   `json:"income_account_id,omitempty"`
	ProductID       *snowflake.ID   `json:"product_id,omitempty"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	TaxAmount       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"tax_amount"`
	Position        int             `gorm:"not null;default:0" json:"position"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceLineItem) TableName() string { return "invoice_line_items" }
