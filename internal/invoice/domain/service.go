package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"gorm.io/gorm"
)

// LineItemRequest is one requested invoice line. Amount and tax are always
// computed server-side from quantity, unit price, discount and tax rate.
type LineItemRequest struct {
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       money.Input     `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxRateID       string          `json:"taxRateId"`
	IncomeAccountID string          `json:"incomeAccountId"`
	ProductID       string          `json:"productId"`
}

// CreateInvoiceRequest creates an invoice. Status may be "draft" or
// "sent"; the default is draft, which does not post. IssueDate defaults
// to today and DueDate to thirty days after the issue date.
type CreateInvoiceRequest struct {
	CustomerID     string            `json:"customerId"`
	Status         string            `json:"status"`
	IssueDate      date.Date         `json:"issueDate"`
	DueDate        date.Date         `json:"dueDate"`
	ARAccountID    string            `json:"arAccountId"`
	DiscountAmount money.Input       `json:"discountAmount"`
	ShippingAmount money.Input       `json:"shippingAmount"`
	Memo           string            `json:"memo"`
	Notes          string            `json:"notes"`
	LineItems      []LineItemRequest `json:"lineItems"`
}

// UpdateInvoiceRequest carries a full or partial rewrite. While the invoice
// is a draft every present field applies and a non-nil LineItems replaces
// the line set. After sending, only DueDate, Memo and Notes may change.
type UpdateInvoiceRequest struct {
	CustomerID     *string           `json:"customerId"`
	IssueDate      *date.Date        `json:"issueDate"`
	DueDate        *date.Date        `json:"dueDate"`
	ARAccountID    *string           `json:"arAccountId"`
	DiscountAmount *money.Input      `json:"discountAmount"`
	ShippingAmount *money.Input      `json:"shippingAmount"`
	Memo           *string           `json:"memo"`
	Notes          *string           `json:"notes"`
	LineItems      []LineItemRequest `json:"lineItems"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	CustomerID string `form:"customerId"`
	Search     string `form:"search"`
	StartDate  string `form:"startDate"`
	EndDate    string `form:"endDate"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// InvoiceDetail is an invoice with its lines.
type InvoiceDetail struct {
	Invoice
	LineItems []InvoiceLineItem `json:"line_items"`
}

// SendInvoiceRequest mirrors the transport payload. Delivery is out of
// scope; the address is accepted and ignored.
type SendInvoiceRequest struct {
	Email string `json:"email"`
}

type SendInvoiceResponse struct {
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (InvoiceDetail, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (InvoiceDetail, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (InvoiceDetail, error)
	Delete(ctx context.Context, id string) error

	// Send transitions draft to sent, stamps sent_at and writes the
	// invoice's ledger postings.
	Send(ctx context.Context, id string, req SendInvoiceRequest) (SendInvoiceResponse, error)

	// Void reverses any postings and marks the invoice voided.
	Void(ctx context.Context, id string) (InvoiceDetail, error)

	// RecomputeFromApplications reloads amount_paid from non-voided
	// payment applications and rolls status and paid_at forward or back.
	// It locks the header row and must run inside the caller's
	// transaction.
	RecomputeFromApplications(ctx context.Context, tx *gorm.DB, orgID, invoiceID snowflake.ID) (*Invoice, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrNoLineItems         = errors.New("no_line_items")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUnitPrice    = errors.New("invalid_unit_price")
	ErrInvalidDiscount     = errors.New("invalid_discount")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidProduct      = errors.New("invalid_product")
	ErrAlreadySent         = errors.New("invoice_already_sent")
	ErrVoided              = errors.New("invoice_voided")
	ErrTerminal            = errors.New("invoice_terminal")
	ErrHasPayments         = errors.New("invoice_has_payments")
	ErrPostedImmutable     = errors.New("invoice_posted_immutable")
)
