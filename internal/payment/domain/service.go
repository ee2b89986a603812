package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
)

// ApplicationRequest directs part of a payment at one invoice.
type ApplicationRequest struct {
	InvoiceID string      `json:"invoiceId"`
	Amount    money.Input `json:"amount"`
}

type CreatePaymentRequest struct {
	CustomerID       string               `json:"customerId"`
	PaymentDate      date.Date            `json:"paymentDate"`
	Amount           money.Input          `json:"amount"`
	DepositAccountID string               `json:"depositAccountId"`
	PaymentMethod    string               `json:"paymentMethod"`
	ReferenceNumber  string               `json:"referenceNumber"`
	Memo             string               `json:"memo"`
	InvoicesApplied  []ApplicationRequest `json:"invoicesApplied"`
}

// UpdatePaymentRequest covers the fields that never affect postings or
// applications. Anything else requires a void and a new payment.
type UpdatePaymentRequest struct {
	PaymentMethod   *string `json:"paymentMethod"`
	ReferenceNumber *string `json:"referenceNumber"`
	Memo            *string `json:"memo"`
}

// ApplyToInvoiceRequest records a payment against a single invoice. The
// customer is taken from the invoice.
type ApplyToInvoiceRequest struct {
	Amount           money.Input `json:"amount"`
	PaymentDate      date.Date   `json:"paymentDate"`
	DepositAccountID string      `json:"depositAccountId"`
	PaymentMethod    string      `json:"paymentMethod"`
	ReferenceNumber  string      `json:"referenceNumber"`
	Memo             string      `json:"memo"`
}

type ListPaymentRequest struct {
	pagination.Pagination
	CustomerID string `form:"customerId"`
	Search     string `form:"search"`
	StartDate  string `form:"startDate"`
	EndDate    string `form:"endDate"`
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

// PaymentDetail is a payment with its applications.
type PaymentDetail struct {
	Payment
	Applications []PaymentApplication `json:"applications"`
}

type Service interface {
	Create(ctx context.Context, req CreatePaymentRequest) (PaymentDetail, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
	GetByID(ctx context.Context, id string) (PaymentDetail, error)
	Update(ctx context.Context, id string, req UpdatePaymentRequest) (PaymentDetail, error)

	// ApplyToInvoice creates a payment applied to one invoice.
	ApplyToInvoice(ctx context.Context, invoiceID string, req ApplyToInvoiceRequest) (PaymentDetail, error)

	// Void marks the payment voided, deletes its applications, reverses
	// any postings and recomputes every affected invoice.
	Void(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidInvoice      = errors.New("invalid_invoice")
	ErrCustomerMismatch    = errors.New("invoice_customer_mismatch")
	ErrOverApplied         = errors.New("applications_exceed_payment")
	ErrExceedsAmountDue    = errors.New("application_exceeds_amount_due")
	ErrAlreadyVoided       = errors.New("payment_voided")
)
