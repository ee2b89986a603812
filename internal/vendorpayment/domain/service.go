package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
)

// ApplicationRequest directs part of a vendor payment at one bill.
type ApplicationRequest struct {
	BillID string      `json:"billId"`
	Amount money.Input `json:"amount"`
}

type CreateVendorPaymentRequest struct {
	VendorID         string               `json:"vendorId"`
	PaymentDate      date.Date            `json:"paymentDate"`
	Amount           money.Input          `json:"amount"`
	PaymentAccountID string               `json:"paymentAccountId"`
	PaymentMethod    string               `json:"paymentMethod"`
	ReferenceNumber  string               `json:"referenceNumber"`
	Memo             string               `json:"memo"`
	BillsApplied     []ApplicationRequest `json:"billsApplied"`
}

// UpdateVendorPaymentRequest covers the fields that never affect postings
// or applications. Anything else requires a void and a new payment.
type UpdateVendorPaymentRequest struct {
	PaymentMethod   *string `json:"paymentMethod"`
	ReferenceNumber *string `json:"referenceNumber"`
	Memo            *string `json:"memo"`
}

// PayBillRequest settles a single bill. The vendor and currency are taken
// from the bill; amounts above the bill's amount_due are refused.
type PayBillRequest struct {
	Amount           money.Input `json:"amount"`
	PaymentDate      date.Date   `json:"paymentDate"`
	PaymentAccountID string      `json:"paymentAccountId"`
	PaymentMethod    string      `json:"paymentMethod"`
	ReferenceNumber  string      `json:"referenceNumber"`
	Memo             string      `json:"memo"`
}

type ListVendorPaymentRequest struct {
	pagination.Pagination
	VendorID  string `form:"vendorId"`
	Search    string `form:"search"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type ListVendorPaymentResponse struct {
	pagination.PageInfo
	VendorPayments []VendorPayment `json:"vendor_payments"`
}

// VendorPaymentDetail is a vendor payment with its applications.
type VendorPaymentDetail struct {
	VendorPayment
	Applications []BillPaymentApplication `json:"applications"`
}

type Service interface {
	Create(ctx context.Context, req CreateVendorPaymentRequest) (VendorPaymentDetail, error)
	List(ctx context.Context, req ListVendorPaymentRequest) (ListVendorPaymentResponse, error)
	GetByID(ctx context.Context, id string) (VendorPaymentDetail, error)
	Update(ctx context.Context, id string, req UpdateVendorPaymentRequest) (VendorPaymentDetail, error)

	// PayBill creates a vendor payment applied to one bill.
	PayBill(ctx context.Context, billID string, req PayBillRequest) (VendorPaymentDetail, error)

	// Void marks the payment voided, deletes its applications, reverses
	// any postings and recomputes every affected bill.
	Void(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidVendor       = errors.New("invalid_vendor")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidBill         = errors.New("invalid_bill")
	ErrVendorMismatch      = errors.New("bill_vendor_mismatch")
	ErrOverApplied         = errors.New("applications_exceed_payment")
	ErrExceedsAmountDue    = errors.New("application_exceeds_amount_due")
	ErrAlreadyVoided       = errors.New("vendor_payment_voided")
)
