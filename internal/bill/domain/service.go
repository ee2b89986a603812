package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"gorm.io/gorm"
)

// BillLineRequest is one requested bill line. Amount and tax are computed
// server-side.
type BillLineRequest struct {
	AccountID   string          `json:"accountId"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   money.Input     `json:"unitPrice"`
	TaxRateID   string          `json:"taxRateId"`
}

type CreateBillRequest struct {
	VendorID       string            `json:"vendorId"`
	Status         string            `json:"status"`
	IssueDate      date.Date         `json:"issueDate"`
	DueDate        date.Date         `json:"dueDate"`
	APAccountID    string            `json:"apAccountId"`
	DiscountAmount money.Input       `json:"discountAmount"`
	Memo           string            `json:"memo"`
	Reference      string            `json:"reference"`
	LineItems      []BillLineRequest `json:"lineItems"`
}

// UpdateBillRequest carries a full or partial rewrite. While the bill is a
// draft every present field applies and a non-nil LineItems replaces the
// line set; Status may move draft to open, which posts the bill. After
// posting, only DueDate, Memo and Reference may change.
type UpdateBillRequest struct {
	VendorID       *string           `json:"vendorId"`
	Status         *string           `json:"status"`
	IssueDate      *date.Date        `json:"issueDate"`
	DueDate        *date.Date        `json:"dueDate"`
	APAccountID    *string           `json:"apAccountId"`
	DiscountAmount *money.Input      `json:"discountAmount"`
	Memo           *string           `json:"memo"`
	Reference      *string           `json:"reference"`
	LineItems      []BillLineRequest `json:"lineItems"`
}

type ListBillRequest struct {
	pagination.Pagination
	Status    string `form:"status"`
	VendorID  string `form:"vendorId"`
	Search    string `form:"search"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type ListBillResponse struct {
	pagination.PageInfo
	Bills []Bill `json:"bills"`
}

// BillDetail is a bill with its lines.
type BillDetail struct {
	Bill
	LineItems []BillLineItem `json:"line_items"`
}

type Service interface {
	Create(ctx context.Context, req CreateBillRequest) (BillDetail, error)
	List(ctx context.Context, req ListBillRequest) (ListBillResponse, error)
	GetByID(ctx context.Context, id string) (BillDetail, error)
	Update(ctx context.Context, id string, req UpdateBillRequest) (BillDetail, error)
	Delete(ctx context.Context, id string) error

	// Void reverses any postings and marks the bill voided.
	Void(ctx context.Context, id string) (BillDetail, error)

	// RecomputeFromApplications reloads amount_paid from non-voided
	// vendor payment applications and rolls status and paid_at forward or
	// back. It locks the header row and must run inside the caller's
	// transaction.
	RecomputeFromApplications(ctx context.Context, tx *gorm.DB, orgID, billID snowflake.ID) (*Bill, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidVendor       = errors.New("invalid_vendor")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrNoLineItems         = errors.New("no_line_items")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUnitPrice    = errors.New("invalid_unit_price")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrVoided              = errors.New("bill_voided")
	ErrTerminal            = errors.New("bill_terminal")
	ErrHasPayments         = errors.New("bill_has_payments")
	ErrPostedImmutable     = errors.New("bill_posted_immutable")
)
