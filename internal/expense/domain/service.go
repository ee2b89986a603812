package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
)

type CreateExpenseRequest struct {
	AccountID        string      `json:"accountId"`
	PaymentAccountID string      `json:"paymentAccountId"`
	VendorID         string      `json:"vendorId"`
	ExpenseDate      date.Date   `json:"expenseDate"`
	Amount           money.Input `json:"amount"`
	Memo             string      `json:"memo"`
	Reference        string      `json:"reference"`
}

// UpdateExpenseRequest carries a partial rewrite. While the expense is
// unposted every present field applies; setting PaymentAccountID posts it.
// After posting, only Memo and Reference may change.
type UpdateExpenseRequest struct {
	AccountID        *string      `json:"accountId"`
	PaymentAccountID *string      `json:"paymentAccountId"`
	VendorID         *string      `json:"vendorId"`
	ExpenseDate      *date.Date   `json:"expenseDate"`
	Amount           *money.Input `json:"amount"`
	Memo             *string      `json:"memo"`
	Reference        *string      `json:"reference"`
}

type ListExpenseRequest struct {
	pagination.Pagination
	AccountID string `form:"accountId"`
	VendorID  string `form:"vendorId"`
	Search    string `form:"search"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type ListExpenseResponse struct {
	pagination.PageInfo
	Expenses []Expense `json:"expenses"`
}

type Service interface {
	Create(ctx context.Context, req CreateExpenseRequest) (Expense, error)
	List(ctx context.Context, req ListExpenseRequest) (ListExpenseResponse, error)
	GetByID(ctx context.Context, id string) (Expense, error)
	Update(ctx context.Context, id string, req UpdateExpenseRequest) (Expense, error)

	// Delete removes an unposted expense. Posted expenses must be voided.
	Delete(ctx context.Context, id string) error

	// Void reverses any postings and marks the expense voided.
	Void(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidVendor       = errors.New("invalid_vendor")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrAlreadyVoided       = errors.New("expense_voided")
	ErrPostedImmutable     = errors.New("expense_posted_immutable")
	ErrPostedDelete        = errors.New("expense_posted")
)
