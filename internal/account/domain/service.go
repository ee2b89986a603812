package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"gorm.io/gorm"
)

type CreateAccountRequest struct {
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	Subtype        string      `json:"subtype"`
	AccountNumber  string      `json:"accountNumber"`
	Description    string      `json:"description"`
	ParentID       string      `json:"parentAccountId"`
	OpeningBalance money.Input `json:"openingBalance"`
}

type UpdateAccountRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

type ListAccountRequest struct {
	pagination.Pagination
	Type     string `form:"type"`
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search"`
}

type ListAccountResponse struct {
	pagination.PageInfo
	Accounts []Account `json:"accounts"`
}

// ChildSummary is the rolled-up view of a direct child account.
type ChildSummary struct {
	ID            snowflake.ID `json:"id"`
	Name          string       `json:"name"`
	AccountNumber *string      `json:"account_number,omitempty"`
	Balance       money.Money  `json:"balance"`
}

// AccountDetail is an account with its signed balance and children.
type AccountDetail struct {
	Account
	Balance  money.Money    `json:"balance"`
	Children []ChildSummary `json:"children"`
}

type TransactionRow struct {
	ID              snowflake.ID                 `json:"id"`
	TransactionDate string                       `json:"transaction_date"`
	TransactionType ledgerdomain.TransactionType `json:"transaction_type"`
	SourceID        snowflake.ID                 `json:"source_id"`
	Description     string                       `json:"description"`
	Debit           money.Money                  `json:"debit"`
	Credit          money.Money                  `json:"credit"`
}

type ListTransactionsRequest struct {
	pagination.Pagination
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Type      string `form:"type"`
}

type ListTransactionsResponse struct {
	pagination.PageInfo
	Transactions []TransactionRow `json:"transactions"`
}

type Service interface {
	Create(ctx context.Context, req CreateAccountRequest) (Account, error)
	List(ctx context.Context, req ListAccountRequest) (ListAccountResponse, error)
	GetByID(ctx context.Context, id string) (AccountDetail, error)
	Update(ctx context.Context, id string, req UpdateAccountRequest) (Account, error)
	Delete(ctx context.Context, id string) error
	Transactions(ctx context.Context, id string, req ListTransactionsRequest) (ListTransactionsResponse, error)

	// ProvisionDefaults seeds the default chart for a new tenant inside the
	// caller's transaction. Safe to call twice; existing accounts win.
	ProvisionDefaults(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidType         = errors.New("invalid_type")
	ErrInvalidSubtype      = errors.New("invalid_subtype")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidParent       = errors.New("invalid_parent_account")
	ErrParentTypeMismatch  = errors.New("parent_type_mismatch")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
	ErrDuplicateNumber     = errors.New("duplicate_account_number")
	ErrNotFound            = errors.New("not_found")
	ErrSystemAccount       = errors.New("system_account_immutable")
	ErrHasChildren         = errors.New("account_has_children")
	ErrHasLedgerEntries    = errors.New("account_has_ledger_entries")
	ErrMissingEquity       = errors.New("owners_equity_account_missing")
)
