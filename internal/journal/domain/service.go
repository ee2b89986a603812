package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
)

// JournalLineRequest is one leg of a requested entry. Exactly one of Debit
// and Credit must be positive.
type JournalLineRequest struct {
	AccountID   string      `json:"accountId"`
	Description string      `json:"description"`
	Debit       money.Input `json:"debit"`
	Credit      money.Input `json:"credit"`
}

type CreateJournalEntryRequest struct {
	EntryDate date.Date            `json:"entryDate"`
	Memo      string               `json:"memo"`
	Lines     []JournalLineRequest `json:"lines"`
}

// UpdateJournalEntryRequest covers the only field that does not invalidate
// postings. Wrong amounts are corrected by voiding and re-entering.
type UpdateJournalEntryRequest struct {
	Memo *string `json:"memo"`
}

type ListJournalEntryRequest struct {
	pagination.Pagination
	Search    string `form:"search"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type ListJournalEntryResponse struct {
	pagination.PageInfo
	JournalEntries []JournalEntry `json:"journal_entries"`
}

// JournalEntryDetail is an entry with its lines.
type JournalEntryDetail struct {
	JournalEntry
	Lines []JournalEntryLine `json:"lines"`
}

// Service manages manual journal entries. Entries post to the ledger at
// creation, so there is no delete; void is the only correction path.
type Service interface {
	Create(ctx context.Context, req CreateJournalEntryRequest) (JournalEntryDetail, error)
	List(ctx context.Context, req ListJournalEntryRequest) (ListJournalEntryResponse, error)
	GetByID(ctx context.Context, id string) (JournalEntryDetail, error)
	Update(ctx context.Context, id string, req UpdateJournalEntryRequest) (JournalEntryDetail, error)

	// Void reverses the entry's postings and marks it voided.
	Void(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrTooFewLines         = errors.New("journal_requires_two_lines")
	ErrInvalidSide         = errors.New("line_requires_one_side")
	ErrUnbalanced          = errors.New("journal_unbalanced")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrAlreadyVoided       = errors.New("journal_entry_voided")
)
