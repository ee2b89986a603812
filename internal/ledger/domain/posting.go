package domain

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// BalanceTolerance is the largest absolute difference between total debits
// and total credits a posting set may carry and still be accepted.
var BalanceTolerance = decimal.NewFromFloat(0.01)

// PostingLine is one leg of a posting request. Amounts are expressed on
// exactly one side.
type PostingLine struct {
	AccountID    snowflake.ID
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Description  string
	SourceLineID *snowflake.ID
	CustomerID   *snowflake.ID
	VendorID     *snowflake.ID
}

// PostingRequest asks the engine to write one balanced set of ledger
// entries for a single source document, inside the caller's transaction.
type PostingRequest struct {
	OrgID           snowflake.ID
	TransactionType TransactionType
	SourceID        snowflake.ID
	TransactionDate date.Date
	Lines           []PostingLine
}

// ValidateBalanced checks the one-positive-side rule per line and the
// debit/credit balance across the set.
func ValidateBalanced(lines []PostingLine) error {
	if len(lines) == 0 {
		return ErrEmptyPosting
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		if line.AccountID == 0 {
			return ErrInvalidAccount
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return ErrInvalidLineAmount
		}
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if debitSet == creditSet {
			return ErrInvalidLineAmount
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	if totalDebit.Sub(totalCredit).Abs().GreaterThan(BalanceTolerance) {
		return ErrUnbalancedPosting
	}
	return nil
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidSourceType   = errors.New("invalid_source_type")
	ErrInvalidSourceID     = errors.New("invalid_source_id")
	ErrInvalidDate         = errors.New("invalid_transaction_date")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidLineAmount   = errors.New("invalid_line_amount")
	ErrEmptyPosting        = errors.New("empty_posting")
	ErrUnbalancedPosting   = errors.New("unbalanced_posting")
	ErrUnknownAccount      = errors.New("unknown_account")
	ErrNothingToReverse    = errors.New("nothing_to_reverse")
)
