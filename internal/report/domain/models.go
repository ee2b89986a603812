// Package domain contains read-side report projections. Reports are pure
// functions of the posted ledger and the open documents; they take no locks
// and write nothing.
package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	"github.com/smallbiznis/ledgerly/pkg/date"
)

// AccountBalance is one account's posted activity with its signed balance.
type AccountBalance struct {
	AccountID     snowflake.ID              `json:"account_id"`
	AccountNumber *string                   `json:"account_number,omitempty"`
	Name          string                    `json:"name"`
	Type          accountdomain.AccountType `json:"type"`
	DebitTotal    decimal.Decimal           `json:"debit_total"`
	CreditTotal   decimal.Decimal           `json:"credit_total"`
	Balance       decimal.Decimal           `json:"balance"`
}

type AccountBalancesReport struct {
	Accounts []AccountBalance `json:"accounts"`
}

// TrialBalanceRow reports the account's balance on the side it falls on:
// exactly one of Debit and Credit is non-zero.
type TrialBalanceRow struct {
	AccountID     snowflake.ID              `json:"account_id"`
	AccountNumber *string                   `json:"account_number,omitempty"`
	Name          string                    `json:"name"`
	Type          accountdomain.AccountType `json:"type"`
	Debit         decimal.Decimal           `json:"debit"`
	Credit        decimal.Decimal           `json:"credit"`
}

// TrialBalance exposes both totals so the caller can verify they tie.
type TrialBalance struct {
	AsOf         *date.Date        `json:"as_of,omitempty"`
	Rows         []TrialBalanceRow `json:"rows"`
	TotalDebits  decimal.Decimal   `json:"total_debits"`
	TotalCredits decimal.Decimal   `json:"total_credits"`
}

// ReportLine is one account's contribution to a P&L or Balance Sheet
// section.
type ReportLine struct {
	AccountID     snowflake.ID    `json:"account_id"`
	AccountNumber *string         `json:"account_number,omitempty"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
}

type ProfitAndLoss struct {
	StartDate    date.Date       `json:"start_date"`
	EndDate      date.Date       `json:"end_date"`
	Income       []ReportLine    `json:"income"`
	IncomeTotal  decimal.Decimal `json:"income_total"`
	Expenses     []ReportLine    `json:"expenses"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

// BalanceSheet reports asset, liability and equity balances as of a date.
// Net income to date is folded into the equity section as a computed line.
type BalanceSheet struct {
	AsOf             date.Date       `json:"as_of"`
	Assets           []ReportLine    `json:"assets"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	Liabilities      []ReportLine    `json:"liabilities"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	Equity           []ReportLine    `json:"equity"`
	NetIncome        decimal.Decimal `json:"net_income"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
}

// AgingRow is one counterparty's outstanding balance spread across the
// configured buckets. Bucket order follows the report's Buckets slice.
type AgingRow struct {
	PartyID           snowflake.ID      `json:"party_id"`
	PartyName         string            `json:"party_name"`
	Buckets           []decimal.Decimal `json:"buckets"`
	UnappliedPayments decimal.Decimal   `json:"unapplied_payments"`
	Total             decimal.Decimal   `json:"total"`
}

// AgingReport buckets open document balances by days overdue. Unapplied
// counterparty credits reduce the first bucket, floored at zero.
type AgingReport struct {
	AsOf         date.Date         `json:"as_of"`
	BucketLabels []string          `json:"bucket_labels"`
	Rows         []AgingRow        `json:"rows"`
	BucketTotals []decimal.Decimal `json:"bucket_totals"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
}

// JournalLine is one ledger entry enriched with its account identity.
type JournalLine struct {
	EntryID       snowflake.ID    `json:"entry_id"`
	AccountID     snowflake.ID    `json:"account_id"`
	AccountNumber *string         `json:"account_number,omitempty"`
	AccountName   string          `json:"account_name"`
	Description   string          `json:"description"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// JournalGroup is the balanced entry set of one source document.
type JournalGroup struct {
	SourceID        snowflake.ID                 `json:"source_id"`
	TransactionType ledgerdomain.TransactionType `json:"transaction_type"`
	TransactionDate date.Date                    `json:"transaction_date"`
	Lines           []JournalLine                `json:"lines"`
	TotalDebit      decimal.Decimal              `json:"total_debit"`
	TotalCredit     decimal.Decimal              `json:"total_credit"`
}

// TransactionJournal lists posted activity grouped by source document. The
// grand totals tie whenever every group does.
type TransactionJournal struct {
	StartDate    date.Date       `json:"start_date"`
	EndDate      date.Date       `json:"end_date"`
	Groups       []JournalGroup  `json:"groups"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
}
