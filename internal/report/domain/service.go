package domain

import (
	"context"
	"errors"
)

type TrialBalanceRequest struct {
	AsOf string `form:"asOf"`
}

type ProfitAndLossRequest struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type BalanceSheetRequest struct {
	AsOf string `form:"asOf"`
}

type TransactionJournalRequest struct {
	StartDate       string `form:"startDate"`
	EndDate         string `form:"endDate"`
	AccountID       string `form:"accountId"`
	TransactionType string `form:"transactionType"`
}

// Service produces financial reports for the tenant in context.
type Service interface {
	AccountBalances(ctx context.Context) (AccountBalancesReport, error)
	TrialBalance(ctx context.Context, req TrialBalanceRequest) (TrialBalance, error)
	ProfitAndLoss(ctx context.Context, req ProfitAndLossRequest) (ProfitAndLoss, error)
	BalanceSheet(ctx context.Context, req BalanceSheetRequest) (BalanceSheet, error)
	ReceivableAging(ctx context.Context) (AgingReport, error)
	PayableAging(ctx context.Context) (AgingReport, error)
	TransactionJournal(ctx context.Context, req TransactionJournalRequest) (TransactionJournal, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidType         = errors.New("invalid_transaction_type")
)
