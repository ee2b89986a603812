package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/config"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/report/domain"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	Orgs      orgdomain.Repository
	Reporting *config.ReportingConfigHolder
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	orgs      orgdomain.Repository
	reporting *config.ReportingConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		orgs:      p.Orgs,
		reporting: p.Reporting,
	}
}

func (s *Service) AccountBalances(ctx context.Context) (domain.AccountBalancesReport, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.AccountBalancesReport{}, domain.ErrInvalidOrganization
	}
	defer s.observe("account_balances", time.Now())

	rows, err := s.repo.AccountActivity(ctx, s.db, orgID, date.Date{}, date.Date{})
	if err != nil {
		return domain.AccountBalancesReport{}, err
	}

	balances := make([]domain.AccountBalance, 0, len(rows))
	for _, row := range rows {
		balances = append(balances, domain.AccountBalance{
			AccountID:     row.AccountID,
			AccountNumber: row.AccountNumber,
			Name:          row.Name,
			Type:          row.Type,
			DebitTotal:    row.Debit,
			CreditTotal:   row.Credit,
			Balance:       accountdomain.SignedBalance(row.Type, row.Debit, row.Credit),
		})
	}
	return domain.AccountBalancesReport{Accounts: balances}, nil
}

func (s *Service) TrialBalance(ctx context.Context, req domain.TrialBalanceRequest) (domain.TrialBalance, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.TrialBalance{}, domain.ErrInvalidOrganization
	}
	defer s.observe("trial_balance", time.Now())

	var asOf *date.Date
	if raw := strings.TrimSpace(req.AsOf); raw != "" {
		parsed, err := date.Parse(raw)
		if err != nil {
			return domain.TrialBalance{}, domain.ErrInvalidDate
		}
		asOf = &parsed
	}

	to := date.Date{}
	if asOf != nil {
		to = *asOf
	}
	rows, err := s.repo.AccountActivity(ctx, s.db, orgID, date.Date{}, to)
	if err != nil {
		return domain.TrialBalance{}, err
	}

	report := domain.TrialBalance{
		AsOf:         asOf,
		Rows:         make([]domain.TrialBalanceRow, 0, len(rows)),
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	for _, row := range rows {
		// The raw balance falls on the debit side when positive. The
		// normal-side convention only decides presentation; the totals
		// tie either way.
		balance := row.Debit.Sub(row.Credit)
		if balance.IsZero() {
			continue
		}
		tbRow := domain.TrialBalanceRow{
			AccountID:     row.AccountID,
			AccountNumber: row.AccountNumber,
			Name:          row.Name,
			Type:          row.Type,
			Debit:         decimal.Zero,
			Credit:        decimal.Zero,
		}
		if balance.IsPositive() {
			tbRow.Debit = balance
			report.TotalDebits = report.TotalDebits.Add(balance)
		} else {
			tbRow.Credit = balance.Abs()
			report.TotalCredits = report.TotalCredits.Add(balance.Abs())
		}
		report.Rows = append(report.Rows, tbRow)
	}
	return report, nil
}

func (s *Service) ProfitAndLoss(ctx context.Context, req domain.ProfitAndLossRequest) (domain.ProfitAndLoss, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ProfitAndLoss{}, domain.ErrInvalidOrganization
	}
	defer s.observe("profit_and_loss", time.Now())

	start, end, err := s.parsePeriod(ctx, orgID, req.StartDate, req.EndDate)
	if err != nil {
		return domain.ProfitAndLoss{}, err
	}

	rows, err := s.repo.AccountActivity(ctx, s.db, orgID, start, end)
	if err != nil {
		return domain.ProfitAndLoss{}, err
	}

	report := domain.ProfitAndLoss{
		StartDate:    start,
		EndDate:      end,
		Income:       []domain.ReportLine{},
		IncomeTotal:  decimal.Zero,
		Expenses:     []domain.ReportLine{},
		ExpenseTotal: decimal.Zero,
	}
	for _, row := range rows {
		switch row.Type {
		case accountdomain.AccountTypeIncome:
			amount := row.Credit.Sub(row.Debit)
			if amount.IsZero() {
				continue
			}
			report.Income = append(report.Income, reportLine(row, amount))
			report.IncomeTotal = report.IncomeTotal.Add(amount)
		case accountdomain.AccountTypeExpense:
			amount := row.Debit.Sub(row.Credit)
			if amount.IsZero() {
				continue
			}
			report.Expenses = append(report.Expenses, reportLine(row, amount))
			report.ExpenseTotal = report.ExpenseTotal.Add(amount)
		}
	}
	report.NetIncome = report.IncomeTotal.Sub(report.ExpenseTotal)
	return report, nil
}

func (s *Service) BalanceSheet(ctx context.Context, req domain.BalanceSheetRequest) (domain.BalanceSheet, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.BalanceSheet{}, domain.ErrInvalidOrganization
	}
	defer s.observe("balance_sheet", time.Now())

	asOf := s.todayFor(ctx, orgID)
	if raw := strings.TrimSpace(req.AsOf); raw != "" {
		parsed, err := date.Parse(raw)
		if err != nil {
			return domain.BalanceSheet{}, domain.ErrInvalidDate
		}
		asOf = parsed
	}

	rows, err := s.repo.AccountActivity(ctx, s.db, orgID, date.Date{}, asOf)
	if err != nil {
		return domain.BalanceSheet{}, err
	}

	report := domain.BalanceSheet{
		AsOf:             asOf,
		Assets:           []domain.ReportLine{},
		TotalAssets:      decimal.Zero,
		Liabilities:      []domain.ReportLine{},
		TotalLiabilities: decimal.Zero,
		Equity:           []domain.ReportLine{},
		NetIncome:        decimal.Zero,
		TotalEquity:      decimal.Zero,
	}
	for _, row := range rows {
		balance := accountdomain.SignedBalance(row.Type, row.Debit, row.Credit)
		switch row.Type {
		case accountdomain.AccountTypeAsset:
			if balance.IsZero() {
				continue
			}
			report.Assets = append(report.Assets, reportLine(row, balance))
			report.TotalAssets = report.TotalAssets.Add(balance)
		case accountdomain.AccountTypeLiability:
			if balance.IsZero() {
				continue
			}
			report.Liabilities = append(report.Liabilities, reportLine(row, balance))
			report.TotalLiabilities = report.TotalLiabilities.Add(balance)
		case accountdomain.AccountTypeEquity:
			if balance.IsZero() {
				continue
			}
			report.Equity = append(report.Equity, reportLine(row, balance))
			report.TotalEquity = report.TotalEquity.Add(balance)
		case accountdomain.AccountTypeIncome:
			report.NetIncome = report.NetIncome.Add(row.Credit.Sub(row.Debit))
		case accountdomain.AccountTypeExpense:
			report.NetIncome = report.NetIncome.Sub(row.Debit.Sub(row.Credit))
		}
	}
	// Earnings to date close into equity so the sheet balances.
	report.TotalEquity = report.TotalEquity.Add(report.NetIncome)
	return report, nil
}

func (s *Service) ReceivableAging(ctx context.Context) (domain.AgingReport, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.AgingReport{}, domain.ErrInvalidOrganization
	}
	defer s.observe("receivable_aging", time.Now())

	docs, err := s.repo.OpenInvoices(ctx, s.db, orgID)
	if err != nil {
		return domain.AgingReport{}, err
	}
	credits, err := s.repo.UnappliedPayments(ctx, s.db, orgID)
	if err != nil {
		return domain.AgingReport{}, err
	}
	return s.buildAging(ctx, orgID, docs, credits), nil
}

func (s *Service) PayableAging(ctx context.Context) (domain.AgingReport, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.AgingReport{}, domain.ErrInvalidOrganization
	}
	defer s.observe("payable_aging", time.Now())

	docs, err := s.repo.OpenBills(ctx, s.db, orgID)
	if err != nil {
		return domain.AgingReport{}, err
	}
	credits, err := s.repo.UnappliedVendorPayments(ctx, s.db, orgID)
	if err != nil {
		return domain.AgingReport{}, err
	}
	return s.buildAging(ctx, orgID, docs, credits), nil
}

// buildAging spreads open document balances into the configured buckets per
// counterparty and subtracts unapplied credits from the first bucket,
// floored at zero.
func (s *Service) buildAging(ctx context.Context, orgID snowflake.ID, docs []domain.OpenDocRow, credits []domain.UnappliedRow) domain.AgingReport {
	today := s.todayFor(ctx, orgID)
	buckets := s.reporting.Get().AgingBuckets

	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
	}

	unapplied := make(map[snowflake.ID]decimal.Decimal, len(credits))
	for _, c := range credits {
		unapplied[c.PartyID] = c.Amount
	}

	type partyAgg struct {
		row   *domain.AgingRow
		order int
	}
	parties := make(map[snowflake.ID]*partyAgg)
	var ordered []*domain.AgingRow

	for _, doc := range docs {
		agg, ok := parties[doc.PartyID]
		if !ok {
			row := &domain.AgingRow{
				PartyID:           doc.PartyID,
				PartyName:         doc.PartyName,
				Buckets:           zeroBuckets(len(buckets)),
				UnappliedPayments: decimal.Zero,
				Total:             decimal.Zero,
			}
			agg = &partyAgg{row: row, order: len(ordered)}
			parties[doc.PartyID] = agg
			ordered = append(ordered, row)
		}
		overdue := today.DaysSince(doc.DueDate)
		if overdue < 0 {
			overdue = 0
		}
		idx := bucketIndex(buckets, overdue)
		agg.row.Buckets[idx] = agg.row.Buckets[idx].Add(doc.AmountDue)
	}

	report := domain.AgingReport{
		AsOf:         today,
		BucketLabels: labels,
		Rows:         []domain.AgingRow{},
		BucketTotals: zeroBuckets(len(buckets)),
		GrandTotal:   decimal.Zero,
	}
	for _, row := range ordered {
		if credit, ok := unapplied[row.PartyID]; ok {
			row.UnappliedPayments = credit
			reduced := row.Buckets[0].Sub(credit)
			if reduced.IsNegative() {
				reduced = decimal.Zero
			}
			row.Buckets[0] = reduced
		}
		for i, amount := range row.Buckets {
			row.Total = row.Total.Add(amount)
			report.BucketTotals[i] = report.BucketTotals[i].Add(amount)
		}
		report.GrandTotal = report.GrandTotal.Add(row.Total)
		report.Rows = append(report.Rows, *row)
	}
	return report
}

func zeroBuckets(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}

func bucketIndex(buckets []config.AgingBucket, daysOverdue int) int {
	for i, b := range buckets {
		if b.Contains(daysOverdue) {
			return i
		}
	}
	return len(buckets) - 1
}

func (s *Service) TransactionJournal(ctx context.Context, req domain.TransactionJournalRequest) (domain.TransactionJournal, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.TransactionJournal{}, domain.ErrInvalidOrganization
	}
	defer s.observe("transaction_journal", time.Now())

	start, end, err := s.parsePeriod(ctx, orgID, req.StartDate, req.EndDate)
	if err != nil {
		return domain.TransactionJournal{}, err
	}

	window := domain.EntryWindow{From: start, To: end}
	if raw := strings.TrimSpace(req.AccountID); raw != "" {
		accountID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.TransactionJournal{}, domain.ErrInvalidAccount
		}
		window.AccountID = accountID
	}
	if raw := strings.TrimSpace(req.TransactionType); raw != "" {
		txType := ledgerdomain.TransactionType(raw)
		if !txType.Valid() {
			return domain.TransactionJournal{}, domain.ErrInvalidType
		}
		window.TransactionType = txType
	}

	rows, err := s.repo.Entries(ctx, s.db, orgID, window)
	if err != nil {
		return domain.TransactionJournal{}, err
	}

	report := domain.TransactionJournal{
		StartDate:    start,
		EndDate:      end,
		Groups:       []domain.JournalGroup{},
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	for _, row := range rows {
		n := len(report.Groups)
		if n == 0 || report.Groups[n-1].SourceID != row.SourceID {
			report.Groups = append(report.Groups, domain.JournalGroup{
				SourceID:        row.SourceID,
				TransactionType: row.TransactionType,
				TransactionDate: row.TransactionDate,
				Lines:           []domain.JournalLine{},
				TotalDebit:      decimal.Zero,
				TotalCredit:     decimal.Zero,
			})
			n++
		}
		group := &report.Groups[n-1]
		group.Lines = append(group.Lines, domain.JournalLine{
			EntryID:       row.EntryID,
			AccountID:     row.AccountID,
			AccountNumber: row.AccountNumber,
			AccountName:   row.AccountName,
			Description:   row.Description,
			Debit:         row.Debit,
			Credit:        row.Credit,
		})
		group.TotalDebit = group.TotalDebit.Add(row.Debit)
		group.TotalCredit = group.TotalCredit.Add(row.Credit)
		report.TotalDebits = report.TotalDebits.Add(row.Debit)
		report.TotalCredits = report.TotalCredits.Add(row.Credit)
	}
	return report, nil
}

func reportLine(row domain.AccountActivityRow, amount decimal.Decimal) domain.ReportLine {
	return domain.ReportLine{
		AccountID:     row.AccountID,
		AccountNumber: row.AccountNumber,
		Name:          row.Name,
		Amount:        amount,
	}
}

func (s *Service) parsePeriod(ctx context.Context, orgID snowflake.ID, rawStart, rawEnd string) (date.Date, date.Date, error) {
	var start, end date.Date
	var err error
	if raw := strings.TrimSpace(rawStart); raw != "" {
		if start, err = date.Parse(raw); err != nil {
			return date.Date{}, date.Date{}, domain.ErrInvalidDate
		}
	}
	if raw := strings.TrimSpace(rawEnd); raw != "" {
		if end, err = date.Parse(raw); err != nil {
			return date.Date{}, date.Date{}, domain.ErrInvalidDate
		}
	}
	if end.IsZero() {
		end = s.todayFor(ctx, orgID)
	}
	if !start.IsZero() && end.Before(start) {
		return date.Date{}, date.Date{}, domain.ErrInvalidDate
	}
	return start, end, nil
}

func (s *Service) todayFor(ctx context.Context, orgID snowflake.ID) date.Date {
	loc := time.UTC
	if org, err := s.orgs.FindByID(ctx, s.db, orgID); err == nil && org != nil && org.Timezone != "" {
		if parsed, err := time.LoadLocation(org.Timezone); err == nil {
			loc = parsed
		}
	}
	return date.Today(s.clock.Now(), loc)
}

func (s *Service) observe(report string, start time.Time) {
	obsmetrics.Posting().ObserveReportDuration(report, time.Since(start))
}
