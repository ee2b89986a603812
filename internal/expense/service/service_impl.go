package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/expense/domain"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	vendordomain "github.com/smallbiznis/ledgerly/internal/vendors/domain"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Vendors  vendordomain.Repository
	Accounts accountdomain.Repository
	Orgs     orgdomain.Repository
	Ledger   ledgerdomain.Service
	Sequence sequencedomain.Service
	Audit    auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	vendors  vendordomain.Repository
	accounts accountdomain.Repository
	orgs     orgdomain.Repository
	ledger   ledgerdomain.Service
	sequence sequencedomain.Service
	audit    auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("expense.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		vendors:  p.Vendors,
		accounts: p.Accounts,
		orgs:     p.Orgs,
		ledger:   p.Ledger,
		sequence: p.Sequence,
		audit:    p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateExpenseRequest) (domain.Expense, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Expense{}, domain.ErrInvalidOrganization
	}

	accountID, err := parseID(req.AccountID)
	if err != nil {
		return domain.Expense{}, domain.ErrInvalidAccount
	}
	amount := money.Round2(req.Amount.Amount)
	if !amount.IsPositive() {
		return domain.Expense{}, domain.ErrInvalidAmount
	}

	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil {
		return domain.Expense{}, err
	}
	if org == nil {
		return domain.Expense{}, domain.ErrInvalidOrganization
	}

	expenseDate := req.ExpenseDate
	if expenseDate.IsZero() {
		expenseDate = s.today(org)
	}

	var paymentAccountID *snowflake.ID
	if raw := strings.TrimSpace(req.PaymentAccountID); raw != "" {
		parsed, err := parseID(raw)
		if err != nil {
			return domain.Expense{}, domain.ErrInvalidAccount
		}
		paymentAccountID = &parsed
	}
	var vendorID *snowflake.ID
	if raw := strings.TrimSpace(req.VendorID); raw != "" {
		parsed, err := parseID(raw)
		if err != nil {
			return domain.Expense{}, domain.ErrInvalidVendor
		}
		vendorID = &parsed
	}

	now := time.Now().UTC()
	expense := domain.Expense{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		AccountID:        accountID,
		PaymentAccountID: paymentAccountID,
		VendorID:         vendorID,
		ExpenseDate:      expenseDate,
		Amount:           amount,
		Currency:         org.BaseCurrency,
		Memo:             strings.TrimSpace(req.Memo),
		Reference:        strings.TrimSpace(req.Reference),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkAccount(ctx, tx, orgID, accountID, accountdomain.AccountTypeExpense); err != nil {
			return err
		}
		if paymentAccountID != nil {
			if err := s.checkAccount(ctx, tx, orgID, *paymentAccountID, accountdomain.AccountTypeAsset); err != nil {
				return err
			}
		}
		if vendorID != nil {
			vendor, err := s.vendors.FindByID(ctx, tx, orgID, *vendorID)
			if err != nil {
				return err
			}
			if vendor == nil {
				return domain.ErrInvalidVendor
			}
		}

		expense.ExpenseNumber, err = s.sequence.Allocate(ctx, tx, orgID, sequencedomain.ClassExpense)
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, &expense); err != nil {
			return err
		}

		if expense.Posted() {
			return s.post(ctx, tx, &expense)
		}
		return nil
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeExpense), err)
		return domain.Expense{}, err
	}
	if expense.Posted() {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeExpense), time.Since(start))
	}

	s.audit.Record(ctx, "expense.created", "expense", expense.ID.String(), map[string]any{
		"expense_number": expense.ExpenseNumber,
		"amount":         expense.Amount.String(),
		"posted":         expense.Posted(),
	})
	s.log.Info("expense created",
		zap.String("expense_id", expense.ID.String()),
		zap.String("expense_number", expense.ExpenseNumber),
	)
	return expense, nil
}

func (s *Service) List(ctx context.Context, req domain.ListExpenseRequest) (domain.ListExpenseResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListExpenseResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{OrgID: orgID, Search: req.Search}
	if raw := strings.TrimSpace(req.AccountID); raw != "" {
		accountID, err := parseID(raw)
		if err != nil {
			return domain.ListExpenseResponse{}, domain.ErrInvalidAccount
		}
		filter.AccountID = accountID
	}
	if raw := strings.TrimSpace(req.VendorID); raw != "" {
		vendorID, err := parseID(raw)
		if err != nil {
			return domain.ListExpenseResponse{}, domain.ErrInvalidVendor
		}
		filter.VendorID = vendorID
	}
	var err error
	if filter.From, filter.To, err = parseDateRange(req.StartDate, req.EndDate); err != nil {
		return domain.ListExpenseResponse{}, err
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListExpenseResponse{}, err
	}

	expenses := make([]domain.Expense, 0, len(items))
	for _, item := range items {
		if item != nil {
			expenses = append(expenses, *item)
		}
	}
	return domain.ListExpenseResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Expenses: expenses,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Expense, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Expense{}, domain.ErrInvalidOrganization
	}
	expenseID, err := parseID(id)
	if err != nil {
		return domain.Expense{}, domain.ErrNotFound
	}

	expense, err := s.repo.FindByID(ctx, s.db, orgID, expenseID)
	if err != nil {
		return domain.Expense{}, err
	}
	if expense == nil {
		return domain.Expense{}, domain.ErrNotFound
	}
	return *expense, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateExpenseRequest) (domain.Expense, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Expense{}, domain.ErrInvalidOrganization
	}
	expenseID, err := parseID(id)
	if err != nil {
		return domain.Expense{}, domain.ErrNotFound
	}

	var expense *domain.Expense
	posted := false
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense, err = s.repo.FindByID(ctx, tx, orgID, expenseID)
		if err != nil {
			return err
		}
		if expense == nil {
			return domain.ErrNotFound
		}
		if expense.IsVoided {
			return domain.ErrAlreadyVoided
		}

		if expense.Posted() {
			if err := updatePosted(expense, req); err != nil {
				return err
			}
			return s.repo.Update(ctx, tx, expense)
		}

		if req.AccountID != nil {
			accountID, err := parseID(*req.AccountID)
			if err != nil {
				return domain.ErrInvalidAccount
			}
			if err := s.checkAccount(ctx, tx, orgID, accountID, accountdomain.AccountTypeExpense); err != nil {
				return err
			}
			expense.AccountID = accountID
		}
		if req.VendorID != nil {
			if raw := strings.TrimSpace(*req.VendorID); raw == "" {
				expense.VendorID = nil
			} else {
				vendorID, err := parseID(raw)
				if err != nil {
					return domain.ErrInvalidVendor
				}
				vendor, err := s.vendors.FindByID(ctx, tx, orgID, vendorID)
				if err != nil {
					return err
				}
				if vendor == nil {
					return domain.ErrInvalidVendor
				}
				expense.VendorID = &vendorID
			}
		}
		if req.ExpenseDate != nil && !req.ExpenseDate.IsZero() {
			expense.ExpenseDate = *req.ExpenseDate
		}
		if req.Amount != nil {
			amount := money.Round2(req.Amount.Amount)
			if !amount.IsPositive() {
				return domain.ErrInvalidAmount
			}
			expense.Amount = amount
		}
		if req.Memo != nil {
			expense.Memo = strings.TrimSpace(*req.Memo)
		}
		if req.Reference != nil {
			expense.Reference = strings.TrimSpace(*req.Reference)
		}

		// Setting a payment account is the posting trigger.
		if req.PaymentAccountID != nil {
			if raw := strings.TrimSpace(*req.PaymentAccountID); raw != "" {
				paymentAccountID, err := parseID(raw)
				if err != nil {
					return domain.ErrInvalidAccount
				}
				if err := s.checkAccount(ctx, tx, orgID, paymentAccountID, accountdomain.AccountTypeAsset); err != nil {
					return err
				}
				expense.PaymentAccountID = &paymentAccountID
				posted = true
			}
		}

		expense.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, expense); err != nil {
			return err
		}
		if posted {
			return s.post(ctx, tx, expense)
		}
		return nil
	})
	if err != nil {
		if posted {
			obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeExpense), err)
		}
		return domain.Expense{}, err
	}
	if posted {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeExpense), time.Since(start))
	}

	s.audit.Record(ctx, "expense.updated", "expense", expenseID.String(), map[string]any{
		"expense_number": expense.ExpenseNumber,
	})
	return *expense, nil
}

// updatePosted narrows a post-posting update to the fields that cannot
// invalidate the ledger.
func updatePosted(expense *domain.Expense, req domain.UpdateExpenseRequest) error {
	if req.AccountID != nil || req.PaymentAccountID != nil || req.VendorID != nil ||
		req.ExpenseDate != nil || req.Amount != nil {
		return domain.ErrPostedImmutable
	}
	if req.Memo != nil {
		expense.Memo = strings.TrimSpace(*req.Memo)
	}
	if req.Reference != nil {
		expense.Reference = strings.TrimSpace(*req.Reference)
	}
	expense.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	expenseID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	var number string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense, err := s.repo.FindByID(ctx, tx, orgID, expenseID)
		if err != nil {
			return err
		}
		if expense == nil {
			return domain.ErrNotFound
		}
		if expense.Posted() {
			return domain.ErrPostedDelete
		}
		number = expense.ExpenseNumber
		return s.repo.Delete(ctx, tx, orgID, expenseID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "expense.deleted", "expense", expenseID.String(), map[string]any{
		"expense_number": number,
	})
	return nil
}

func (s *Service) Void(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	expenseID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	var number string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense, err := s.repo.FindByID(ctx, tx, orgID, expenseID)
		if err != nil {
			return err
		}
		if expense == nil {
			return domain.ErrNotFound
		}
		if expense.IsVoided {
			return domain.ErrAlreadyVoided
		}
		number = expense.ExpenseNumber

		if expense.Posted() {
			reversalDate := s.todayFor(ctx, orgID)
			if _, err := s.ledger.ReverseSource(ctx, tx, orgID, ledgerdomain.TransactionTypeExpense, expenseID, reversalDate); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		expense.IsVoided = true
		expense.VoidedAt = &now
		expense.UpdatedAt = now
		return s.repo.Update(ctx, tx, expense)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "expense.voided", "expense", expenseID.String(), map[string]any{
		"expense_number": number,
	})
	s.log.Info("expense voided", zap.String("expense_id", expenseID.String()))
	return nil
}

// post writes the expense's ledger entries: the expense account is debited
// and the payment account credited. Unposted expenses carry no entries.
func (s *Service) post(ctx context.Context, tx *gorm.DB, expense *domain.Expense) error {
	description := "Expense " + expense.ExpenseNumber
	_, err := s.ledger.Post(ctx, tx, ledgerdomain.PostingRequest{
		OrgID:           expense.OrgID,
		TransactionType: ledgerdomain.TransactionTypeExpense,
		SourceID:        expense.ID,
		TransactionDate: expense.ExpenseDate,
		Lines: []ledgerdomain.PostingLine{
			{
				AccountID:   expense.AccountID,
				Debit:       expense.Amount,
				Description: description,
				VendorID:    expense.VendorID,
			},
			{
				AccountID:   *expense.PaymentAccountID,
				Credit:      expense.Amount,
				Description: description,
				VendorID:    expense.VendorID,
			},
		},
	})
	return err
}

func (s *Service) checkAccount(ctx context.Context, tx *gorm.DB, orgID, accountID snowflake.ID, wantType accountdomain.AccountType) error {
	account, err := s.accounts.FindByID(ctx, tx, orgID, accountID)
	if err != nil {
		return err
	}
	if account == nil || !account.IsActive || account.Type != wantType {
		return domain.ErrInvalidAccount
	}
	return nil
}

func (s *Service) today(org *orgdomain.Organization) date.Date {
	loc := time.UTC
	if org != nil && org.Timezone != "" {
		if parsed, err := time.LoadLocation(org.Timezone); err == nil {
			loc = parsed
		}
	}
	return date.Today(s.clock.Now(), loc)
}

func (s *Service) todayFor(ctx context.Context, orgID snowflake.ID) date.Date {
	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil || org == nil {
		return date.FromTime(s.clock.Now())
	}
	return s.today(org)
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func parseDateRange(start, end string) (date.Date, date.Date, error) {
	var from, to date.Date
	var err error
	if raw := strings.TrimSpace(start); raw != "" {
		if from, err = date.Parse(raw); err != nil {
			return date.Date{}, date.Date{}, domain.ErrInvalidDate
		}
	}
	if raw := strings.TrimSpace(end); raw != "" {
		if to, err = date.Parse(raw); err != nil {
			return date.Date{}, date.Date{}, domain.ErrInvalidDate
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return date.Date{}, date.Date{}, domain.ErrInvalidDate
	}
	return from, to, nil
}
