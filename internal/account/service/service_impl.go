package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/internal/account/domain"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	journaldomain "github.com/smallbiznis/ledgerly/internal/journal/domain"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Orgs       orgdomain.Repository
	Journals   journaldomain.Repository
	Ledger     ledgerdomain.Service
	LedgerRepo ledgerdomain.Repository
	Sequence   sequencedomain.Service
	Audit      auditdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	orgs       orgdomain.Repository
	journals   journaldomain.Repository
	ledger     ledgerdomain.Service
	ledgerRepo ledgerdomain.Repository
	sequence   sequencedomain.Service
	audit      auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("account.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		orgs:       p.Orgs,
		journals:   p.Journals,
		ledger:     p.Ledger,
		ledgerRepo: p.LedgerRepo,
		sequence:   p.Sequence,
		audit:      p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Account{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Account{}, domain.ErrInvalidName
	}
	accountType := domain.AccountType(strings.TrimSpace(req.Type))
	if !accountType.Valid() {
		return domain.Account{}, domain.ErrInvalidType
	}
	subtype := domain.AccountSubtype(strings.TrimSpace(req.Subtype))
	if !domain.ValidSubtype(accountType, subtype) {
		return domain.Account{}, domain.ErrInvalidSubtype
	}

	var parentID *snowflake.ID
	if raw := strings.TrimSpace(req.ParentID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.Account{}, domain.ErrInvalidParent
		}
		parentID = &parsed
	}

	opening := money.Round2(req.OpeningBalance.Amount)

	now := time.Now().UTC()
	account := domain.Account{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Name:            name,
		Description:     strings.TrimSpace(req.Description),
		Type:            accountType,
		Subtype:         subtype,
		ParentAccountID: parentID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if number := strings.TrimSpace(req.AccountNumber); number != "" {
		account.AccountNumber = &number
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if account.AccountNumber != nil {
			existing, err := s.repo.FindByNumber(ctx, tx, orgID, *account.AccountNumber)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrDuplicateNumber
			}
		}

		if parentID != nil {
			parent, err := s.repo.FindByID(ctx, tx, orgID, *parentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return domain.ErrInvalidParent
			}
			if parent.Type != accountType {
				return domain.ErrParentTypeMismatch
			}
		}

		if err := s.repo.Insert(ctx, tx, &account); err != nil {
			return err
		}

		if !opening.IsZero() {
			return s.postOpeningBalance(ctx, tx, &account, opening)
		}
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	s.audit.Record(ctx, "account.created", "account", account.ID.String(), map[string]any{
		"name": account.Name,
		"type": string(account.Type),
	})
	s.log.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("type", string(account.Type)),
	)
	return account, nil
}

// postOpeningBalance records the opening amount as a real journal entry
// against Owner's Equity so the balance is visible in every report.
func (s *Service) postOpeningBalance(ctx context.Context, tx *gorm.DB, account *domain.Account, amount decimal.Decimal) error {
	equity, err := s.repo.FindSystemBySubtype(ctx, tx, account.OrgID, domain.SubtypeOwnersEquity)
	if err != nil {
		return err
	}
	if equity == nil {
		return domain.ErrMissingEquity
	}

	entryNumber, err := s.sequence.Allocate(ctx, tx, account.OrgID, sequencedomain.ClassJournalEntry)
	if err != nil {
		return err
	}

	org, err := s.orgs.FindByID(ctx, tx, account.OrgID)
	if err != nil {
		return err
	}
	loc := time.UTC
	if org != nil && org.Timezone != "" {
		if parsed, err := time.LoadLocation(org.Timezone); err == nil {
			loc = parsed
		}
	}
	entryDate := date.Today(s.clock.Now(), loc)

	// Asset and expense accounts open on the debit side; a negative opening
	// amount flips the direction.
	debitAccount := !account.Type.CreditNormal()
	if amount.IsNegative() {
		amount = amount.Neg()
		debitAccount = !debitAccount
	}

	now := time.Now().UTC()
	entry := journaldomain.JournalEntry{
		ID:          s.genID.Generate(),
		OrgID:       account.OrgID,
		EntryNumber: entryNumber,
		EntryDate:   entryDate,
		Memo:        "Opening balance for " + account.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	accountLine := journaldomain.JournalEntryLine{
		ID:             s.genID.Generate(),
		OrgID:          account.OrgID,
		JournalEntryID: entry.ID,
		AccountID:      account.ID,
		Description:    "Opening balance",
		Position:       1,
		CreatedAt:      now,
	}
	equityLine := journaldomain.JournalEntryLine{
		ID:             s.genID.Generate(),
		OrgID:          account.OrgID,
		JournalEntryID: entry.ID,
		AccountID:      equity.ID,
		Description:    "Opening balance",
		Position:       2,
		CreatedAt:      now,
	}
	if debitAccount {
		accountLine.Debit = amount
		equityLine.Credit = amount
	} else {
		accountLine.Credit = amount
		equityLine.Debit = amount
	}

	lines := []journaldomain.JournalEntryLine{accountLine, equityLine}
	if err := s.journals.Insert(ctx, tx, &entry, lines); err != nil {
		return err
	}

	postingLines := make([]ledgerdomain.PostingLine, 0, len(lines))
	for i := range lines {
		lineID := lines[i].ID
		postingLines = append(postingLines, ledgerdomain.PostingLine{
			AccountID:    lines[i].AccountID,
			Debit:        lines[i].Debit,
			Credit:       lines[i].Credit,
			Description:  entry.Memo,
			SourceLineID: &lineID,
		})
	}

	_, err = s.ledger.Post(ctx, tx, ledgerdomain.PostingRequest{
		OrgID:           account.OrgID,
		TransactionType: ledgerdomain.TransactionTypeJournalEntry,
		SourceID:        entry.ID,
		TransactionDate: entryDate,
		Lines:           postingLines,
	})
	return err
}

func (s *Service) List(ctx context.Context, req domain.ListAccountRequest) (domain.ListAccountResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListAccountResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{
		OrgID:    orgID,
		IsActive: req.IsActive,
		Search:   req.Search,
	}
	if raw := strings.TrimSpace(req.Type); raw != "" {
		accountType := domain.AccountType(raw)
		if !accountType.Valid() {
			return domain.ListAccountResponse{}, domain.ErrInvalidType
		}
		filter.Type = accountType
	}

	page := req.Pagination.Normalize()
	accounts, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListAccountResponse{}, err
	}

	return domain.ListAccountResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Accounts: accounts,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.AccountDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.AccountDetail{}, domain.ErrInvalidOrganization
	}
	accountID, err := parseID(id)
	if err != nil {
		return domain.AccountDetail{}, domain.ErrNotFound
	}

	account, err := s.repo.FindByID(ctx, s.db, orgID, accountID)
	if err != nil {
		return domain.AccountDetail{}, err
	}
	if account == nil {
		return domain.AccountDetail{}, domain.ErrNotFound
	}

	children, err := s.repo.ListChildren(ctx, s.db, orgID, accountID)
	if err != nil {
		return domain.AccountDetail{}, err
	}

	ids := make([]snowflake.ID, 0, len(children)+1)
	ids = append(ids, accountID)
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	sums, err := s.ledgerRepo.SumByAccount(ctx, s.db, orgID, ledgerdomain.SumFilter{Accounts: ids})
	if err != nil {
		return domain.AccountDetail{}, err
	}
	activity := make(map[snowflake.ID]ledgerdomain.AccountSum, len(sums))
	for _, sum := range sums {
		activity[sum.AccountID] = sum
	}

	currency, err := s.baseCurrency(ctx, orgID)
	if err != nil {
		return domain.AccountDetail{}, err
	}

	detail := domain.AccountDetail{
		Account: *account,
		Balance: money.New(balanceFor(account.Type, activity[accountID]), currency),
	}
	for _, child := range children {
		detail.Children = append(detail.Children, domain.ChildSummary{
			ID:            child.ID,
			Name:          child.Name,
			AccountNumber: child.AccountNumber,
			Balance:       money.New(balanceFor(child.Type, activity[child.ID]), currency),
		})
	}
	return detail, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateAccountRequest) (domain.Account, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Account{}, domain.ErrInvalidOrganization
	}
	accountID, err := parseID(id)
	if err != nil {
		return domain.Account{}, domain.ErrNotFound
	}

	account, err := s.repo.FindByID(ctx, s.db, orgID, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if account == nil {
		return domain.Account{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Account{}, domain.ErrInvalidName
		}
		account.Name = name
	}
	if req.Description != nil {
		account.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		if account.IsSystemAccount && !*req.IsActive {
			return domain.Account{}, domain.ErrSystemAccount
		}
		account.IsActive = *req.IsActive
	}

	account.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, account); err != nil {
		return domain.Account{}, err
	}

	s.audit.Record(ctx, "account.updated", "account", account.ID.String(), map[string]any{
		"name": account.Name,
	})
	return *account, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	accountID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	// The guards and the delete share one transaction with the row locked,
	// so a posting cannot slip in between the ledger check and the delete.
	var name string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrNotFound
		}
		if account.IsSystemAccount {
			return domain.ErrSystemAccount
		}
		name = account.Name

		childCount, err := s.repo.CountChildren(ctx, tx, orgID, accountID)
		if err != nil {
			return err
		}
		if childCount > 0 {
			return domain.ErrHasChildren
		}

		hasEntries, err := s.ledgerRepo.HasEntriesForAccount(ctx, tx, orgID, accountID)
		if err != nil {
			return err
		}
		if hasEntries {
			return domain.ErrHasLedgerEntries
		}

		return s.repo.Delete(ctx, tx, orgID, accountID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "account.deleted", "account", accountID.String(), map[string]any{
		"name": name,
	})
	return nil
}

func (s *Service) Transactions(ctx context.Context, id string, req domain.ListTransactionsRequest) (domain.ListTransactionsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidOrganization
	}
	accountID, err := parseID(id)
	if err != nil {
		return domain.ListTransactionsResponse{}, domain.ErrNotFound
	}

	account, err := s.repo.FindByID(ctx, s.db, orgID, accountID)
	if err != nil {
		return domain.ListTransactionsResponse{}, err
	}
	if account == nil {
		return domain.ListTransactionsResponse{}, domain.ErrNotFound
	}

	var filter ledgerdomain.EntryFilter
	if raw := strings.TrimSpace(req.StartDate); raw != "" {
		from, err := date.Parse(raw)
		if err != nil {
			return domain.ListTransactionsResponse{}, domain.ErrInvalidDateRange
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(req.EndDate); raw != "" {
		to, err := date.Parse(raw)
		if err != nil {
			return domain.ListTransactionsResponse{}, domain.ErrInvalidDateRange
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidDateRange
	}
	if raw := strings.TrimSpace(req.Type); raw != "" {
		txType := ledgerdomain.TransactionType(raw)
		if !txType.Valid() {
			return domain.ListTransactionsResponse{}, domain.ErrInvalidDateRange
		}
		filter.TransactionType = &txType
	}

	page := req.Pagination.Normalize()
	entries, total, err := s.ledgerRepo.ListByAccount(ctx, s.db, orgID, accountID, filter, page)
	if err != nil {
		return domain.ListTransactionsResponse{}, err
	}

	currency, err := s.baseCurrency(ctx, orgID)
	if err != nil {
		return domain.ListTransactionsResponse{}, err
	}

	rows := make([]domain.TransactionRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, domain.TransactionRow{
			ID:              entry.ID,
			TransactionDate: entry.TransactionDate.String(),
			TransactionType: entry.TransactionType,
			SourceID:        entry.SourceID,
			Description:     entry.Description,
			Debit:           money.New(entry.Debit, currency),
			Credit:          money.New(entry.Credit, currency),
		})
	}

	return domain.ListTransactionsResponse{
		PageInfo:     pagination.BuildPageInfo(total, page),
		Transactions: rows,
	}, nil
}

func (s *Service) ProvisionDefaults(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	count, err := s.repo.CountByOrg(ctx, tx, orgID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, row := range domain.DefaultChart() {
		number := row.Number
		account := domain.Account{
			ID:              s.genID.Generate(),
			OrgID:           orgID,
			AccountNumber:   &number,
			Name:            row.Name,
			Type:            row.Type,
			Subtype:         row.Subtype,
			IsSystemAccount: row.System,
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.Insert(ctx, tx, &account); err != nil {
			return err
		}
	}

	s.log.Info("default chart provisioned", zap.String("org_id", orgID.String()))
	return nil
}

func (s *Service) baseCurrency(ctx context.Context, orgID snowflake.ID) (string, error) {
	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil {
		return "", err
	}
	if org == nil {
		return "", domain.ErrInvalidOrganization
	}
	return org.BaseCurrency, nil
}

func balanceFor(t domain.AccountType, sum ledgerdomain.AccountSum) decimal.Decimal {
	return domain.SignedBalance(t, sum.Debit, sum.Credit)
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
