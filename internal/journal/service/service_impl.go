package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/journal/domain"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
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

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
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
	accounts accountdomain.Repository
	orgs     orgdomain.Repository
	ledger   ledgerdomain.Service
	sequence sequencedomain.Service
	audit    auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("journal.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		accounts: p.Accounts,
		orgs:     p.Orgs,
		ledger:   p.Ledger,
		sequence: p.Sequence,
		audit:    p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateJournalEntryRequest) (domain.JournalEntryDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.JournalEntryDetail{}, domain.ErrInvalidOrganization
	}
	if len(req.Lines) < 2 {
		return domain.JournalEntryDetail{}, domain.ErrTooFewLines
	}

	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil {
		return domain.JournalEntryDetail{}, err
	}
	if org == nil {
		return domain.JournalEntryDetail{}, domain.ErrInvalidOrganization
	}

	entryDate := req.EntryDate
	if entryDate.IsZero() {
		entryDate = s.today(org)
	}

	now := time.Now().UTC()
	entry := domain.JournalEntry{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		EntryDate: entryDate,
		Memo:      strings.TrimSpace(req.Memo),
		CreatedAt: now,
		UpdatedAt: now,
	}

	lines, err := s.buildLines(orgID, &entry, req.Lines)
	if err != nil {
		return domain.JournalEntryDetail{}, err
	}

	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			account, err := s.accounts.FindByID(ctx, tx, orgID, line.AccountID)
			if err != nil {
				return err
			}
			if account == nil || !account.IsActive {
				return domain.ErrInvalidAccount
			}
		}

		entry.EntryNumber, err = s.sequence.Allocate(ctx, tx, orgID, sequencedomain.ClassJournalEntry)
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, &entry, lines); err != nil {
			return err
		}
		return s.post(ctx, tx, &entry, lines)
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeJournalEntry), err)
		return domain.JournalEntryDetail{}, err
	}
	obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeJournalEntry), time.Since(start))

	s.audit.Record(ctx, "journal_entry.created", "journal_entry", entry.ID.String(), map[string]any{
		"entry_number": entry.EntryNumber,
		"line_count":   len(lines),
	})
	s.log.Info("journal entry created",
		zap.String("journal_entry_id", entry.ID.String()),
		zap.String("entry_number", entry.EntryNumber),
	)
	return domain.JournalEntryDetail{JournalEntry: entry, Lines: lines}, nil
}

// buildLines validates the one-positive-side rule per line and the overall
// balance before anything touches the database.
func (s *Service) buildLines(orgID snowflake.ID, entry *domain.JournalEntry, reqs []domain.JournalLineRequest) ([]domain.JournalEntryLine, error) {
	lines := make([]domain.JournalEntryLine, 0, len(reqs))
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero

	for i, req := range reqs {
		accountID, err := parseID(req.AccountID)
		if err != nil {
			return nil, domain.ErrInvalidAccount
		}
		debit := money.Round2(req.Debit.Amount)
		credit := money.Round2(req.Credit.Amount)
		if debit.IsNegative() || credit.IsNegative() {
			return nil, domain.ErrInvalidSide
		}
		if debit.IsPositive() == credit.IsPositive() {
			return nil, domain.ErrInvalidSide
		}
		totalDebit = totalDebit.Add(debit)
		totalCredit = totalCredit.Add(credit)

		lines = append(lines, domain.JournalEntryLine{
			ID:             s.genID.Generate(),
			OrgID:          orgID,
			JournalEntryID: entry.ID,
			AccountID:      accountID,
			Description:    strings.TrimSpace(req.Description),
			Debit:          debit,
			Credit:         credit,
			Position:       i,
			CreatedAt:      entry.CreatedAt,
		})
	}

	if totalDebit.Sub(totalCredit).Abs().GreaterThan(ledgerdomain.BalanceTolerance) {
		return nil, domain.ErrUnbalanced
	}
	return lines, nil
}

func (s *Service) post(ctx context.Context, tx *gorm.DB, entry *domain.JournalEntry, lines []domain.JournalEntryLine) error {
	postingLines := make([]ledgerdomain.PostingLine, 0, len(lines))
	for i := range lines {
		line := lines[i]
		description := line.Description
		if description == "" {
			description = "Journal entry " + entry.EntryNumber
		}
		postingLines = append(postingLines, ledgerdomain.PostingLine{
			AccountID:    line.AccountID,
			Debit:        line.Debit,
			Credit:       line.Credit,
			Description:  description,
			SourceLineID: &line.ID,
		})
	}
	_, err := s.ledger.Post(ctx, tx, ledgerdomain.PostingRequest{
		OrgID:           entry.OrgID,
		TransactionType: ledgerdomain.TransactionTypeJournalEntry,
		SourceID:        entry.ID,
		TransactionDate: entry.EntryDate,
		Lines:           postingLines,
	})
	return err
}

func (s *Service) List(ctx context.Context, req domain.ListJournalEntryRequest) (domain.ListJournalEntryResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListJournalEntryResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{Search: req.Search}
	var err error
	if filter.From, filter.To, err = parseDateRange(req.StartDate, req.EndDate); err != nil {
		return domain.ListJournalEntryResponse{}, err
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return domain.ListJournalEntryResponse{}, err
	}

	entries := make([]domain.JournalEntry, 0, len(items))
	for _, item := range items {
		if item != nil {
			entries = append(entries, *item)
		}
	}
	return domain.ListJournalEntryResponse{
		PageInfo:       pagination.BuildPageInfo(total, page),
		JournalEntries: entries,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.JournalEntryDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.JournalEntryDetail{}, domain.ErrInvalidOrganization
	}
	entryID, err := parseID(id)
	if err != nil {
		return domain.JournalEntryDetail{}, domain.ErrNotFound
	}

	entry, err := s.repo.FindByID(ctx, s.db, orgID, entryID)
	if err != nil {
		return domain.JournalEntryDetail{}, err
	}
	if entry == nil {
		return domain.JournalEntryDetail{}, domain.ErrNotFound
	}
	lines, err := s.repo.LinesFor(ctx, s.db, orgID, entryID)
	if err != nil {
		return domain.JournalEntryDetail{}, err
	}
	return domain.JournalEntryDetail{JournalEntry: *entry, Lines: lines}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateJournalEntryRequest) (domain.JournalEntryDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.JournalEntryDetail{}, domain.ErrInvalidOrganization
	}
	entryID, err := parseID(id)
	if err != nil {
		return domain.JournalEntryDetail{}, domain.ErrNotFound
	}

	var entry *domain.JournalEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err = s.repo.FindByID(ctx, tx, orgID, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ErrNotFound
		}
		if entry.IsVoided {
			return domain.ErrAlreadyVoided
		}
		if req.Memo != nil {
			entry.Memo = strings.TrimSpace(*req.Memo)
		}
		entry.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, tx, entry)
	})
	if err != nil {
		return domain.JournalEntryDetail{}, err
	}

	lines, err := s.repo.LinesFor(ctx, s.db, orgID, entryID)
	if err != nil {
		return domain.JournalEntryDetail{}, err
	}
	s.audit.Record(ctx, "journal_entry.updated", "journal_entry", entryID.String(), map[string]any{
		"entry_number": entry.EntryNumber,
	})
	return domain.JournalEntryDetail{JournalEntry: *entry, Lines: lines}, nil
}

func (s *Service) Void(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	entryID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	var number string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.repo.FindByID(ctx, tx, orgID, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ErrNotFound
		}
		if entry.IsVoided {
			return domain.ErrAlreadyVoided
		}
		number = entry.EntryNumber

		reversalDate := s.todayFor(ctx, orgID)
		if _, err := s.ledger.ReverseSource(ctx, tx, orgID, ledgerdomain.TransactionTypeJournalEntry, entryID, reversalDate); err != nil {
			return err
		}

		now := time.Now().UTC()
		entry.IsVoided = true
		entry.VoidedAt = &now
		entry.UpdatedAt = now
		return s.repo.Update(ctx, tx, entry)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "journal_entry.voided", "journal_entry", entryID.String(), map[string]any{
		"entry_number": number,
	})
	s.log.Info("journal entry voided", zap.String("journal_entry_id", entryID.String()))
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
