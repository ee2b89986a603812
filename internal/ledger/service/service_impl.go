package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       ledgerdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	repo       ledgerdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Post(ctx context.Context, tx *gorm.DB, req ledgerdomain.PostingRequest) ([]ledgerdomain.LedgerEntry, error) {
	if req.OrgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if !req.TransactionType.Valid() {
		return nil, ledgerdomain.ErrInvalidSourceType
	}
	if req.SourceID == 0 {
		return nil, ledgerdomain.ErrInvalidSourceID
	}
	if req.TransactionDate.IsZero() {
		return nil, ledgerdomain.ErrInvalidDate
	}

	lines := make([]ledgerdomain.PostingLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		line.Debit = money.Round2(line.Debit)
		line.Credit = money.Round2(line.Credit)
		lines = append(lines, line)
	}

	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		return nil, err
	}
	if err := s.verifyAccounts(ctx, tx, req.OrgID, lines); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entries := make([]ledgerdomain.LedgerEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, ledgerdomain.LedgerEntry{
			ID:              s.genID.Generate(),
			OrgID:           req.OrgID,
			AccountID:       line.AccountID,
			TransactionDate: req.TransactionDate,
			TransactionType: req.TransactionType,
			SourceID:        req.SourceID,
			SourceLineID:    line.SourceLineID,
			Description:     line.Description,
			Debit:           line.Debit,
			Credit:          line.Credit,
			CustomerID:      line.CustomerID,
			VendorID:        line.VendorID,
			IsPosted:        true,
			CreatedAt:       now,
		})
	}

	if err := s.repo.InsertEntries(ctx, tx, entries); err != nil {
		return nil, err
	}

	for range entries {
		s.obsMetrics.RecordLedgerEntry(ctx, string(req.TransactionType))
	}
	s.log.Debug("posted ledger entries",
		zap.String("transaction_type", string(req.TransactionType)),
		zap.String("source_id", req.SourceID.String()),
		zap.Int("lines", len(entries)),
	)

	return entries, nil
}

func (s *Service) ReverseSource(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, txType ledgerdomain.TransactionType, sourceID snowflake.ID, reversalDate date.Date) ([]ledgerdomain.LedgerEntry, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if sourceID == 0 {
		return nil, ledgerdomain.ErrInvalidSourceID
	}

	originals, err := s.repo.FindBySource(ctx, tx, orgID, txType, sourceID)
	if err != nil {
		return nil, err
	}
	if len(originals) == 0 {
		return nil, ledgerdomain.ErrNothingToReverse
	}

	lines := make([]ledgerdomain.PostingLine, 0, len(originals))
	for _, entry := range originals {
		lines = append(lines, ledgerdomain.PostingLine{
			AccountID:    entry.AccountID,
			Debit:        entry.Credit,
			Credit:       entry.Debit,
			Description:  "Void: " + entry.Description,
			SourceLineID: entry.SourceLineID,
			CustomerID:   entry.CustomerID,
			VendorID:     entry.VendorID,
		})
	}

	return s.Post(ctx, tx, ledgerdomain.PostingRequest{
		OrgID:           orgID,
		TransactionType: txType,
		SourceID:        sourceID,
		TransactionDate: reversalDate,
		Lines:           lines,
	})
}

func (s *Service) verifyAccounts(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, lines []ledgerdomain.PostingLine) error {
	seen := make(map[snowflake.ID]struct{}, len(lines))
	ids := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}

	count, err := s.repo.CountAccountsInOrg(ctx, tx, orgID, ids)
	if err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return ledgerdomain.ErrUnknownAccount
	}
	return nil
}
