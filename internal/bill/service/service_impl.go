package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/bill/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	taxdomain "github.com/smallbiznis/ledgerly/internal/tax/domain"
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
	TaxRates taxdomain.Repository
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
	taxRates taxdomain.Repository
	orgs     orgdomain.Repository
	ledger   ledgerdomain.Service
	sequence sequencedomain.Service
	audit    auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("bill.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		vendors:  p.Vendors,
		accounts: p.Accounts,
		taxRates: p.TaxRates,
		orgs:     p.Orgs,
		ledger:   p.Ledger,
		sequence: p.Sequence,
		audit:    p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBillRequest) (domain.BillDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.BillDetail{}, domain.ErrInvalidOrganization
	}

	vendorID, err := parseID(req.VendorID)
	if err != nil {
		return domain.BillDetail{}, domain.ErrInvalidVendor
	}

	// Bills default to open: entering a received bill usually means the
	// liability already exists.
	status := domain.BillStatusOpen
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.BillStatus(raw)
		if status != domain.BillStatusDraft && status != domain.BillStatusOpen {
			return domain.BillDetail{}, domain.ErrInvalidStatus
		}
	}

	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil {
		return domain.BillDetail{}, err
	}
	if org == nil {
		return domain.BillDetail{}, domain.ErrInvalidOrganization
	}

	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = s.today(org)
	}
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = issueDate.AddDays(30)
	}
	if dueDate.Before(issueDate) {
		return domain.BillDetail{}, domain.ErrInvalidDate
	}

	var apAccountID *snowflake.ID
	if raw := strings.TrimSpace(req.APAccountID); raw != "" {
		parsed, err := parseID(raw)
		if err != nil {
			return domain.BillDetail{}, domain.ErrInvalidAccount
		}
		apAccountID = &parsed
	}

	discount := money.Round2(req.DiscountAmount.Amount)
	if discount.IsNegative() {
		return domain.BillDetail{}, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	bill := domain.Bill{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		VendorID:       vendorID,
		Status:         status,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Currency:       org.BaseCurrency,
		DiscountAmount: discount,
		APAccountID:    apAccountID,
		Memo:           strings.TrimSpace(req.Memo),
		Reference:      strings.TrimSpace(req.Reference),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var lines []domain.BillLineItem
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vendor, err := s.vendors.FindByID(ctx, tx, orgID, vendorID)
		if err != nil {
			return err
		}
		if vendor == nil {
			return domain.ErrInvalidVendor
		}

		if apAccountID != nil {
			if err := s.checkAccount(ctx, tx, orgID, *apAccountID, accountdomain.AccountTypeLiability); err != nil {
				return err
			}
		}

		lines, err = s.buildLines(ctx, tx, orgID, bill.ID, req.LineItems)
		if err != nil {
			return err
		}
		applyTotals(&bill, lines)

		bill.BillNumber, err = s.sequence.Allocate(ctx, tx, orgID, sequencedomain.ClassBill)
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, &bill, lines); err != nil {
			return err
		}

		if bill.Posted() {
			return s.post(ctx, tx, &bill, lines)
		}
		return nil
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeBill), err)
		return domain.BillDetail{}, err
	}
	if bill.Posted() {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeBill), time.Since(start))
		obsmetrics.Posting().IncDocumentTransition("bill", string(domain.BillStatusDraft), string(domain.BillStatusOpen))
	}

	s.audit.Record(ctx, "bill.created", "bill", bill.ID.String(), map[string]any{
		"bill_number": bill.BillNumber,
		"status":      string(bill.Status),
		"total":       bill.Total.String(),
	})
	s.log.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("status", string(bill.Status)),
	)
	return domain.BillDetail{Bill: bill, LineItems: lines}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBillRequest) (domain.ListBillResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListBillResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{OrgID: orgID, Search: req.Search}
	if raw := strings.TrimSpace(req.VendorID); raw != "" {
		vendorID, err := parseID(raw)
		if err != nil {
			return domain.ListBillResponse{}, domain.ErrInvalidVendor
		}
		filter.VendorID = vendorID
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := domain.BillStatus(raw)
		switch status {
		case domain.BillStatusDraft, domain.BillStatusOpen, domain.BillStatusPartial,
			domain.BillStatusPaid, domain.BillStatusVoided:
			filter.Statuses = []domain.BillStatus{status}
		default:
			return domain.ListBillResponse{}, domain.ErrInvalidStatus
		}
	}
	var err error
	if filter.IssuedFrom, filter.IssuedTo, err = parseDateRange(req.StartDate, req.EndDate); err != nil {
		return domain.ListBillResponse{}, err
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListBillResponse{}, err
	}

	bills := make([]domain.Bill, 0, len(items))
	for _, item := range items {
		if item != nil {
			bills = append(bills, *item)
		}
	}
	return domain.ListBillResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Bills:    bills,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.BillDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.BillDetail{}, domain.ErrInvalidOrganization
	}
	billID, err := parseID(id)
	if err != nil {
		return domain.BillDetail{}, domain.ErrNotFound
	}

	bill, err := s.repo.FindByID(ctx, s.db, orgID, billID)
	if err != nil {
		return domain.BillDetail{}, err
	}
	if bill == nil {
		return domain.BillDetail{}, domain.ErrNotFound
	}
	lines, err := s.repo.LinesFor(ctx, s.db, orgID, billID)
	if err != nil {
		return domain.BillDetail{}, err
	}
	return domain.BillDetail{Bill: *bill, LineItems: lines}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateBillRequest) (domain.BillDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.BillDetail{}, domain.ErrInvalidOrganization
	}
	billID, err := parseID(id)
	if err != nil {
		return domain.BillDetail{}, domain.ErrNotFound
	}

	var bill *domain.Bill
	var lines []domain.BillLineItem
	opened := false
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, billID)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrNotFound
		}
		if bill.Status == domain.BillStatusVoided {
			return domain.ErrVoided
		}

		if bill.Status != domain.BillStatusDraft {
			if err := updatePosted(bill, req); err != nil {
				return err
			}
			return s.repo.Update(ctx, tx, bill)
		}

		if req.VendorID != nil {
			vendorID, err := parseID(*req.VendorID)
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
			bill.VendorID = vendorID
		}
		if req.IssueDate != nil && !req.IssueDate.IsZero() {
			bill.IssueDate = *req.IssueDate
		}
		if req.DueDate != nil && !req.DueDate.IsZero() {
			bill.DueDate = *req.DueDate
		}
		if bill.DueDate.Before(bill.IssueDate) {
			return domain.ErrInvalidDate
		}
		if req.APAccountID != nil {
			if raw := strings.TrimSpace(*req.APAccountID); raw == "" {
				bill.APAccountID = nil
			} else {
				parsed, err := parseID(raw)
				if err != nil {
					return domain.ErrInvalidAccount
				}
				if err := s.checkAccount(ctx, tx, orgID, parsed, accountdomain.AccountTypeLiability); err != nil {
					return err
				}
				bill.APAccountID = &parsed
			}
		}
		if req.DiscountAmount != nil {
			bill.DiscountAmount = money.Round2(req.DiscountAmount.Amount)
			if bill.DiscountAmount.IsNegative() {
				return domain.ErrInvalidAmount
			}
		}
		if req.Memo != nil {
			bill.Memo = strings.TrimSpace(*req.Memo)
		}
		if req.Reference != nil {
			bill.Reference = strings.TrimSpace(*req.Reference)
		}

		if req.LineItems != nil {
			lines, err = s.buildLines(ctx, tx, orgID, bill.ID, req.LineItems)
			if err != nil {
				return err
			}
			if err := s.repo.ReplaceLines(ctx, tx, orgID, bill.ID, lines); err != nil {
				return err
			}
		} else {
			lines, err = s.repo.LinesFor(ctx, tx, orgID, bill.ID)
			if err != nil {
				return err
			}
		}
		applyTotals(bill, lines)

		if req.Status != nil {
			next := domain.BillStatus(strings.TrimSpace(*req.Status))
			switch next {
			case domain.BillStatusDraft:
			case domain.BillStatusOpen:
				if len(lines) == 0 {
					return domain.ErrNoLineItems
				}
				bill.Status = domain.BillStatusOpen
				opened = true
			default:
				return domain.ErrInvalidStatus
			}
		}

		bill.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, bill); err != nil {
			return err
		}
		if opened {
			return s.post(ctx, tx, bill, lines)
		}
		return nil
	})
	if err != nil {
		if opened {
			obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeBill), err)
		}
		return domain.BillDetail{}, err
	}
	if opened {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeBill), time.Since(start))
		obsmetrics.Posting().IncDocumentTransition("bill", string(domain.BillStatusDraft), string(domain.BillStatusOpen))
	}

	if lines == nil {
		lines, err = s.repo.LinesFor(ctx, s.db, orgID, billID)
		if err != nil {
			return domain.BillDetail{}, err
		}
	}
	s.audit.Record(ctx, "bill.updated", "bill", bill.ID.String(), map[string]any{
		"bill_number": bill.BillNumber,
	})
	return domain.BillDetail{Bill: *bill, LineItems: lines}, nil
}

// updatePosted narrows a post-open update to the fields that cannot
// invalidate the ledger.
func updatePosted(bill *domain.Bill, req domain.UpdateBillRequest) error {
	if req.VendorID != nil || req.IssueDate != nil || req.APAccountID != nil ||
		req.DiscountAmount != nil || req.LineItems != nil || req.Status != nil {
		return domain.ErrPostedImmutable
	}
	if req.DueDate != nil && !req.DueDate.IsZero() {
		if req.DueDate.Before(bill.IssueDate) {
			return domain.ErrInvalidDate
		}
		bill.DueDate = *req.DueDate
	}
	if req.Memo != nil {
		bill.Memo = strings.TrimSpace(*req.Memo)
	}
	if req.Reference != nil {
		bill.Reference = strings.TrimSpace(*req.Reference)
	}
	bill.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	billID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	var number string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, billID)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrNotFound
		}
		if bill.AmountPaid.IsPositive() {
			return domain.ErrHasPayments
		}
		if bill.Posted() {
			return domain.ErrPostedImmutable
		}
		number = bill.BillNumber
		return s.repo.Delete(ctx, tx, orgID, billID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "bill.deleted", "bill", billID.String(), map[string]any{
		"bill_number": number,
	})
	return nil
}

func (s *Service) Void(ctx context.Context, id string) (domain.BillDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.BillDetail{}, domain.ErrInvalidOrganization
	}
	billID, err := parseID(id)
	if err != nil {
		return domain.BillDetail{}, domain.ErrNotFound
	}

	var bill *domain.Bill
	var prior domain.BillStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, billID)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrNotFound
		}
		if bill.Status.Terminal() {
			return domain.ErrTerminal
		}
		if bill.AmountPaid.IsPositive() {
			return domain.ErrHasPayments
		}
		prior = bill.Status

		if bill.Posted() {
			reversalDate := s.todayFor(ctx, orgID)
			if _, err := s.ledger.ReverseSource(ctx, tx, orgID, ledgerdomain.TransactionTypeBill, billID, reversalDate); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		bill.Status = domain.BillStatusVoided
		bill.VoidedAt = &now
		bill.UpdatedAt = now
		return s.repo.Update(ctx, tx, bill)
	})
	if err != nil {
		return domain.BillDetail{}, err
	}
	obsmetrics.Posting().IncDocumentTransition("bill", string(prior), string(domain.BillStatusVoided))

	lines, err := s.repo.LinesFor(ctx, s.db, orgID, billID)
	if err != nil {
		return domain.BillDetail{}, err
	}
	s.audit.Record(ctx, "bill.voided", "bill", billID.String(), map[string]any{
		"bill_number": bill.BillNumber,
	})
	return domain.BillDetail{Bill: *bill, LineItems: lines}, nil
}

func (s *Service) RecomputeFromApplications(ctx context.Context, tx *gorm.DB, orgID, billID snowflake.ID) (*domain.Bill, error) {
	bill, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrNotFound
	}
	if bill.Status == domain.BillStatusVoided {
		return bill, nil
	}

	applied, err := s.repo.ApplicationTotal(ctx, tx, orgID, billID)
	if err != nil {
		return nil, err
	}

	prior := bill.Status
	bill.AmountPaid = money.Round2(applied)
	bill.AmountDue = money.Round2(bill.Total.Sub(bill.AmountPaid))

	now := time.Now().UTC()
	switch {
	case bill.Total.IsPositive() && !bill.AmountDue.IsPositive():
		bill.Status = domain.BillStatusPaid
		if bill.PaidAt == nil {
			bill.PaidAt = &now
		}
	case bill.AmountPaid.IsPositive():
		bill.Status = domain.BillStatusPartial
		bill.PaidAt = nil
	default:
		// All applications gone: fall back to open.
		if bill.Status == domain.BillStatusPartial || bill.Status == domain.BillStatusPaid {
			bill.Status = domain.BillStatusOpen
		}
		bill.PaidAt = nil
	}

	bill.UpdatedAt = now
	if err := s.repo.Update(ctx, tx, bill); err != nil {
		return nil, err
	}
	if prior != bill.Status {
		obsmetrics.Posting().IncDocumentTransition("bill", string(prior), string(bill.Status))
	}
	return bill, nil
}

// buildLines validates the requested lines and computes their amounts.
// Every bill line names an explicit expense or asset account to debit.
func (s *Service) buildLines(ctx context.Context, tx *gorm.DB, orgID, billID snowflake.ID, reqs []domain.BillLineRequest) ([]domain.BillLineItem, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrNoLineItems
	}

	now := time.Now().UTC()
	lines := make([]domain.BillLineItem, 0, len(reqs))
	for i, req := range reqs {
		accountID, err := parseID(req.AccountID)
		if err != nil {
			return nil, domain.ErrInvalidAccount
		}
		account, err := s.accounts.FindByID(ctx, tx, orgID, accountID)
		if err != nil {
			return nil, err
		}
		if account == nil || !account.IsActive {
			return nil, domain.ErrInvalidAccount
		}
		if account.Type != accountdomain.AccountTypeExpense && account.Type != accountdomain.AccountTypeAsset {
			return nil, domain.ErrInvalidAccount
		}

		line := domain.BillLineItem{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			BillID:      billID,
			AccountID:   accountID,
			Description: strings.TrimSpace(req.Description),
			Quantity:    money.Round4(req.Quantity),
			UnitPrice:   money.Round4(req.UnitPrice.Amount),
			Position:    i + 1,
			CreatedAt:   now,
		}
		if !line.Quantity.IsPositive() {
			return nil, domain.ErrInvalidQuantity
		}
		if line.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidUnitPrice
		}
		line.Amount = money.Round2(line.Quantity.Mul(line.UnitPrice))

		if raw := strings.TrimSpace(req.TaxRateID); raw != "" {
			taxRateID, err := parseID(raw)
			if err != nil {
				return nil, domain.ErrInvalidTaxRate
			}
			rate, err := s.taxRates.FindByID(ctx, tx, orgID, taxRateID)
			if err != nil {
				return nil, err
			}
			if rate == nil || !rate.IsActive {
				return nil, domain.ErrInvalidTaxRate
			}
			line.TaxRateID = &taxRateID
			line.TaxAmount = money.Round2(line.Amount.Mul(rate.Rate))
		}

		lines = append(lines, line)
	}
	return lines, nil
}

// post writes the bill's ledger entries: accounts payable credited for the
// total, each line's account debited, tax payable debited for recoverable
// tax. A document discount credits the first line's account so the posting
// stays balanced.
func (s *Service) post(ctx context.Context, tx *gorm.DB, bill *domain.Bill, lines []domain.BillLineItem) error {
	apAccountID, err := s.resolveAP(ctx, tx, bill)
	if err != nil {
		return err
	}

	vendorID := bill.VendorID
	description := "Bill " + bill.BillNumber
	posting := make([]ledgerdomain.PostingLine, 0, len(lines)+3)

	// Group debits by account in first-seen order.
	debits := map[snowflake.ID]decimal.Decimal{}
	order := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		if _, seen := debits[line.AccountID]; !seen {
			order = append(order, line.AccountID)
		}
		debits[line.AccountID] = debits[line.AccountID].Add(line.Amount)
	}
	for _, accountID := range order {
		posting = append(posting, ledgerdomain.PostingLine{
			AccountID:   accountID,
			Debit:       debits[accountID],
			Description: description,
			VendorID:    &vendorID,
		})
	}

	if bill.TaxAmount.IsPositive() {
		taxAccount, err := s.accounts.FindSystemBySubtype(ctx, tx, bill.OrgID, accountdomain.SubtypeSalesTaxPayable)
		if err != nil {
			return err
		}
		if taxAccount == nil {
			return domain.ErrInvalidAccount
		}
		posting = append(posting, ledgerdomain.PostingLine{
			AccountID:   taxAccount.ID,
			Debit:       bill.TaxAmount,
			Description: description + " tax",
			VendorID:    &vendorID,
		})
	}
	if bill.DiscountAmount.IsPositive() {
		posting = append(posting, ledgerdomain.PostingLine{
			AccountID:   order[0],
			Credit:      bill.DiscountAmount,
			Description: description + " discount",
			VendorID:    &vendorID,
		})
	}

	posting = append(posting, ledgerdomain.PostingLine{
		AccountID:   apAccountID,
		Credit:      bill.Total,
		Description: description,
		VendorID:    &vendorID,
	})

	_, err = s.ledger.Post(ctx, tx, ledgerdomain.PostingRequest{
		OrgID:           bill.OrgID,
		TransactionType: ledgerdomain.TransactionTypeBill,
		SourceID:        bill.ID,
		TransactionDate: bill.IssueDate,
		Lines:           posting,
	})
	return err
}

func (s *Service) resolveAP(ctx context.Context, tx *gorm.DB, bill *domain.Bill) (snowflake.ID, error) {
	if bill.APAccountID != nil {
		return *bill.APAccountID, nil
	}
	ap, err := s.accounts.FindSystemBySubtype(ctx, tx, bill.OrgID, accountdomain.SubtypeAccountsPayable)
	if err != nil {
		return 0, err
	}
	if ap == nil {
		return 0, domain.ErrInvalidAccount
	}
	return ap.ID, nil
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

func applyTotals(bill *domain.Bill, lines []domain.BillLineItem) {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount)
		tax = tax.Add(line.TaxAmount)
	}
	bill.Subtotal = money.Round2(subtotal)
	bill.TaxAmount = money.Round2(tax)
	bill.Total = money.Round2(bill.Subtotal.Add(bill.TaxAmount).Sub(bill.DiscountAmount))
	bill.AmountDue = money.Round2(bill.Total.Sub(bill.AmountPaid))
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
