package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	billdomain "github.com/smallbiznis/ledgerly/internal/bill/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	"github.com/smallbiznis/ledgerly/internal/vendorpayment/domain"
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
	Bills    billdomain.Repository
	BillSvc  billdomain.Service
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
	bills    billdomain.Repository
	billSvc  billdomain.Service
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
		log:      p.Log.Named("vendorpayment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		bills:    p.Bills,
		billSvc:  p.BillSvc,
		vendors:  p.Vendors,
		accounts: p.Accounts,
		orgs:     p.Orgs,
		ledger:   p.Ledger,
		sequence: p.Sequence,
		audit:    p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateVendorPaymentRequest) (domain.VendorPaymentDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.VendorPaymentDetail{}, domain.ErrInvalidOrganization
	}

	vendorID, err := parseID(req.VendorID)
	if err != nil {
		return domain.VendorPaymentDetail{}, domain.ErrInvalidVendor
	}
	amount := money.Round2(req.Amount.Amount)
	if !amount.IsPositive() {
		return domain.VendorPaymentDetail{}, domain.ErrInvalidAmount
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.todayFor(ctx, orgID)
	}

	var paymentAccountID *snowflake.ID
	if raw := strings.TrimSpace(req.PaymentAccountID); raw != "" {
		parsed, err := parseID(raw)
		if err != nil {
			return domain.VendorPaymentDetail{}, domain.ErrInvalidAccount
		}
		paymentAccountID = &parsed
	}

	now := time.Now().UTC()
	payment := domain.VendorPayment{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		VendorID:         vendorID,
		PaymentDate:      paymentDate,
		Amount:           amount,
		PaymentAccountID: paymentAccountID,
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		ReferenceNumber:  strings.TrimSpace(req.ReferenceNumber),
		Memo:             strings.TrimSpace(req.Memo),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var applications []domain.BillPaymentApplication
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vendor, err := s.vendors.FindByID(ctx, tx, orgID, vendorID)
		if err != nil {
			return err
		}
		if vendor == nil {
			return domain.ErrInvalidVendor
		}
		if paymentAccountID != nil {
			if err := s.checkPaymentAccount(ctx, tx, orgID, *paymentAccountID); err != nil {
				return err
			}
		}

		applications, err = s.buildApplications(ctx, tx, orgID, &payment, req.BillsApplied)
		if err != nil {
			return err
		}

		payment.PaymentNumber, err = s.sequence.Allocate(ctx, tx, orgID, sequencedomain.ClassVendorPayment)
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, &payment, applications); err != nil {
			return err
		}

		if payment.Posted() {
			if err := s.post(ctx, tx, &payment); err != nil {
				return err
			}
		}
		return s.recomputeBills(ctx, tx, orgID, applications)
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeBillPayment), err)
		return domain.VendorPaymentDetail{}, err
	}
	if payment.Posted() {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeBillPayment), time.Since(start))
	}

	s.audit.Record(ctx, "vendor_payment.created", "vendor_payment", payment.ID.String(), map[string]any{
		"payment_number": payment.PaymentNumber,
		"amount":         payment.Amount.String(),
		"applications":   len(applications),
	})
	s.log.Info("vendor payment created",
		zap.String("vendor_payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
	)
	return domain.VendorPaymentDetail{VendorPayment: payment, Applications: applications}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListVendorPaymentRequest) (domain.ListVendorPaymentResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListVendorPaymentResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{OrgID: orgID, Search: req.Search}
	if raw := strings.TrimSpace(req.VendorID); raw != "" {
		vendorID, err := parseID(raw)
		if err != nil {
			return domain.ListVendorPaymentResponse{}, domain.ErrInvalidVendor
		}
		filter.VendorID = vendorID
	}
	var err error
	if filter.From, filter.To, err = parseDateRange(req.StartDate, req.EndDate); err != nil {
		return domain.ListVendorPaymentResponse{}, err
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListVendorPaymentResponse{}, err
	}

	payments := make([]domain.VendorPayment, 0, len(items))
	for _, item := range items {
		if item != nil {
			payments = append(payments, *item)
		}
	}
	return domain.ListVendorPaymentResponse{
		PageInfo:       pagination.BuildPageInfo(total, page),
		VendorPayments: payments,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.VendorPaymentDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.VendorPaymentDetail{}, domain.ErrInvalidOrganization
	}
	paymentID, err := parseID(id)
	if err != nil {
		return domain.VendorPaymentDetail{}, domain.ErrNotFound
	}

	payment, err := s.repo.FindByID(ctx, s.db, orgID, paymentID)
	if err != nil {
		return domain.VendorPaymentDetail{}, err
	}
	if payment == nil {
		return domain.VendorPaymentDetail{}, domain.ErrNotFound
	}
	applications, err := s.repo.ApplicationsFor(ctx, s.db, orgID, paymentID)
	if err != nil {
		return domain.VendorPaymentDetail{}, err
	}
	return domain.VendorPaymentDetail{VendorPayment: *payment, Applications: applications}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateVendorPaymentRequest) (domain.VendorPaymentDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.VendorPaymentDetail{}, domain.ErrInvalidOrganization
	}
	paymentID, err := parseID(id)
	if err != nil {
		return domain.VendorPaymentDetail{}, domain.ErrNotFound
	}

	payment, err := s.repo.FindByID(ctx, s.db, orgID, paymentID)
	if err != nil {
		return domain.VendorPaymentDetail{}, err
	}
	if payment == nil {
		return domain.VendorPaymentDetail{}, domain.ErrNotFound
	}
	if payment.IsVoided {
		return domain.VendorPaymentDetail{}, domain.ErrAlreadyVoided
	}

	if req.PaymentMethod != nil {
		payment.PaymentMethod = strings.TrimSpace(*req.PaymentMethod)
	}
	if req.ReferenceNumber != nil {
		payment.ReferenceNumber = strings.TrimSpace(*req.ReferenceNumber)
	}
	if req.Memo != nil {
		payment.Memo = strings.TrimSpace(*req.Memo)
	}
	payment.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, payment); err != nil {
		return domain.VendorPaymentDetail{}, err
	}

	applications, err := s.repo.ApplicationsFor(ctx, s.db, orgID, paymentID)
	if err != nil {
		return domain.VendorPaymentDetail{}, err
	}
	s.audit.Record(ctx, "vendor_payment.updated", "vendor_payment", paymentID.String(), map[string]any{
		"payment_number": payment.PaymentNumber,
	})
	return domain.VendorPaymentDetail{VendorPayment: *payment, Applications: applications}, nil
}

func (s *Service) PayBill(ctx context.Context, billID string, req domain.PayBillRequest) (domain.VendorPaymentDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.VendorPaymentDetail{}, domain.ErrInvalidOrganization
	}
	parsedBillID, err := parseID(billID)
	if err != nil {
		return domain.VendorPaymentDetail{}, domain.ErrInvalidBill
	}

	var payment domain.VendorPayment
	var applications []domain.BillPaymentApplication
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.bills.FindByIDForUpdate(ctx, tx, orgID, parsedBillID)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrInvalidBill
		}
		if !bill.Posted() || bill.Status == billdomain.BillStatusVoided {
			return domain.ErrInvalidBill
		}

		amount := money.Round2(req.Amount.Amount)
		if !req.Amount.IsSet() {
			amount = bill.AmountDue
		}
		if !amount.IsPositive() {
			return domain.ErrInvalidAmount
		}
		if amount.GreaterThan(bill.AmountDue) {
			return domain.ErrExceedsAmountDue
		}

		paymentDate := req.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = s.todayFor(ctx, orgID)
		}
		var paymentAccountID *snowflake.ID
		if raw := strings.TrimSpace(req.PaymentAccountID); raw != "" {
			parsed, err := parseID(raw)
			if err != nil {
				return domain.ErrInvalidAccount
			}
			if err := s.checkPaymentAccount(ctx, tx, orgID, parsed); err != nil {
				return err
			}
			paymentAccountID = &parsed
		}

		now := time.Now().UTC()
		payment = domain.VendorPayment{
			ID:               s.genID.Generate(),
			OrgID:            orgID,
			VendorID:         bill.VendorID,
			PaymentDate:      paymentDate,
			Amount:           amount,
			PaymentAccountID: paymentAccountID,
			PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
			ReferenceNumber:  strings.TrimSpace(req.ReferenceNumber),
			Memo:             strings.TrimSpace(req.Memo),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		payment.PaymentNumber, err = s.sequence.Allocate(ctx, tx, orgID, sequencedomain.ClassVendorPayment)
		if err != nil {
			return err
		}

		applications = []domain.BillPaymentApplication{{
			ID:              s.genID.Generate(),
			OrgID:           orgID,
			VendorPaymentID: payment.ID,
			BillID:          parsedBillID,
			Amount:          amount,
			CreatedAt:       now,
		}}
		if err := s.repo.Insert(ctx, tx, &payment, applications); err != nil {
			return err
		}

		if payment.Posted() {
			if err := s.post(ctx, tx, &payment); err != nil {
				return err
			}
		}
		_, err = s.billSvc.RecomputeFromApplications(ctx, tx, orgID, parsedBillID)
		return err
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeBillPayment), err)
		return domain.VendorPaymentDetail{}, err
	}
	if payment.Posted() {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeBillPayment), time.Since(start))
	}

	s.audit.Record(ctx, "vendor_payment.created", "vendor_payment", payment.ID.String(), map[string]any{
		"payment_number": payment.PaymentNumber,
		"bill_id":        parsedBillID.String(),
	})
	return domain.VendorPaymentDetail{VendorPayment: payment, Applications: applications}, nil
}

func (s *Service) Void(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	paymentID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	var number string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, orgID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		if payment.IsVoided {
			return domain.ErrAlreadyVoided
		}
		number = payment.PaymentNumber

		applications, err := s.repo.ApplicationsFor(ctx, tx, orgID, paymentID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		payment.IsVoided = true
		payment.VoidedAt = &now
		payment.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.repo.DeleteApplications(ctx, tx, orgID, paymentID); err != nil {
			return err
		}

		if payment.Posted() {
			reversalDate := s.todayFor(ctx, orgID)
			if _, err := s.ledger.ReverseSource(ctx, tx, orgID, ledgerdomain.TransactionTypeBillPayment, paymentID, reversalDate); err != nil {
				return err
			}
		}
		return s.recomputeBills(ctx, tx, orgID, applications)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "vendor_payment.voided", "vendor_payment", paymentID.String(), map[string]any{
		"payment_number": number,
	})
	s.log.Info("vendor payment voided", zap.String("vendor_payment_id", paymentID.String()))
	return nil
}

// buildApplications validates the requested applications against each
// bill's amount due. The bills are locked so concurrent payments against
// one bill serialize. Amounts are accumulated per bill, so several
// applications to the same bill are capped by its amount due in aggregate,
// not row by row.
func (s *Service) buildApplications(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, payment *domain.VendorPayment, reqs []domain.ApplicationRequest) ([]domain.BillPaymentApplication, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	total := decimal.Zero
	appliedPerBill := make(map[snowflake.ID]decimal.Decimal, len(reqs))
	applications := make([]domain.BillPaymentApplication, 0, len(reqs))
	for _, req := range reqs {
		billID, err := parseID(req.BillID)
		if err != nil {
			return nil, domain.ErrInvalidBill
		}
		bill, err := s.bills.FindByIDForUpdate(ctx, tx, orgID, billID)
		if err != nil {
			return nil, err
		}
		if bill == nil {
			return nil, domain.ErrInvalidBill
		}
		if !bill.Posted() || bill.Status == billdomain.BillStatusVoided {
			return nil, domain.ErrInvalidBill
		}
		if bill.VendorID != payment.VendorID {
			return nil, domain.ErrVendorMismatch
		}

		amount := money.Round2(req.Amount.Amount)
		if !amount.IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
		applied := appliedPerBill[billID].Add(amount)
		if applied.GreaterThan(bill.AmountDue) {
			return nil, domain.ErrExceedsAmountDue
		}
		appliedPerBill[billID] = applied

		total = total.Add(amount)
		applications = append(applications, domain.BillPaymentApplication{
			ID:              s.genID.Generate(),
			OrgID:           orgID,
			VendorPaymentID: payment.ID,
			BillID:          billID,
			Amount:          amount,
			CreatedAt:       now,
		})
	}
	if total.GreaterThan(payment.Amount) {
		return nil, domain.ErrOverApplied
	}
	return applications, nil
}

// post writes the payment's ledger entries: accounts payable is debited and
// the payment account credited for the full amount, tagged with the vendor.
// Payments without a payment account carry no ledger entries.
func (s *Service) post(ctx context.Context, tx *gorm.DB, payment *domain.VendorPayment) error {
	ap, err := s.accounts.FindSystemBySubtype(ctx, tx, payment.OrgID, accountdomain.SubtypeAccountsPayable)
	if err != nil {
		return err
	}
	if ap == nil {
		return domain.ErrInvalidAccount
	}

	vendorID := payment.VendorID
	description := "Vendor payment " + payment.PaymentNumber
	_, err = s.ledger.Post(ctx, tx, ledgerdomain.PostingRequest{
		OrgID:           payment.OrgID,
		TransactionType: ledgerdomain.TransactionTypeBillPayment,
		SourceID:        payment.ID,
		TransactionDate: payment.PaymentDate,
		Lines: []ledgerdomain.PostingLine{
			{
				AccountID:   ap.ID,
				Debit:       payment.Amount,
				Description: description,
				VendorID:    &vendorID,
			},
			{
				AccountID:   *payment.PaymentAccountID,
				Credit:      payment.Amount,
				Description: description,
				VendorID:    &vendorID,
			},
		},
	})
	return err
}

func (s *Service) recomputeBills(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, applications []domain.BillPaymentApplication) error {
	seen := map[snowflake.ID]bool{}
	for _, app := range applications {
		if seen[app.BillID] {
			continue
		}
		seen[app.BillID] = true
		if _, err := s.billSvc.RecomputeFromApplications(ctx, tx, orgID, app.BillID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkPaymentAccount(ctx context.Context, tx *gorm.DB, orgID, accountID snowflake.ID) error {
	account, err := s.accounts.FindByID(ctx, tx, orgID, accountID)
	if err != nil {
		return err
	}
	if account == nil || !account.IsActive || account.Type != accountdomain.AccountTypeAsset {
		return domain.ErrInvalidAccount
	}
	return nil
}

func (s *Service) todayFor(ctx context.Context, orgID snowflake.ID) date.Date {
	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil || org == nil {
		return date.FromTime(s.clock.Now())
	}
	loc := time.UTC
	if org.Timezone != "" {
		if parsed, err := time.LoadLocation(org.Timezone); err == nil {
			loc = parsed
		}
	}
	return date.Today(s.clock.Now(), loc)
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
