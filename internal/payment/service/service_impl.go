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
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/ledgerly/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/payment/domain"
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
	Invoices   invoicedomain.Repository
	InvoiceSvc invoicedomain.Service
	Customers  customerdomain.Repository
	Accounts   accountdomain.Repository
	Orgs       orgdomain.Repository
	Ledger     ledgerdomain.Service
	Sequence   sequencedomain.Service
	Audit      auditdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	invoices   invoicedomain.Repository
	invoiceSvc invoicedomain.Service
	customers  customerdomain.Repository
	accounts   accountdomain.Repository
	orgs       orgdomain.Repository
	ledger     ledgerdomain.Service
	sequence   sequencedomain.Service
	audit      auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		invoices:   p.Invoices,
		invoiceSvc: p.InvoiceSvc,
		customers:  p.Customers,
		accounts:   p.Accounts,
		orgs:       p.Orgs,
		ledger:     p.Ledger,
		sequence:   p.Sequence,
		audit:      p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePaymentRequest) (domain.PaymentDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.PaymentDetail{}, domain.ErrInvalidOrganization
	}

	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.PaymentDetail{}, domain.ErrInvalidCustomer
	}
	amount := money.Round2(req.Amount.Amount)
	if !amount.IsPositive() {
		return domain.PaymentDetail{}, domain.ErrInvalidAmount
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.todayFor(ctx, orgID)
	}

	var depositAccountID *snowflake.ID
	if raw := strings.TrimSpace(req.DepositAccountID); raw != "" {
		parsed, err := parseID(raw)
		if err != nil {
			return domain.PaymentDetail{}, domain.ErrInvalidAccount
		}
		depositAccountID = &parsed
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		CustomerID:       customerID,
		PaymentDate:      paymentDate,
		Amount:           amount,
		DepositAccountID: depositAccountID,
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		ReferenceNumber:  strings.TrimSpace(req.ReferenceNumber),
		Memo:             strings.TrimSpace(req.Memo),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var applications []domain.PaymentApplication
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customers.FindByID(ctx, tx, orgID, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidCustomer
		}
		if depositAccountID != nil {
			if err := s.checkDepositAccount(ctx, tx, orgID, *depositAccountID); err != nil {
				return err
			}
		}

		applications, err = s.buildApplications(ctx, tx, orgID, &payment, req.InvoicesApplied)
		if err != nil {
			return err
		}

		payment.PaymentNumber, err = s.sequence.Allocate(ctx, tx, orgID, sequencedomain.ClassPayment)
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
		return s.recomputeInvoices(ctx, tx, orgID, applications)
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypePayment), err)
		return domain.PaymentDetail{}, err
	}
	if payment.Posted() {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypePayment), time.Since(start))
	}

	s.audit.Record(ctx, "payment.created", "payment", payment.ID.String(), map[string]any{
		"payment_number": payment.PaymentNumber,
		"amount":         payment.Amount.String(),
		"applications":   len(applications),
	})
	s.log.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
	)
	return domain.PaymentDetail{Payment: payment, Applications: applications}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPaymentRequest) (domain.ListPaymentResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListPaymentResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{OrgID: orgID, Search: req.Search}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := parseID(raw)
		if err != nil {
			return domain.ListPaymentResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID
	}
	var err error
	if filter.From, filter.To, err = parseDateRange(req.StartDate, req.EndDate); err != nil {
		return domain.ListPaymentResponse{}, err
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListPaymentResponse{}, err
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item != nil {
			payments = append(payments, *item)
		}
	}
	return domain.ListPaymentResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Payments: payments,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.PaymentDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.PaymentDetail{}, domain.ErrInvalidOrganization
	}
	paymentID, err := parseID(id)
	if err != nil {
		return domain.PaymentDetail{}, domain.ErrNotFound
	}

	payment, err := s.repo.FindByID(ctx, s.db, orgID, paymentID)
	if err != nil {
		return domain.PaymentDetail{}, err
	}
	if payment == nil {
		return domain.PaymentDetail{}, domain.ErrNotFound
	}
	applications, err := s.repo.ApplicationsFor(ctx, s.db, orgID, paymentID)
	if err != nil {
		return domain.PaymentDetail{}, err
	}
	return domain.PaymentDetail{Payment: *payment, Applications: applications}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdatePaymentRequest) (domain.PaymentDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.PaymentDetail{}, domain.ErrInvalidOrganization
	}
	paymentID, err := parseID(id)
	if err != nil {
		return domain.PaymentDetail{}, domain.ErrNotFound
	}

	payment, err := s.repo.FindByID(ctx, s.db, orgID, paymentID)
	if err != nil {
		return domain.PaymentDetail{}, err
	}
	if payment == nil {
		return domain.PaymentDetail{}, domain.ErrNotFound
	}
	if payment.IsVoided {
		return domain.PaymentDetail{}, domain.ErrAlreadyVoided
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
		return domain.PaymentDetail{}, err
	}

	applications, err := s.repo.ApplicationsFor(ctx, s.db, orgID, paymentID)
	if err != nil {
		return domain.PaymentDetail{}, err
	}
	s.audit.Record(ctx, "payment.updated", "payment", paymentID.String(), map[string]any{
		"payment_number": payment.PaymentNumber,
	})
	return domain.PaymentDetail{Payment: *payment, Applications: applications}, nil
}

func (s *Service) ApplyToInvoice(ctx context.Context, invoiceID string, req domain.ApplyToInvoiceRequest) (domain.PaymentDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.PaymentDetail{}, domain.ErrInvalidOrganization
	}
	parsedInvoiceID, err := parseID(invoiceID)
	if err != nil {
		return domain.PaymentDetail{}, domain.ErrInvalidInvoice
	}

	var payment domain.Payment
	var applications []domain.PaymentApplication
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoices.FindByIDForUpdate(ctx, tx, orgID, parsedInvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvalidInvoice
		}
		if !invoice.Posted() || invoice.Status == invoicedomain.InvoiceStatusVoided {
			return domain.ErrInvalidInvoice
		}

		amount := money.Round2(req.Amount.Amount)
		if !req.Amount.IsSet() {
			amount = invoice.AmountDue
		}
		if !amount.IsPositive() {
			return domain.ErrInvalidAmount
		}
		if amount.GreaterThan(invoice.AmountDue) {
			return domain.ErrExceedsAmountDue
		}

		paymentDate := req.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = s.todayFor(ctx, orgID)
		}
		var depositAccountID *snowflake.ID
		if raw := strings.TrimSpace(req.DepositAccountID); raw != "" {
			parsed, err := parseID(raw)
			if err != nil {
				return domain.ErrInvalidAccount
			}
			if err := s.checkDepositAccount(ctx, tx, orgID, parsed); err != nil {
				return err
			}
			depositAccountID = &parsed
		}

		now := time.Now().UTC()
		payment = domain.Payment{
			ID:               s.genID.Generate(),
			OrgID:            orgID,
			CustomerID:       invoice.CustomerID,
			PaymentDate:      paymentDate,
			Amount:           amount,
			DepositAccountID: depositAccountID,
			PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
			ReferenceNumber:  strings.TrimSpace(req.ReferenceNumber),
			Memo:             strings.TrimSpace(req.Memo),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		payment.PaymentNumber, err = s.sequence.Allocate(ctx, tx, orgID, sequencedomain.ClassPayment)
		if err != nil {
			return err
		}

		applications = []domain.PaymentApplication{{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			PaymentID: payment.ID,
			InvoiceID: parsedInvoiceID,
			Amount:    amount,
			CreatedAt: now,
		}}
		if err := s.repo.Insert(ctx, tx, &payment, applications); err != nil {
			return err
		}

		if payment.Posted() {
			if err := s.post(ctx, tx, &payment); err != nil {
				return err
			}
		}
		_, err = s.invoiceSvc.RecomputeFromApplications(ctx, tx, orgID, parsedInvoiceID)
		return err
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypePayment), err)
		return domain.PaymentDetail{}, err
	}
	if payment.Posted() {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypePayment), time.Since(start))
	}

	s.audit.Record(ctx, "payment.created", "payment", payment.ID.String(), map[string]any{
		"payment_number": payment.PaymentNumber,
		"invoice_id":     parsedInvoiceID.String(),
	})
	return domain.PaymentDetail{Payment: payment, Applications: applications}, nil
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
			if _, err := s.ledger.ReverseSource(ctx, tx, orgID, ledgerdomain.TransactionTypePayment, paymentID, reversalDate); err != nil {
				return err
			}
		}
		return s.recomputeInvoices(ctx, tx, orgID, applications)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "payment.voided", "payment", paymentID.String(), map[string]any{
		"payment_number": number,
	})
	s.log.Info("payment voided", zap.String("payment_id", paymentID.String()))
	return nil
}

// buildApplications validates the requested applications against each
// invoice's amount due. The invoices are locked so concurrent payments
// against one invoice serialize. Amounts are accumulated per invoice, so
// several applications to the same invoice are capped by its amount due in
// aggregate, not row by row.
func (s *Service) buildApplications(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, payment *domain.Payment, reqs []domain.ApplicationRequest) ([]domain.PaymentApplication, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	total := decimal.Zero
	appliedPerInvoice := make(map[snowflake.ID]decimal.Decimal, len(reqs))
	applications := make([]domain.PaymentApplication, 0, len(reqs))
	for _, req := range reqs {
		invoiceID, err := parseID(req.InvoiceID)
		if err != nil {
			return nil, domain.ErrInvalidInvoice
		}
		invoice, err := s.invoices.FindByIDForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return nil, err
		}
		if invoice == nil {
			return nil, domain.ErrInvalidInvoice
		}
		if !invoice.Posted() || invoice.Status == invoicedomain.InvoiceStatusVoided {
			return nil, domain.ErrInvalidInvoice
		}
		if invoice.CustomerID != payment.CustomerID {
			return nil, domain.ErrCustomerMismatch
		}

		amount := money.Round2(req.Amount.Amount)
		if !amount.IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
		applied := appliedPerInvoice[invoiceID].Add(amount)
		if applied.GreaterThan(invoice.AmountDue) {
			return nil, domain.ErrExceedsAmountDue
		}
		appliedPerInvoice[invoiceID] = applied

		total = total.Add(amount)
		applications = append(applications, domain.PaymentApplication{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			PaymentID: payment.ID,
			InvoiceID: invoiceID,
			Amount:    amount,
			CreatedAt: now,
		})
	}
	if total.GreaterThan(payment.Amount) {
		return nil, domain.ErrOverApplied
	}
	return applications, nil
}

// post writes the payment's ledger entries: the deposit account is debited
// and accounts receivable credited for the full amount, tagged with the
// customer. Payments without a deposit account carry no ledger entries.
func (s *Service) post(ctx context.Context, tx *gorm.DB, payment *domain.Payment) error {
	ar, err := s.accounts.FindSystemBySubtype(ctx, tx, payment.OrgID, accountdomain.SubtypeAccountsReceivable)
	if err != nil {
		return err
	}
	if ar == nil {
		return domain.ErrInvalidAccount
	}

	customerID := payment.CustomerID
	description := "Payment " + payment.PaymentNumber
	_, err = s.ledger.Post(ctx, tx, ledgerdomain.PostingRequest{
		OrgID:           payment.OrgID,
		TransactionType: ledgerdomain.TransactionTypePayment,
		SourceID:        payment.ID,
		TransactionDate: payment.PaymentDate,
		Lines: []ledgerdomain.PostingLine{
			{
				AccountID:   *payment.DepositAccountID,
				Debit:       payment.Amount,
				Description: description,
				CustomerID:  &customerID,
			},
			{
				AccountID:   ar.ID,
				Credit:      payment.Amount,
				Description: description,
				CustomerID:  &customerID,
			},
		},
	})
	return err
}

func (s *Service) recomputeInvoices(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, applications []domain.PaymentApplication) error {
	seen := map[snowflake.ID]bool{}
	for _, app := range applications {
		if seen[app.InvoiceID] {
			continue
		}
		seen[app.InvoiceID] = true
		if _, err := s.invoiceSvc.RecomputeFromApplications(ctx, tx, orgID, app.InvoiceID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkDepositAccount(ctx context.Context, tx *gorm.DB, orgID, accountID snowflake.ID) error {
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
