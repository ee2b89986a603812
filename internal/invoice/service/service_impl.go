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
	"github.com/smallbiznis/ledgerly/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	taxdomain "github.com/smallbiznis/ledgerly/internal/tax/domain"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Customers customerdomain.Repository
	Accounts  accountdomain.Repository
	Products  productdomain.Repository
	TaxRates  taxdomain.Repository
	Orgs      orgdomain.Repository
	Ledger    ledgerdomain.Service
	Sequence  sequencedomain.Service
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	customers customerdomain.Repository
	accounts  accountdomain.Repository
	products  productdomain.Repository
	taxRates  taxdomain.Repository
	orgs      orgdomain.Repository
	ledger    ledgerdomain.Service
	sequence  sequencedomain.Service
	audit     auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		customers: p.Customers,
		accounts:  p.Accounts,
		products:  p.Products,
		taxRates:  p.TaxRates,
		orgs:      p.Orgs,
		ledger:    p.Ledger,
		sequence:  p.Sequence,
		audit:     p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.InvoiceDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.InvoiceDetail{}, domain.ErrInvalidOrganization
	}

	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.InvoiceDetail{}, domain.ErrInvalidCustomer
	}

	status := domain.InvoiceStatusDraft
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.InvoiceStatus(raw)
		if status != domain.InvoiceStatusDraft && status != domain.InvoiceStatusSent {
			return domain.InvoiceDetail{}, domain.ErrInvalidStatus
		}
	}

	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if org == nil {
		return domain.InvoiceDetail{}, domain.ErrInvalidOrganization
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
		return domain.InvoiceDetail{}, domain.ErrInvalidDate
	}

	var arAccountID *snowflake.ID
	if raw := strings.TrimSpace(req.ARAccountID); raw != "" {
		parsed, err := parseID(raw)
		if err != nil {
			return domain.InvoiceDetail{}, domain.ErrInvalidAccount
		}
		arAccountID = &parsed
	}

	discount := money.Round2(req.DiscountAmount.Amount)
	shipping := money.Round2(req.ShippingAmount.Amount)
	if discount.IsNegative() || shipping.IsNegative() {
		return domain.InvoiceDetail{}, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		CustomerID:     customerID,
		Status:         status,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Currency:       org.BaseCurrency,
		DiscountAmount: discount,
		ShippingAmount: shipping,
		ARAccountID:    arAccountID,
		Memo:           strings.TrimSpace(req.Memo),
		Notes:          strings.TrimSpace(req.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var lines []domain.InvoiceLineItem
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customers.FindByID(ctx, tx, orgID, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidCustomer
		}

		if arAccountID != nil {
			if err := s.checkAccount(ctx, tx, orgID, *arAccountID, accountdomain.AccountTypeAsset); err != nil {
				return err
			}
		}

		lines, err = s.buildLines(ctx, tx, orgID, invoice.ID, req.LineItems)
		if err != nil {
			return err
		}
		applyTotals(&invoice, lines)

		invoice.InvoiceNumber, err = s.sequence.Allocate(ctx, tx, orgID, sequencedomain.ClassInvoice)
		if err != nil {
			return err
		}

		if status == domain.InvoiceStatusSent {
			sentAt := time.Now().UTC()
			invoice.SentAt = &sentAt
		}
		if err := s.repo.Insert(ctx, tx, &invoice, lines); err != nil {
			return err
		}

		if status == domain.InvoiceStatusSent {
			return s.post(ctx, tx, &invoice, lines)
		}
		return nil
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeInvoice), err)
		return domain.InvoiceDetail{}, err
	}
	if invoice.Status == domain.InvoiceStatusSent {
		obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeInvoice), time.Since(start))
		obsmetrics.Posting().IncDocumentTransition("invoice", string(domain.InvoiceStatusDraft), string(domain.InvoiceStatusSent))
	}

	s.audit.Record(ctx, "invoice.created", "invoice", invoice.ID.String(), map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"status":         string(invoice.Status),
		"total":          invoice.Total.String(),
	})
	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("status", string(invoice.Status)),
	)
	return domain.InvoiceDetail{Invoice: invoice, LineItems: lines}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{OrgID: orgID, Search: req.Search}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := parseID(raw)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID
	}

	today := s.todayFor(ctx, orgID)
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := domain.InvoiceStatus(raw)
		switch status {
		case domain.InvoiceStatusOverdue:
			// Overdue is virtual: unpaid sent-family invoices past due.
			filter.Statuses = []domain.InvoiceStatus{
				domain.InvoiceStatusSent, domain.InvoiceStatusViewed, domain.InvoiceStatusPartial,
			}
			filter.DueBefore = today
		case domain.InvoiceStatusDraft, domain.InvoiceStatusSent, domain.InvoiceStatusViewed,
			domain.InvoiceStatusPartial, domain.InvoiceStatusPaid, domain.InvoiceStatusVoided:
			filter.Statuses = []domain.InvoiceStatus{status}
		default:
			return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
		}
	}
	var err error
	if filter.IssuedFrom, filter.IssuedTo, err = parseDateRange(req.StartDate, req.EndDate); err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		inv := *item
		inv.Status = inv.EffectiveStatus(today)
		invoices = append(invoices, inv)
	}

	return domain.ListInvoiceResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Invoices: invoices,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.InvoiceDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.InvoiceDetail{}, domain.ErrInvalidOrganization
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.InvoiceDetail{}, domain.ErrNotFound
	}

	invoice, err := s.repo.FindByID(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if invoice == nil {
		return domain.InvoiceDetail{}, domain.ErrNotFound
	}
	lines, err := s.repo.LinesFor(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}

	detail := domain.InvoiceDetail{Invoice: *invoice, LineItems: lines}
	detail.Status = detail.EffectiveStatus(s.todayFor(ctx, orgID))
	return detail, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateInvoiceRequest) (domain.InvoiceDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.InvoiceDetail{}, domain.ErrInvalidOrganization
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.InvoiceDetail{}, domain.ErrNotFound
	}

	var invoice *domain.Invoice
	var lines []domain.InvoiceLineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if invoice.Status == domain.InvoiceStatusVoided {
			return domain.ErrVoided
		}

		if invoice.Status != domain.InvoiceStatusDraft {
			if err := updatePosted(invoice, req); err != nil {
				return err
			}
			return s.repo.Update(ctx, tx, invoice)
		}

		if req.CustomerID != nil {
			customerID, err := parseID(*req.CustomerID)
			if err != nil {
				return domain.ErrInvalidCustomer
			}
			customer, err := s.customers.FindByID(ctx, tx, orgID, customerID)
			if err != nil {
				return err
			}
			if customer == nil {
				return domain.ErrInvalidCustomer
			}
			invoice.CustomerID = customerID
		}
		if req.IssueDate != nil && !req.IssueDate.IsZero() {
			invoice.IssueDate = *req.IssueDate
		}
		if req.DueDate != nil && !req.DueDate.IsZero() {
			invoice.DueDate = *req.DueDate
		}
		if invoice.DueDate.Before(invoice.IssueDate) {
			return domain.ErrInvalidDate
		}
		if req.ARAccountID != nil {
			if raw := strings.TrimSpace(*req.ARAccountID); raw == "" {
				invoice.ARAccountID = nil
			} else {
				parsed, err := parseID(raw)
				if err != nil {
					return domain.ErrInvalidAccount
				}
				if err := s.checkAccount(ctx, tx, orgID, parsed, accountdomain.AccountTypeAsset); err != nil {
					return err
				}
				invoice.ARAccountID = &parsed
			}
		}
		if req.DiscountAmount != nil {
			invoice.DiscountAmount = money.Round2(req.DiscountAmount.Amount)
		}
		if req.ShippingAmount != nil {
			invoice.ShippingAmount = money.Round2(req.ShippingAmount.Amount)
		}
		if invoice.DiscountAmount.IsNegative() || invoice.ShippingAmount.IsNegative() {
			return domain.ErrInvalidAmount
		}
		if req.Memo != nil {
			invoice.Memo = strings.TrimSpace(*req.Memo)
		}
		if req.Notes != nil {
			invoice.Notes = strings.TrimSpace(*req.Notes)
		}

		if req.LineItems != nil {
			lines, err = s.buildLines(ctx, tx, orgID, invoice.ID, req.LineItems)
			if err != nil {
				return err
			}
			if err := s.repo.ReplaceLines(ctx, tx, orgID, invoice.ID, lines); err != nil {
				return err
			}
		} else {
			lines, err = s.repo.LinesFor(ctx, tx, orgID, invoice.ID)
			if err != nil {
				return err
			}
		}
		applyTotals(invoice, lines)

		invoice.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, tx, invoice)
	})
	if err != nil {
		return domain.InvoiceDetail{}, err
	}

	if lines == nil {
		lines, err = s.repo.LinesFor(ctx, s.db, orgID, invoiceID)
		if err != nil {
			return domain.InvoiceDetail{}, err
		}
	}
	s.audit.Record(ctx, "invoice.updated", "invoice", invoice.ID.String(), map[string]any{
		"invoice_number": invoice.InvoiceNumber,
	})
	return domain.InvoiceDetail{Invoice: *invoice, LineItems: lines}, nil
}

// updatePosted narrows a post-send update to the fields that cannot
// invalidate the ledger.
func updatePosted(invoice *domain.Invoice, req domain.UpdateInvoiceRequest) error {
	if req.CustomerID != nil || req.IssueDate != nil || req.ARAccountID != nil ||
		req.DiscountAmount != nil || req.ShippingAmount != nil || req.LineItems != nil {
		return domain.ErrPostedImmutable
	}
	if req.DueDate != nil && !req.DueDate.IsZero() {
		if req.DueDate.Before(invoice.IssueDate) {
			return domain.ErrInvalidDate
		}
		invoice.DueDate = *req.DueDate
	}
	if req.Memo != nil {
		invoice.Memo = strings.TrimSpace(*req.Memo)
	}
	if req.Notes != nil {
		invoice.Notes = strings.TrimSpace(*req.Notes)
	}
	invoice.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	var number string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if invoice.AmountPaid.IsPositive() {
			return domain.ErrHasPayments
		}
		if invoice.Posted() {
			return domain.ErrPostedImmutable
		}
		number = invoice.InvoiceNumber
		return s.repo.Delete(ctx, tx, orgID, invoiceID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "invoice.deleted", "invoice", invoiceID.String(), map[string]any{
		"invoice_number": number,
	})
	return nil
}

func (s *Service) Send(ctx context.Context, id string, req domain.SendInvoiceRequest) (domain.SendInvoiceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.SendInvoiceResponse{}, domain.ErrInvalidOrganization
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.SendInvoiceResponse{}, domain.ErrNotFound
	}

	var sentAt time.Time
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if invoice.Status == domain.InvoiceStatusVoided {
			return domain.ErrVoided
		}
		if invoice.Status != domain.InvoiceStatusDraft {
			return domain.ErrAlreadySent
		}

		lines, err := s.repo.LinesFor(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrNoLineItems
		}

		sentAt = time.Now().UTC()
		invoice.Status = domain.InvoiceStatusSent
		invoice.SentAt = &sentAt
		invoice.UpdatedAt = sentAt
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		return s.post(ctx, tx, invoice, lines)
	})
	if err != nil {
		obsmetrics.Posting().IncPostingError(string(ledgerdomain.TransactionTypeInvoice), err)
		return domain.SendInvoiceResponse{}, err
	}
	obsmetrics.Posting().ObservePostingDuration(string(ledgerdomain.TransactionTypeInvoice), time.Since(start))
	obsmetrics.Posting().IncDocumentTransition("invoice", string(domain.InvoiceStatusDraft), string(domain.InvoiceStatusSent))

	s.audit.Record(ctx, "invoice.sent", "invoice", invoiceID.String(), map[string]any{
		"sent_at": sentAt.Format(time.RFC3339),
	})
	s.log.Info("invoice sent", zap.String("invoice_id", invoiceID.String()))
	return domain.SendInvoiceResponse{Message: "Invoice sent", SentAt: sentAt}, nil
}

func (s *Service) Void(ctx context.Context, id string) (domain.InvoiceDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.InvoiceDetail{}, domain.ErrInvalidOrganization
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.InvoiceDetail{}, domain.ErrNotFound
	}

	var invoice *domain.Invoice
	var prior domain.InvoiceStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err = s.repo.FindByIDForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if invoice.Status.Terminal() {
			return domain.ErrTerminal
		}
		if invoice.AmountPaid.IsPositive() {
			return domain.ErrHasPayments
		}
		prior = invoice.Status

		if invoice.Posted() {
			reversalDate := s.todayFor(ctx, orgID)
			if _, err := s.ledger.ReverseSource(ctx, tx, orgID, ledgerdomain.TransactionTypeInvoice, invoiceID, reversalDate); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		invoice.Status = domain.InvoiceStatusVoided
		invoice.VoidedAt = &now
		invoice.UpdatedAt = now
		return s.repo.Update(ctx, tx, invoice)
	})
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	obsmetrics.Posting().IncDocumentTransition("invoice", string(prior), string(domain.InvoiceStatusVoided))

	lines, err := s.repo.LinesFor(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	s.audit.Record(ctx, "invoice.voided", "invoice", invoiceID.String(), map[string]any{
		"invoice_number": invoice.InvoiceNumber,
	})
	return domain.InvoiceDetail{Invoice: *invoice, LineItems: lines}, nil
}

func (s *Service) RecomputeFromApplications(ctx context.Context, tx *gorm.DB, orgID, invoiceID snowflake.ID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	if invoice.Status == domain.InvoiceStatusVoided {
		return invoice, nil
	}

	applied, err := s.repo.ApplicationTotal(ctx, tx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}

	prior := invoice.Status
	invoice.AmountPaid = money.Round2(applied)
	invoice.AmountDue = money.Round2(invoice.Total.Sub(invoice.AmountPaid))

	now := time.Now().UTC()
	switch {
	case invoice.Total.IsPositive() && !invoice.AmountDue.IsPositive():
		invoice.Status = domain.InvoiceStatusPaid
		if invoice.PaidAt == nil {
			invoice.PaidAt = &now
		}
	case invoice.AmountPaid.IsPositive():
		invoice.Status = domain.InvoiceStatusPartial
		invoice.PaidAt = nil
	default:
		// All applications gone: fall back to the send-family status.
		if prior == domain.InvoiceStatusPartial || prior == domain.InvoiceStatusPaid {
			invoice.Status = domain.InvoiceStatusSent
		}
		invoice.PaidAt = nil
	}

	invoice.UpdatedAt = now
	if err := s.repo.Update(ctx, tx, invoice); err != nil {
		return nil, err
	}
	if prior != invoice.Status {
		obsmetrics.Posting().IncDocumentTransition("invoice", string(prior), string(invoice.Status))
	}
	return invoice, nil
}

// buildLines validates the requested lines and computes their amounts.
// Product references fill in description, price and income account where
// the request leaves them blank.
func (s *Service) buildLines(ctx context.Context, tx *gorm.DB, orgID, invoiceID snowflake.ID, reqs []domain.LineItemRequest) ([]domain.InvoiceLineItem, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrNoLineItems
	}

	now := time.Now().UTC()
	lines := make([]domain.InvoiceLineItem, 0, len(reqs))
	for i, req := range reqs {
		line := domain.InvoiceLineItem{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			InvoiceID:   invoiceID,
			Description: strings.TrimSpace(req.Description),
			Quantity:    money.Round4(req.Quantity),
			UnitPrice:   money.Round4(req.UnitPrice.Amount),
			Position:    i + 1,
			CreatedAt:   now,
		}

		if raw := strings.TrimSpace(req.ProductID); raw != "" {
			productID, err := parseID(raw)
			if err != nil {
				return nil, domain.ErrInvalidProduct
			}
			product, err := s.products.FindByID(ctx, tx, orgID, productID)
			if err != nil {
				return nil, err
			}
			if product == nil || !product.IsActive {
				return nil, domain.ErrInvalidProduct
			}
			line.ProductID = &productID
			if line.Description == "" {
				line.Description = product.Name
			}
			if !req.UnitPrice.IsSet() {
				line.UnitPrice = money.Round4(product.UnitPrice)
			}
			if req.IncomeAccountID == "" && product.IncomeAccountID != nil {
				id := *product.IncomeAccountID
				line.IncomeAccountID = &id
			}
		}

		if !line.Quantity.IsPositive() {
			return nil, domain.ErrInvalidQuantity
		}
		if line.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidUnitPrice
		}

		line.DiscountPercent = req.DiscountPercent
		if line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(hundred) {
			return nil, domain.ErrInvalidDiscount
		}

		if raw := strings.TrimSpace(req.IncomeAccountID); raw != "" {
			accountID, err := parseID(raw)
			if err != nil {
				return nil, domain.ErrInvalidAccount
			}
			if err := s.checkAccount(ctx, tx, orgID, accountID, accountdomain.AccountTypeIncome); err != nil {
				return nil, err
			}
			line.IncomeAccountID = &accountID
		}

		line.Amount = money.Round2(
			line.Quantity.Mul(line.UnitPrice).
				Mul(hundred.Sub(line.DiscountPercent)).
				Div(hundred))

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

// post writes the invoice's ledger entries: AR debited for the total,
// revenue credited per income account, tax payable credited for the tax.
// Shipping is booked as sales revenue and the document discount against it,
// which keeps the posting balanced without a dedicated discount account.
func (s *Service) post(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice, lines []domain.InvoiceLineItem) error {
	arAccountID, err := s.resolveAR(ctx, tx, invoice)
	if err != nil {
		return err
	}
	salesAccount, err := s.accounts.FindSystemBySubtype(ctx, tx, invoice.OrgID, accountdomain.SubtypeSales)
	if err != nil {
		return err
	}
	if salesAccount == nil {
		return domain.ErrInvalidAccount
	}

	customerID := invoice.CustomerID
	description := "Invoice " + invoice.InvoiceNumber
	posting := []ledgerdomain.PostingLine{{
		AccountID:   arAccountID,
		Debit:       invoice.Total,
		Description: description,
		CustomerID:  &customerID,
	}}

	// Group revenue by income account in first-seen order so the posting
	// is deterministic.
	revenue := map[snowflake.ID]decimal.Decimal{}
	order := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		accountID := salesAccount.ID
		if line.IncomeAccountID != nil {
			accountID = *line.IncomeAccountID
		}
		if _, seen := revenue[accountID]; !seen {
			order = append(order, accountID)
		}
		revenue[accountID] = revenue[accountID].Add(line.Amount)
	}
	for _, accountID := range order {
		posting = append(posting, ledgerdomain.PostingLine{
			AccountID:   accountID,
			Credit:      revenue[accountID],
			Description: description,
			CustomerID:  &customerID,
		})
	}

	if invoice.TaxAmount.IsPositive() {
		taxAccount, err := s.accounts.FindSystemBySubtype(ctx, tx, invoice.OrgID, accountdomain.SubtypeSalesTaxPayable)
		if err != nil {
			return err
		}
		if taxAccount == nil {
			return domain.ErrInvalidAccount
		}
		posting = append(posting, ledgerdomain.PostingLine{
			AccountID:   taxAccount.ID,
			Credit:      invoice.TaxAmount,
			Description: description + " tax",
			CustomerID:  &customerID,
		})
	}
	if invoice.ShippingAmount.IsPositive() {
		posting = append(posting, ledgerdomain.PostingLine{
			AccountID:   salesAccount.ID,
			Credit:      invoice.ShippingAmount,
			Description: description + " shipping",
			CustomerID:  &customerID,
		})
	}
	if invoice.DiscountAmount.IsPositive() {
		posting = append(posting, ledgerdomain.PostingLine{
			AccountID:   salesAccount.ID,
			Debit:       invoice.DiscountAmount,
			Description: description + " discount",
			CustomerID:  &customerID,
		})
	}

	_, err = s.ledger.Post(ctx, tx, ledgerdomain.PostingRequest{
		OrgID:           invoice.OrgID,
		TransactionType: ledgerdomain.TransactionTypeInvoice,
		SourceID:        invoice.ID,
		TransactionDate: invoice.IssueDate,
		Lines:           posting,
	})
	return err
}

func (s *Service) resolveAR(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) (snowflake.ID, error) {
	if invoice.ARAccountID != nil {
		return *invoice.ARAccountID, nil
	}
	ar, err := s.accounts.FindSystemBySubtype(ctx, tx, invoice.OrgID, accountdomain.SubtypeAccountsReceivable)
	if err != nil {
		return 0, err
	}
	if ar == nil {
		return 0, domain.ErrInvalidAccount
	}
	return ar.ID, nil
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

func applyTotals(invoice *domain.Invoice, lines []domain.InvoiceLineItem) {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount)
		tax = tax.Add(line.TaxAmount)
	}
	invoice.Subtotal = money.Round2(subtotal)
	invoice.TaxAmount = money.Round2(tax)
	invoice.Total = money.Round2(
		invoice.Subtotal.Add(invoice.TaxAmount).
			Add(invoice.ShippingAmount).Sub(invoice.DiscountAmount))
	invoice.AmountDue = money.Round2(invoice.Total.Sub(invoice.AmountPaid))
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
