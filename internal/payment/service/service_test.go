package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	accountrepository "github.com/smallbiznis/ledgerly/internal/account/repository"
	accountservice "github.com/smallbiznis/ledgerly/internal/account/service"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	auditrepository "github.com/smallbiznis/ledgerly/internal/audit/repository"
	auditservice "github.com/smallbiznis/ledgerly/internal/audit/service"
	"github.com/smallbiznis/ledgerly/internal/clock"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	customerrepository "github.com/smallbiznis/ledgerly/internal/customer/repository"
	invoicedomain "github.com/smallbiznis/ledgerly/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/ledgerly/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/ledgerly/internal/invoice/service"
	journaldomain "github.com/smallbiznis/ledgerly/internal/journal/domain"
	journalrepository "github.com/smallbiznis/ledgerly/internal/journal/repository"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/ledgerly/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/ledgerly/internal/ledger/service"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	orgrepository "github.com/smallbiznis/ledgerly/internal/organization/repository"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/payment/domain"
	"github.com/smallbiznis/ledgerly/internal/payment/repository"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	productrepository "github.com/smallbiznis/ledgerly/internal/product/repository"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/ledgerly/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/ledgerly/internal/sequence/service"
	taxdomain "github.com/smallbiznis/ledgerly/internal/tax/domain"
	taxrepository "github.com/smallbiznis/ledgerly/internal/tax/repository"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentFixture struct {
	svc        domain.Service
	invoiceSvc invoicedomain.Service
	db         *gorm.DB
	ctx        context.Context
	orgID      snowflake.ID
	customerID snowflake.ID
	depositID  snowflake.ID
}

func setupPaymentService(t *testing.T) *paymentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&accountdomain.Account{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&taxdomain.TaxRate{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
		&domain.Payment{},
		&domain.PaymentApplication{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalEntryLine{},
		&sequencedomain.DocumentSequence{},
		&ledgerdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		Log:   log,
		GenID: node,
		Repo:  ledgerrepository.Provide(),
	})
	sequenceSvc := sequenceservice.NewService(sequenceservice.Params{
		Log:   log,
		GenID: node,
		Repo:  sequencerepository.Provide(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	accountSvc := accountservice.New(accountservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       accountrepository.Provide(),
		Orgs:       orgrepository.Provide(),
		Journals:   journalrepository.Provide(),
		Ledger:     ledgerSvc,
		LedgerRepo: ledgerrepository.Provide(),
		Sequence:   sequenceSvc,
		Audit:      auditSvc,
	})
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Repo:      invoicerepository.Provide(),
		Customers: customerrepository.Provide(),
		Accounts:  accountrepository.Provide(),
		Products:  productrepository.Provide(),
		TaxRates:  taxrepository.Provide(),
		Orgs:      orgrepository.Provide(),
		Ledger:    ledgerSvc,
		Sequence:  sequenceSvc,
		Audit:     auditSvc,
	})
	svc := NewService(Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       repository.Provide(),
		Invoices:   invoicerepository.Provide(),
		InvoiceSvc: invoiceSvc,
		Customers:  customerrepository.Provide(),
		Accounts:   accountrepository.Provide(),
		Orgs:       orgrepository.Provide(),
		Ledger:     ledgerSvc,
		Sequence:   sequenceSvc,
		Audit:      auditSvc,
	})

	orgID := node.Generate()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID:                   orgID,
		Name:                 "Acme Studio",
		Slug:                 "acme-studio-pay",
		BaseCurrency:         "USD",
		FiscalYearStartMonth: 1,
		Timezone:             "UTC",
		CreatedAt:            now,
		UpdatedAt:            now,
	}).Error)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	require.NoError(t, accountSvc.ProvisionDefaults(ctx, db, orgID))

	customer := customerdomain.Customer{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      "Globex",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&customer).Error)

	var checking accountdomain.Account
	require.NoError(t, db.Where("org_id = ? AND account_number = ?", orgID, "1010").First(&checking).Error)

	return &paymentFixture{
		svc:        svc,
		invoiceSvc: invoiceSvc,
		db:         db,
		ctx:        ctx,
		orgID:      orgID,
		customerID: customer.ID,
		depositID:  checking.ID,
	}
}

func (f *paymentFixture) sentInvoice(t *testing.T, amount int64) invoicedomain.InvoiceDetail {
	t.Helper()
	detail, err := f.invoiceSvc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customerID.String(),
		Status:     "sent",
		LineItems: []invoicedomain.LineItemRequest{{
			Description: "Work",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   money.Input{Amount: decimal.NewFromInt(amount)},
		}},
	})
	require.NoError(t, err)
	return detail
}

func (f *paymentFixture) reloadInvoice(t *testing.T, id snowflake.ID) invoicedomain.Invoice {
	t.Helper()
	var invoice invoicedomain.Invoice
	require.NoError(t, f.db.Where("org_id = ? AND id = ?", f.orgID, id).First(&invoice).Error)
	return invoice
}

func (f *paymentFixture) paymentEntries(t *testing.T, paymentID snowflake.ID) []ledgerdomain.LedgerEntry {
	t.Helper()
	var entries []ledgerdomain.LedgerEntry
	require.NoError(t, f.db.
		Where("org_id = ? AND source_id = ?", f.orgID, paymentID).
		Order("id asc").Find(&entries).Error)
	return entries
}

func TestCreatePaymentMarksInvoicePaid(t *testing.T) {
	f := setupPaymentService(t)
	invoice := f.sentInvoice(t, 100)

	detail, err := f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID:       f.customerID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(100)},
		DepositAccountID: f.depositID.String(),
		InvoicesApplied: []domain.ApplicationRequest{{
			InvoiceID: invoice.ID.String(),
			Amount:    money.Input{Amount: decimal.NewFromInt(100)},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "PMT-0001", detail.PaymentNumber)
	require.Len(t, detail.Applications, 1)

	reloaded := f.reloadInvoice(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
	assert.True(t, reloaded.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.True(t, reloaded.AmountDue.IsZero())
	require.NotNil(t, reloaded.PaidAt)

	entries := f.paymentEntries(t, detail.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, ledgerdomain.TransactionTypePayment, entries[0].TransactionType)
	net := decimal.Zero
	for _, e := range entries {
		net = net.Add(e.Debit).Sub(e.Credit)
	}
	assert.True(t, net.IsZero())
}

func TestPartialPayment(t *testing.T) {
	f := setupPaymentService(t)
	invoice := f.sentInvoice(t, 200)

	_, err := f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID:       f.customerID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(80)},
		DepositAccountID: f.depositID.String(),
		InvoicesApplied: []domain.ApplicationRequest{{
			InvoiceID: invoice.ID.String(),
			Amount:    money.Input{Amount: decimal.NewFromInt(80)},
		}},
	})
	require.NoError(t, err)

	reloaded := f.reloadInvoice(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, reloaded.Status)
	assert.True(t, reloaded.AmountDue.Equal(decimal.NewFromInt(120)))
	assert.Nil(t, reloaded.PaidAt)
}

func TestPaymentWithoutDepositAccountHasNoEntries(t *testing.T) {
	f := setupPaymentService(t)
	invoice := f.sentInvoice(t, 50)

	detail, err := f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID: f.customerID.String(),
		Amount:     money.Input{Amount: decimal.NewFromInt(50)},
		InvoicesApplied: []domain.ApplicationRequest{{
			InvoiceID: invoice.ID.String(),
			Amount:    money.Input{Amount: decimal.NewFromInt(50)},
		}},
	})
	require.NoError(t, err)
	assert.Empty(t, f.paymentEntries(t, detail.ID))

	// The invoice still settles; only the ledger leg is deferred.
	reloaded := f.reloadInvoice(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
}

func TestPaymentApplicationCeilings(t *testing.T) {
	f := setupPaymentService(t)
	invoice := f.sentInvoice(t, 100)

	_, err := f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID: f.customerID.String(),
		Amount:     money.Input{Amount: decimal.NewFromInt(40)},
		InvoicesApplied: []domain.ApplicationRequest{{
			InvoiceID: invoice.ID.String(),
			Amount:    money.Input{Amount: decimal.NewFromInt(60)},
		}},
	})
	assert.ErrorIs(t, err, domain.ErrOverApplied)

	_, err = f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID: f.customerID.String(),
		Amount:     money.Input{Amount: decimal.NewFromInt(500)},
		InvoicesApplied: []domain.ApplicationRequest{{
			InvoiceID: invoice.ID.String(),
			Amount:    money.Input{Amount: decimal.NewFromInt(150)},
		}},
	})
	assert.ErrorIs(t, err, domain.ErrExceedsAmountDue)
}

func TestPaymentSplitApplicationsCappedInAggregate(t *testing.T) {
	f := setupPaymentService(t)
	invoice := f.sentInvoice(t, 2000)

	// Each row fits under the amount due on its own; together they overpay.
	_, err := f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID:       f.customerID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(3000)},
		DepositAccountID: f.depositID.String(),
		InvoicesApplied: []domain.ApplicationRequest{
			{
				InvoiceID: invoice.ID.String(),
				Amount:    money.Input{Amount: decimal.NewFromInt(1500)},
			},
			{
				InvoiceID: invoice.ID.String(),
				Amount:    money.Input{Amount: decimal.NewFromInt(1500)},
			},
		},
	})
	assert.ErrorIs(t, err, domain.ErrExceedsAmountDue)

	reloaded := f.reloadInvoice(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, reloaded.Status)
	assert.True(t, reloaded.AmountPaid.IsZero())
	assert.True(t, reloaded.AmountDue.Equal(decimal.NewFromInt(2000)))

	// Two rows that fit together still settle in one payment.
	detail, err := f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID:       f.customerID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(2000)},
		DepositAccountID: f.depositID.String(),
		InvoicesApplied: []domain.ApplicationRequest{
			{
				InvoiceID: invoice.ID.String(),
				Amount:    money.Input{Amount: decimal.NewFromInt(1200)},
			},
			{
				InvoiceID: invoice.ID.String(),
				Amount:    money.Input{Amount: decimal.NewFromInt(800)},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, detail.Applications, 2)

	reloaded = f.reloadInvoice(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
	assert.True(t, reloaded.AmountDue.IsZero())
}

func TestPaymentCustomerMismatch(t *testing.T) {
	f := setupPaymentService(t)
	invoice := f.sentInvoice(t, 100)

	now := time.Now().UTC()
	other := customerdomain.Customer{
		ID:        snowflake.ID(777001),
		OrgID:     f.orgID,
		Name:      "Initech",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&other).Error)

	_, err := f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID: other.ID.String(),
		Amount:     money.Input{Amount: decimal.NewFromInt(100)},
		InvoicesApplied: []domain.ApplicationRequest{{
			InvoiceID: invoice.ID.String(),
			Amount:    money.Input{Amount: decimal.NewFromInt(100)},
		}},
	})
	assert.ErrorIs(t, err, domain.ErrCustomerMismatch)
}

func TestApplyToInvoiceDefaultsToAmountDue(t *testing.T) {
	f := setupPaymentService(t)
	invoice := f.sentInvoice(t, 130)

	detail, err := f.svc.ApplyToInvoice(f.ctx, invoice.ID.String(), domain.ApplyToInvoiceRequest{
		DepositAccountID: f.depositID.String(),
	})
	require.NoError(t, err)
	assert.True(t, detail.Amount.Equal(decimal.NewFromInt(130)))
	require.Len(t, detail.Applications, 1)

	reloaded := f.reloadInvoice(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
}

func TestVoidPaymentRevertsInvoice(t *testing.T) {
	f := setupPaymentService(t)
	invoice := f.sentInvoice(t, 100)

	detail, err := f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID:       f.customerID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(100)},
		DepositAccountID: f.depositID.String(),
		InvoicesApplied: []domain.ApplicationRequest{{
			InvoiceID: invoice.ID.String(),
			Amount:    money.Input{Amount: decimal.NewFromInt(100)},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, invoicedomain.InvoiceStatusPaid, f.reloadInvoice(t, invoice.ID).Status)

	require.NoError(t, f.svc.Void(f.ctx, detail.ID.String()))

	reloaded := f.reloadInvoice(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, reloaded.Status)
	assert.True(t, reloaded.AmountPaid.IsZero())
	assert.True(t, reloaded.AmountDue.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, reloaded.PaidAt)

	var remaining int64
	require.NoError(t, f.db.Model(&domain.PaymentApplication{}).
		Where("org_id = ? AND payment_id = ?", f.orgID, detail.ID).
		Count(&remaining).Error)
	assert.Zero(t, remaining)

	// Reversal entries net the payment's ledger effect to zero.
	entries := f.paymentEntries(t, detail.ID)
	require.Len(t, entries, 4)
	net := decimal.Zero
	for _, e := range entries {
		net = net.Add(e.Debit).Sub(e.Credit)
	}
	assert.True(t, net.IsZero())

	assert.ErrorIs(t, f.svc.Void(f.ctx, detail.ID.String()), domain.ErrAlreadyVoided)
}

func TestPaymentToDraftInvoiceRejected(t *testing.T) {
	f := setupPaymentService(t)

	draft, err := f.invoiceSvc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customerID.String(),
		LineItems: []invoicedomain.LineItemRequest{{
			Description: "Draft",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   money.Input{Amount: decimal.NewFromInt(10)},
		}},
	})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, domain.CreatePaymentRequest{
		CustomerID: f.customerID.String(),
		Amount:     money.Input{Amount: decimal.NewFromInt(10)},
		InvoicesApplied: []domain.ApplicationRequest{{
			InvoiceID: draft.ID.String(),
			Amount:    money.Input{Amount: decimal.NewFromInt(10)},
		}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInvoice)
}
