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
	billdomain "github.com/smallbiznis/ledgerly/internal/bill/domain"
	billrepository "github.com/smallbiznis/ledgerly/internal/bill/repository"
	billservice "github.com/smallbiznis/ledgerly/internal/bill/service"
	"github.com/smallbiznis/ledgerly/internal/clock"
	journaldomain "github.com/smallbiznis/ledgerly/internal/journal/domain"
	journalrepository "github.com/smallbiznis/ledgerly/internal/journal/repository"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/ledgerly/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/ledgerly/internal/ledger/service"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	orgrepository "github.com/smallbiznis/ledgerly/internal/organization/repository"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/ledgerly/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/ledgerly/internal/sequence/service"
	taxdomain "github.com/smallbiznis/ledgerly/internal/tax/domain"
	taxrepository "github.com/smallbiznis/ledgerly/internal/tax/repository"
	"github.com/smallbiznis/ledgerly/internal/vendorpayment/domain"
	"github.com/smallbiznis/ledgerly/internal/vendorpayment/repository"
	vendordomain "github.com/smallbiznis/ledgerly/internal/vendors/domain"
	vendorrepository "github.com/smallbiznis/ledgerly/internal/vendors/repository"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type vendorPaymentFixture struct {
	svc        domain.Service
	billSvc    billdomain.Service
	db         *gorm.DB
	ctx        context.Context
	orgID      snowflake.ID
	vendorID   snowflake.ID
	expenseID  snowflake.ID
	checkingID snowflake.ID
}

func setupVendorPaymentService(t *testing.T) *vendorPaymentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&accountdomain.Account{},
		&vendordomain.Vendor{},
		&taxdomain.TaxRate{},
		&billdomain.Bill{},
		&billdomain.BillLineItem{},
		&domain.VendorPayment{},
		&domain.BillPaymentApplication{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalEntryLine{},
		&sequencedomain.DocumentSequence{},
		&ledgerdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(4)
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
	billSvc := billservice.NewService(billservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     billrepository.Provide(),
		Vendors:  vendorrepository.Provide(),
		Accounts: accountrepository.Provide(),
		TaxRates: taxrepository.Provide(),
		Orgs:     orgrepository.Provide(),
		Ledger:   ledgerSvc,
		Sequence: sequenceSvc,
		Audit:    auditSvc,
	})
	svc := NewService(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     repository.Provide(),
		Bills:    billrepository.Provide(),
		BillSvc:  billSvc,
		Vendors:  vendorrepository.Provide(),
		Accounts: accountrepository.Provide(),
		Orgs:     orgrepository.Provide(),
		Ledger:   ledgerSvc,
		Sequence: sequenceSvc,
		Audit:    auditSvc,
	})

	orgID := node.Generate()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID:                   orgID,
		Name:                 "Acme Studio",
		Slug:                 "acme-studio-vp",
		BaseCurrency:         "USD",
		FiscalYearStartMonth: 1,
		Timezone:             "UTC",
		CreatedAt:            now,
		UpdatedAt:            now,
	}).Error)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	require.NoError(t, accountSvc.ProvisionDefaults(ctx, db, orgID))

	vendor := vendordomain.Vendor{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      "Paper Supply Co",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&vendor).Error)

	var rent, checking accountdomain.Account
	require.NoError(t, db.Where("org_id = ? AND account_number = ?", orgID, "6000").First(&rent).Error)
	require.NoError(t, db.Where("org_id = ? AND account_number = ?", orgID, "1010").First(&checking).Error)

	return &vendorPaymentFixture{
		svc:        svc,
		billSvc:    billSvc,
		db:         db,
		ctx:        ctx,
		orgID:      orgID,
		vendorID:   vendor.ID,
		expenseID:  rent.ID,
		checkingID: checking.ID,
	}
}

func (f *vendorPaymentFixture) openBill(t *testing.T, amount int64) billdomain.BillDetail {
	t.Helper()
	detail, err := f.billSvc.Create(f.ctx, billdomain.CreateBillRequest{
		VendorID: f.vendorID.String(),
		LineItems: []billdomain.BillLineRequest{{
			AccountID: f.expenseID.String(),
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: money.Input{Amount: decimal.NewFromInt(amount)},
		}},
	})
	require.NoError(t, err)
	return detail
}

func (f *vendorPaymentFixture) reloadBill(t *testing.T, id snowflake.ID) billdomain.Bill {
	t.Helper()
	var bill billdomain.Bill
	require.NoError(t, f.db.Where("org_id = ? AND id = ?", f.orgID, id).First(&bill).Error)
	return bill
}

func (f *vendorPaymentFixture) paymentEntries(t *testing.T, paymentID snowflake.ID) []ledgerdomain.LedgerEntry {
	t.Helper()
	var entries []ledgerdomain.LedgerEntry
	require.NoError(t, f.db.
		Where("org_id = ? AND source_id = ?", f.orgID, paymentID).
		Order("id asc").Find(&entries).Error)
	return entries
}

func TestCreateVendorPaymentSettlesBill(t *testing.T) {
	f := setupVendorPaymentService(t)
	bill := f.openBill(t, 200)

	detail, err := f.svc.Create(f.ctx, domain.CreateVendorPaymentRequest{
		VendorID:         f.vendorID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(200)},
		PaymentAccountID: f.checkingID.String(),
		BillsApplied: []domain.ApplicationRequest{{
			BillID: bill.ID.String(),
			Amount: money.Input{Amount: decimal.NewFromInt(200)},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "VP-0001", detail.PaymentNumber)
	require.Len(t, detail.Applications, 1)

	reloaded := f.reloadBill(t, bill.ID)
	assert.Equal(t, billdomain.BillStatusPaid, reloaded.Status)
	assert.True(t, reloaded.AmountDue.IsZero())
	require.NotNil(t, reloaded.PaidAt)

	// Settlement debits AP and credits the payment account.
	entries := f.paymentEntries(t, detail.ID)
	require.Len(t, entries, 2)
	net := decimal.Zero
	for _, e := range entries {
		assert.Equal(t, ledgerdomain.TransactionTypeBillPayment, e.TransactionType)
		net = net.Add(e.Debit).Sub(e.Credit)
	}
	assert.True(t, net.IsZero())
}

func TestPayBillPartial(t *testing.T) {
	f := setupVendorPaymentService(t)
	bill := f.openBill(t, 300)

	detail, err := f.svc.PayBill(f.ctx, bill.ID.String(), domain.PayBillRequest{
		Amount:           money.Input{Amount: decimal.NewFromInt(120)},
		PaymentAccountID: f.checkingID.String(),
	})
	require.NoError(t, err)
	assert.True(t, detail.Amount.Equal(decimal.NewFromInt(120)))

	reloaded := f.reloadBill(t, bill.ID)
	assert.Equal(t, billdomain.BillStatusPartial, reloaded.Status)
	assert.True(t, reloaded.AmountDue.Equal(decimal.NewFromInt(180)))
	assert.Nil(t, reloaded.PaidAt)
}

func TestPayBillAboveAmountDueRefused(t *testing.T) {
	f := setupVendorPaymentService(t)
	bill := f.openBill(t, 100)

	_, err := f.svc.PayBill(f.ctx, bill.ID.String(), domain.PayBillRequest{
		Amount:           money.Input{Amount: decimal.NewFromInt(150)},
		PaymentAccountID: f.checkingID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrExceedsAmountDue)
}

func TestVendorPaymentVendorMismatch(t *testing.T) {
	f := setupVendorPaymentService(t)
	bill := f.openBill(t, 100)

	now := time.Now().UTC()
	other := vendordomain.Vendor{
		ID:        snowflake.ID(888001),
		OrgID:     f.orgID,
		Name:      "Other Vendor",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&other).Error)

	_, err := f.svc.Create(f.ctx, domain.CreateVendorPaymentRequest{
		VendorID:         other.ID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(100)},
		PaymentAccountID: f.checkingID.String(),
		BillsApplied: []domain.ApplicationRequest{{
			BillID: bill.ID.String(),
			Amount: money.Input{Amount: decimal.NewFromInt(100)},
		}},
	})
	assert.ErrorIs(t, err, domain.ErrVendorMismatch)
}

func TestVendorPaymentOverApplied(t *testing.T) {
	f := setupVendorPaymentService(t)
	bill := f.openBill(t, 500)

	_, err := f.svc.Create(f.ctx, domain.CreateVendorPaymentRequest{
		VendorID:         f.vendorID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(50)},
		PaymentAccountID: f.checkingID.String(),
		BillsApplied: []domain.ApplicationRequest{{
			BillID: bill.ID.String(),
			Amount: money.Input{Amount: decimal.NewFromInt(80)},
		}},
	})
	assert.ErrorIs(t, err, domain.ErrOverApplied)
}

func TestVendorPaymentSplitApplicationsCappedInAggregate(t *testing.T) {
	f := setupVendorPaymentService(t)
	bill := f.openBill(t, 2000)

	// Each row fits under the amount due on its own; together they overpay.
	_, err := f.svc.Create(f.ctx, domain.CreateVendorPaymentRequest{
		VendorID:         f.vendorID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(3000)},
		PaymentAccountID: f.checkingID.String(),
		BillsApplied: []domain.ApplicationRequest{
			{
				BillID: bill.ID.String(),
				Amount: money.Input{Amount: decimal.NewFromInt(1500)},
			},
			{
				BillID: bill.ID.String(),
				Amount: money.Input{Amount: decimal.NewFromInt(1500)},
			},
		},
	})
	assert.ErrorIs(t, err, domain.ErrExceedsAmountDue)

	reloaded := f.reloadBill(t, bill.ID)
	assert.Equal(t, billdomain.BillStatusOpen, reloaded.Status)
	assert.True(t, reloaded.AmountPaid.IsZero())
	assert.True(t, reloaded.AmountDue.Equal(decimal.NewFromInt(2000)))

	// Two rows that fit together still settle in one payment.
	detail, err := f.svc.Create(f.ctx, domain.CreateVendorPaymentRequest{
		VendorID:         f.vendorID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(2000)},
		PaymentAccountID: f.checkingID.String(),
		BillsApplied: []domain.ApplicationRequest{
			{
				BillID: bill.ID.String(),
				Amount: money.Input{Amount: decimal.NewFromInt(1200)},
			},
			{
				BillID: bill.ID.String(),
				Amount: money.Input{Amount: decimal.NewFromInt(800)},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, detail.Applications, 2)

	reloaded = f.reloadBill(t, bill.ID)
	assert.Equal(t, billdomain.BillStatusPaid, reloaded.Status)
	assert.True(t, reloaded.AmountDue.IsZero())
}

func TestVoidVendorPaymentRevertsBill(t *testing.T) {
	f := setupVendorPaymentService(t)
	bill := f.openBill(t, 200)

	detail, err := f.svc.PayBill(f.ctx, bill.ID.String(), domain.PayBillRequest{
		PaymentAccountID: f.checkingID.String(),
	})
	require.NoError(t, err)
	require.Equal(t, billdomain.BillStatusPaid, f.reloadBill(t, bill.ID).Status)

	require.NoError(t, f.svc.Void(f.ctx, detail.ID.String()))

	reloaded := f.reloadBill(t, bill.ID)
	assert.Equal(t, billdomain.BillStatusOpen, reloaded.Status)
	assert.True(t, reloaded.AmountPaid.IsZero())
	assert.True(t, reloaded.AmountDue.Equal(decimal.NewFromInt(200)))
	assert.Nil(t, reloaded.PaidAt)

	var remaining int64
	require.NoError(t, f.db.Model(&domain.BillPaymentApplication{}).
		Where("org_id = ? AND vendor_payment_id = ?", f.orgID, detail.ID).
		Count(&remaining).Error)
	assert.Zero(t, remaining)

	entries := f.paymentEntries(t, detail.ID)
	require.Len(t, entries, 4)
	net := decimal.Zero
	for _, e := range entries {
		net = net.Add(e.Debit).Sub(e.Credit)
	}
	assert.True(t, net.IsZero())

	assert.ErrorIs(t, f.svc.Void(f.ctx, detail.ID.String()), domain.ErrAlreadyVoided)
}
