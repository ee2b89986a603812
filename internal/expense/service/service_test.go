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
	"github.com/smallbiznis/ledgerly/internal/expense/domain"
	"github.com/smallbiznis/ledgerly/internal/expense/repository"
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
	vendordomain "github.com/smallbiznis/ledgerly/internal/vendors/domain"
	vendorrepository "github.com/smallbiznis/ledgerly/internal/vendors/repository"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type expenseFixture struct {
	svc        domain.Service
	db         *gorm.DB
	ctx        context.Context
	orgID      snowflake.ID
	vendorID   snowflake.ID
	rentID     snowflake.ID
	checkingID snowflake.ID
}

func setupExpenseService(t *testing.T) *expenseFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&accountdomain.Account{},
		&vendordomain.Vendor{},
		&domain.Expense{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalEntryLine{},
		&sequencedomain.DocumentSequence{},
		&ledgerdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(5)
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
	svc := NewService(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     repository.Provide(),
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
		Slug:                 "acme-studio-exp",
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
		Name:      "Utility Co",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&vendor).Error)

	var rent, checking accountdomain.Account
	require.NoError(t, db.Where("org_id = ? AND account_number = ?", orgID, "6000").First(&rent).Error)
	require.NoError(t, db.Where("org_id = ? AND account_number = ?", orgID, "1010").First(&checking).Error)

	return &expenseFixture{
		svc:        svc,
		db:         db,
		ctx:        ctx,
		orgID:      orgID,
		vendorID:   vendor.ID,
		rentID:     rent.ID,
		checkingID: checking.ID,
	}
}

func (f *expenseFixture) entries(t *testing.T, expenseID snowflake.ID) []ledgerdomain.LedgerEntry {
	t.Helper()
	var entries []ledgerdomain.LedgerEntry
	require.NoError(t, f.db.
		Where("org_id = ? AND source_id = ?", f.orgID, expenseID).
		Order("id asc").Find(&entries).Error)
	return entries
}

func TestCreateExpenseWithPaymentAccountPosts(t *testing.T) {
	f := setupExpenseService(t)

	expense, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID:        f.rentID.String(),
		PaymentAccountID: f.checkingID.String(),
		VendorID:         f.vendorID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(250)},
		Memo:             "June rent",
	})
	require.NoError(t, err)
	assert.Equal(t, "EXP-0001", expense.ExpenseNumber)
	assert.True(t, expense.Posted())

	entries := f.entries(t, expense.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, ledgerdomain.TransactionTypeExpense, entries[0].TransactionType)
	var debits, credits decimal.Decimal
	for _, e := range entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	assert.True(t, debits.Equal(decimal.NewFromInt(250)))
	assert.True(t, credits.Equal(decimal.NewFromInt(250)))
}

func TestCreateExpenseWithoutPaymentAccountDoesNotPost(t *testing.T) {
	f := setupExpenseService(t)

	expense, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID: f.rentID.String(),
		Amount:    money.Input{Amount: decimal.NewFromInt(90)},
	})
	require.NoError(t, err)
	assert.False(t, expense.Posted())
	assert.Empty(t, f.entries(t, expense.ID))
}

func TestSettingPaymentAccountPostsExpense(t *testing.T) {
	f := setupExpenseService(t)

	expense, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID: f.rentID.String(),
		Amount:    money.Input{Amount: decimal.NewFromInt(60)},
	})
	require.NoError(t, err)

	paymentID := f.checkingID.String()
	updated, err := f.svc.Update(f.ctx, expense.ID.String(), domain.UpdateExpenseRequest{
		PaymentAccountID: &paymentID,
	})
	require.NoError(t, err)
	assert.True(t, updated.Posted())
	assert.Len(t, f.entries(t, expense.ID), 2)
}

func TestPostedExpenseAmountImmutable(t *testing.T) {
	f := setupExpenseService(t)

	expense, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID:        f.rentID.String(),
		PaymentAccountID: f.checkingID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(250)},
	})
	require.NoError(t, err)

	newAmount := money.Input{Amount: decimal.NewFromInt(300)}
	_, err = f.svc.Update(f.ctx, expense.ID.String(), domain.UpdateExpenseRequest{
		Amount: &newAmount,
	})
	assert.ErrorIs(t, err, domain.ErrPostedImmutable)

	memo := "corrected memo"
	updated, err := f.svc.Update(f.ctx, expense.ID.String(), domain.UpdateExpenseRequest{
		Memo: &memo,
	})
	require.NoError(t, err)
	assert.Equal(t, "corrected memo", updated.Memo)
}

func TestDeletePostedExpenseRefused(t *testing.T) {
	f := setupExpenseService(t)

	expense, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID:        f.rentID.String(),
		PaymentAccountID: f.checkingID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(40)},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(f.ctx, expense.ID.String()), domain.ErrPostedDelete)
}

func TestDeleteUnpostedExpense(t *testing.T) {
	f := setupExpenseService(t)

	expense, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID: f.rentID.String(),
		Amount:    money.Input{Amount: decimal.NewFromInt(40)},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, expense.ID.String()))
	_, err = f.svc.GetByID(f.ctx, expense.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVoidExpenseReversesPostings(t *testing.T) {
	f := setupExpenseService(t)

	expense, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID:        f.rentID.String(),
		PaymentAccountID: f.checkingID.String(),
		Amount:           money.Input{Amount: decimal.NewFromInt(150)},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Void(f.ctx, expense.ID.String()))

	reloaded, err := f.svc.GetByID(f.ctx, expense.ID.String())
	require.NoError(t, err)
	assert.True(t, reloaded.IsVoided)
	require.NotNil(t, reloaded.VoidedAt)

	entries := f.entries(t, expense.ID)
	require.Len(t, entries, 4)
	net := decimal.Zero
	for _, e := range entries {
		net = net.Add(e.Debit).Sub(e.Credit)
	}
	assert.True(t, net.IsZero())

	assert.ErrorIs(t, f.svc.Void(f.ctx, expense.ID.String()), domain.ErrAlreadyVoided)
}

func TestExpenseRequiresExpenseAccount(t *testing.T) {
	f := setupExpenseService(t)

	// The payment account is an asset; using it as the expense account
	// must be refused.
	_, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID: f.checkingID.String(),
		Amount:    money.Input{Amount: decimal.NewFromInt(10)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)
}

func TestExpenseRejectsNonPositiveAmount(t *testing.T) {
	f := setupExpenseService(t)

	_, err := f.svc.Create(f.ctx, domain.CreateExpenseRequest{
		AccountID: f.rentID.String(),
		Amount:    money.Input{Amount: decimal.NewFromInt(-5)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
