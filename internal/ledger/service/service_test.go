package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	"github.com/smallbiznis/ledgerly/internal/ledger/domain"
	"github.com/smallbiznis/ledgerly/internal/ledger/repository"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupLedgerService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&accountdomain.Account{}, &domain.LedgerEntry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db, node
}

func seedAccount(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, name string, accountType accountdomain.AccountType) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	account := accountdomain.Account{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      name,
		Type:      accountType,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&account).Error)
	return account.ID
}

func TestPostWritesBalancedEntries(t *testing.T) {
	svc, db, node := setupLedgerService(t)
	ctx := context.Background()
	orgID := snowflake.ID(100)

	cash := seedAccount(t, db, node, orgID, "Cash", accountdomain.AccountTypeAsset)
	sales := seedAccount(t, db, node, orgID, "Sales Revenue", accountdomain.AccountTypeIncome)
	sourceID := node.Generate()

	entries, err := svc.Post(ctx, db, domain.PostingRequest{
		OrgID:           orgID,
		TransactionType: domain.TransactionTypeInvoice,
		SourceID:        sourceID,
		TransactionDate: date.New(2026, time.March, 15),
		Lines: []domain.PostingLine{
			{AccountID: cash, Debit: decimal.NewFromInt(150), Description: "Invoice INV-0001"},
			{AccountID: sales, Credit: decimal.NewFromInt(150), Description: "Invoice INV-0001"},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var stored []domain.LedgerEntry
	require.NoError(t, db.Where("org_id = ? AND source_id = ?", orgID, sourceID).Order("id asc").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, domain.TransactionTypeInvoice, stored[0].TransactionType)
	assert.True(t, stored[0].IsPosted)
	assert.Equal(t, "2026-03-15", stored[0].TransactionDate.String())
	assert.True(t, stored[0].Debit.Equal(decimal.NewFromInt(150)))
	assert.True(t, stored[1].Credit.Equal(decimal.NewFromInt(150)))
}

func TestPostRejectsUnbalanced(t *testing.T) {
	svc, db, node := setupLedgerService(t)
	orgID := snowflake.ID(100)

	cash := seedAccount(t, db, node, orgID, "Cash", accountdomain.AccountTypeAsset)
	sales := seedAccount(t, db, node, orgID, "Sales Revenue", accountdomain.AccountTypeIncome)

	_, err := svc.Post(context.Background(), db, domain.PostingRequest{
		OrgID:           orgID,
		TransactionType: domain.TransactionTypeInvoice,
		SourceID:        node.Generate(),
		TransactionDate: date.New(2026, time.March, 15),
		Lines: []domain.PostingLine{
			{AccountID: cash, Debit: decimal.NewFromInt(150)},
			{AccountID: sales, Credit: decimal.NewFromInt(120)},
		},
	})
	assert.ErrorIs(t, err, domain.ErrUnbalancedPosting)
}

func TestPostToleratesRoundingDrift(t *testing.T) {
	svc, db, node := setupLedgerService(t)
	orgID := snowflake.ID(100)

	cash := seedAccount(t, db, node, orgID, "Cash", accountdomain.AccountTypeAsset)
	sales := seedAccount(t, db, node, orgID, "Sales Revenue", accountdomain.AccountTypeIncome)

	_, err := svc.Post(context.Background(), db, domain.PostingRequest{
		OrgID:           orgID,
		TransactionType: domain.TransactionTypeInvoice,
		SourceID:        node.Generate(),
		TransactionDate: date.New(2026, time.March, 15),
		Lines: []domain.PostingLine{
			{AccountID: cash, Debit: decimal.NewFromFloat(100.01)},
			{AccountID: sales, Credit: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)

	_, err = svc.Post(context.Background(), db, domain.PostingRequest{
		OrgID:           orgID,
		TransactionType: domain.TransactionTypeInvoice,
		SourceID:        node.Generate(),
		TransactionDate: date.New(2026, time.March, 15),
		Lines: []domain.PostingLine{
			{AccountID: cash, Debit: decimal.NewFromFloat(100.02)},
			{AccountID: sales, Credit: decimal.NewFromInt(100)},
		},
	})
	assert.ErrorIs(t, err, domain.ErrUnbalancedPosting)
}

func TestPostRejectsInvalidLines(t *testing.T) {
	svc, db, node := setupLedgerService(t)
	orgID := snowflake.ID(100)

	cash := seedAccount(t, db, node, orgID, "Cash", accountdomain.AccountTypeAsset)
	base := domain.PostingRequest{
		OrgID:           orgID,
		TransactionType: domain.TransactionTypeJournalEntry,
		SourceID:        node.Generate(),
		TransactionDate: date.New(2026, time.March, 15),
	}

	req := base
	req.Lines = nil
	_, err := svc.Post(context.Background(), db, req)
	assert.ErrorIs(t, err, domain.ErrEmptyPosting)

	req = base
	req.Lines = []domain.PostingLine{
		{AccountID: cash, Debit: decimal.NewFromInt(50), Credit: decimal.NewFromInt(50)},
		{AccountID: cash, Debit: decimal.NewFromInt(50)},
	}
	_, err = svc.Post(context.Background(), db, req)
	assert.ErrorIs(t, err, domain.ErrInvalidLineAmount)

	req = base
	req.Lines = []domain.PostingLine{
		{AccountID: cash, Debit: decimal.NewFromInt(-50)},
		{AccountID: cash, Credit: decimal.NewFromInt(-50)},
	}
	_, err = svc.Post(context.Background(), db, req)
	assert.ErrorIs(t, err, domain.ErrInvalidLineAmount)
}

func TestPostRejectsUnknownAccount(t *testing.T) {
	svc, db, node := setupLedgerService(t)
	orgID := snowflake.ID(100)

	cash := seedAccount(t, db, node, orgID, "Cash", accountdomain.AccountTypeAsset)
	foreign := seedAccount(t, db, node, snowflake.ID(200), "Cash", accountdomain.AccountTypeAsset)

	_, err := svc.Post(context.Background(), db, domain.PostingRequest{
		OrgID:           orgID,
		TransactionType: domain.TransactionTypeJournalEntry,
		SourceID:        node.Generate(),
		TransactionDate: date.New(2026, time.March, 15),
		Lines: []domain.PostingLine{
			{AccountID: cash, Debit: decimal.NewFromInt(50)},
			{AccountID: foreign, Credit: decimal.NewFromInt(50)},
		},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)
}

func TestPostValidatesHeader(t *testing.T) {
	svc, db, node := setupLedgerService(t)

	_, err := svc.Post(context.Background(), db, domain.PostingRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	_, err = svc.Post(context.Background(), db, domain.PostingRequest{OrgID: 100, TransactionType: "refund"})
	assert.ErrorIs(t, err, domain.ErrInvalidSourceType)

	_, err = svc.Post(context.Background(), db, domain.PostingRequest{OrgID: 100, TransactionType: domain.TransactionTypeInvoice})
	assert.ErrorIs(t, err, domain.ErrInvalidSourceID)

	_, err = svc.Post(context.Background(), db, domain.PostingRequest{
		OrgID:           100,
		TransactionType: domain.TransactionTypeInvoice,
		SourceID:        node.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestReverseSourceSwapsSides(t *testing.T) {
	svc, db, node := setupLedgerService(t)
	ctx := context.Background()
	orgID := snowflake.ID(100)

	cash := seedAccount(t, db, node, orgID, "Cash", accountdomain.AccountTypeAsset)
	sales := seedAccount(t, db, node, orgID, "Sales Revenue", accountdomain.AccountTypeIncome)
	sourceID := node.Generate()

	_, err := svc.Post(ctx, db, domain.PostingRequest{
		OrgID:           orgID,
		TransactionType: domain.TransactionTypeInvoice,
		SourceID:        sourceID,
		TransactionDate: date.New(2026, time.March, 15),
		Lines: []domain.PostingLine{
			{AccountID: cash, Debit: decimal.NewFromInt(150), Description: "Invoice INV-0001"},
			{AccountID: sales, Credit: decimal.NewFromInt(150), Description: "Invoice INV-0001"},
		},
	})
	require.NoError(t, err)

	reversals, err := svc.ReverseSource(ctx, db, orgID, domain.TransactionTypeInvoice, sourceID, date.New(2026, time.March, 20))
	require.NoError(t, err)
	require.Len(t, reversals, 2)
	for _, entry := range reversals {
		assert.Equal(t, "Void: Invoice INV-0001", entry.Description)
		assert.Equal(t, "2026-03-20", entry.TransactionDate.String())
	}

	sums, err := repository.Provide().SumByAccount(ctx, db, orgID, domain.SumFilter{})
	require.NoError(t, err)
	for _, sum := range sums {
		assert.True(t, sum.Debit.Equal(sum.Credit), "account %s should net to zero", sum.AccountID)
	}
}

func TestReverseSourceWithoutEntries(t *testing.T) {
	svc, db, node := setupLedgerService(t)

	_, err := svc.ReverseSource(context.Background(), db, snowflake.ID(100), domain.TransactionTypeInvoice, node.Generate(), date.New(2026, time.March, 20))
	assert.ErrorIs(t, err, domain.ErrNothingToReverse)
}
