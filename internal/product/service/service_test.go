package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	accountrepository "github.com/smallbiznis/ledgerly/internal/account/repository"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	auditrepository "github.com/smallbiznis/ledgerly/internal/audit/repository"
	auditservice "github.com/smallbiznis/ledgerly/internal/audit/service"
	auditcontext "github.com/smallbiznis/ledgerly/internal/auditcontext"
	invoicedomain "github.com/smallbiznis/ledgerly/internal/invoice/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/smallbiznis/ledgerly/internal/product/repository"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupProductService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Product{},
		&accountdomain.Account{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     repository.Provide(),
		Accounts: accountrepository.Provide(),
		Audit: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Repo:  auditrepository.Provide(),
		}),
	})
	return svc, db, node
}

func productContext(orgID int64) context.Context {
	ctx := orgcontext.WithOrgID(context.Background(), orgID)
	return auditcontext.WithActor(ctx, "user", "42")
}

func seedAccount(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID int64, name string, accType accountdomain.AccountType) accountdomain.Account {
	t.Helper()
	account := accountdomain.Account{
		ID:       node.Generate(),
		OrgID:    snowflake.ID(orgID),
		Name:     name,
		Type:     accType,
		IsActive: true,
	}
	require.NoError(t, db.Create(&account).Error)
	return account
}

func TestProductCreateWithAccounts(t *testing.T) {
	svc, db, node := setupProductService(t)
	ctx := productContext(100)

	income := seedAccount(t, db, node, 100, "Sales Revenue", accountdomain.AccountTypeIncome)

	created, err := svc.Create(ctx, domain.CreateProductRequest{
		Name:            "Standing Desk",
		SKU:             "DESK-01",
		UnitPrice:       money.Input{Amount: decimal.NewFromFloat(499.99)},
		IncomeAccountID: income.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, created.UnitPrice.Equal(decimal.NewFromFloat(499.99)))
	require.NotNil(t, created.IncomeAccountID)
	assert.Equal(t, income.ID, *created.IncomeAccountID)
}

func TestProductCreateValidation(t *testing.T) {
	svc, db, node := setupProductService(t)
	ctx := productContext(100)

	_, err := svc.Create(ctx, domain.CreateProductRequest{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateProductRequest{
		Name:      "Desk",
		UnitPrice: money.Input{Amount: decimal.NewFromInt(-5)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	// expense account offered where an income account is required
	expense := seedAccount(t, db, node, 100, "Office Supplies", accountdomain.AccountTypeExpense)
	_, err = svc.Create(ctx, domain.CreateProductRequest{
		Name:            "Desk",
		IncomeAccountID: expense.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)
}

func TestProductUpdateClearsAccount(t *testing.T) {
	svc, db, node := setupProductService(t)
	ctx := productContext(100)

	income := seedAccount(t, db, node, 100, "Sales Revenue", accountdomain.AccountTypeIncome)
	created, err := svc.Create(ctx, domain.CreateProductRequest{
		Name:            "Desk",
		IncomeAccountID: income.ID.String(),
	})
	require.NoError(t, err)

	empty := ""
	updated, err := svc.Update(ctx, created.ID.String(), domain.UpdateProductRequest{
		IncomeAccountID: &empty,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.IncomeAccountID)
}

func TestProductDeleteReferencedDeactivates(t *testing.T) {
	svc, db, node := setupProductService(t)
	ctx := productContext(100)

	created, err := svc.Create(ctx, domain.CreateProductRequest{Name: "Desk"})
	require.NoError(t, err)

	productID := created.ID
	line := invoicedomain.InvoiceLineItem{
		ID:        node.Generate(),
		OrgID:     100,
		InvoiceID: node.Generate(),
		ProductID: &productID,
		Quantity:  decimal.NewFromInt(1),
	}
	require.NoError(t, db.Create(&line).Error)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestProductDeleteUnreferenced(t *testing.T) {
	svc, _, _ := setupProductService(t)
	ctx := productContext(100)

	created, err := svc.Create(ctx, domain.CreateProductRequest{Name: "Desk"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	_, err = svc.GetByID(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
