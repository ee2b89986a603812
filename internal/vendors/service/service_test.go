package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	auditrepository "github.com/smallbiznis/ledgerly/internal/audit/repository"
	auditservice "github.com/smallbiznis/ledgerly/internal/audit/service"
	auditcontext "github.com/smallbiznis/ledgerly/internal/auditcontext"
	billdomain "github.com/smallbiznis/ledgerly/internal/bill/domain"
	expensedomain "github.com/smallbiznis/ledgerly/internal/expense/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	vendorpaymentdomain "github.com/smallbiznis/ledgerly/internal/vendorpayment/domain"
	"github.com/smallbiznis/ledgerly/internal/vendors/domain"
	"github.com/smallbiznis/ledgerly/internal/vendors/repository"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupVendorService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Vendor{},
		&billdomain.Bill{},
		&billdomain.BillLineItem{},
		&vendorpaymentdomain.VendorPayment{},
		&vendorpaymentdomain.BillPaymentApplication{},
		&expensedomain.Expense{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	svc := New(Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  repository.Provide(),
		Audit: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Repo:  auditrepository.Provide(),
		}),
	})
	return svc, db, node
}

func vendorContext(orgID int64) context.Context {
	ctx := orgcontext.WithOrgID(context.Background(), orgID)
	return auditcontext.WithActor(ctx, "user", "42")
}

func TestVendorCreateAndGet(t *testing.T) {
	svc, _, _ := setupVendorService(t)
	ctx := vendorContext(100)

	created, err := svc.Create(ctx, domain.CreateVendorRequest{
		Name:  " Northwind Traders ",
		Email: "ap@northwind.test",
		Phone: "555-0188",
	})
	require.NoError(t, err)
	assert.Equal(t, "Northwind Traders", created.Name)
	assert.True(t, created.IsActive)

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "ap@northwind.test", got.Email)
}

func TestVendorCreateValidation(t *testing.T) {
	svc, _, _ := setupVendorService(t)

	_, err := svc.Create(context.Background(), domain.CreateVendorRequest{Name: "Northwind"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	ctx := vendorContext(100)

	_, err = svc.Create(ctx, domain.CreateVendorRequest{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateVendorRequest{Name: "Northwind", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestVendorCrossOrganizationInvisible(t *testing.T) {
	svc, _, _ := setupVendorService(t)

	created, err := svc.Create(vendorContext(100), domain.CreateVendorRequest{Name: "Northwind"})
	require.NoError(t, err)

	_, err = svc.GetByID(vendorContext(200), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVendorDeleteUnreferenced(t *testing.T) {
	svc, db, _ := setupVendorService(t)
	ctx := vendorContext(100)

	created, err := svc.Create(ctx, domain.CreateVendorRequest{Name: "Northwind"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	_, err = svc.GetByID(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var logged auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", "vendor.deleted").First(&logged).Error)
}

func TestVendorDeleteReferencedDeactivates(t *testing.T) {
	svc, db, node := setupVendorService(t)
	ctx := vendorContext(100)

	created, err := svc.Create(ctx, domain.CreateVendorRequest{Name: "Northwind"})
	require.NoError(t, err)

	vendorID := created.ID
	expense := expensedomain.Expense{
		ID:            node.Generate(),
		OrgID:         100,
		ExpenseNumber: "EXP-0001",
		AccountID:     node.Generate(),
		VendorID:      &vendorID,
		ExpenseDate:   date.New(2025, 3, 5),
		Amount:        decimal.NewFromInt(75),
		Currency:      "USD",
	}
	require.NoError(t, db.Create(&expense).Error)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	var logged auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", "vendor.deactivated").First(&logged).Error)
}
