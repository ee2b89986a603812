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
	"github.com/smallbiznis/ledgerly/internal/customer/domain"
	"github.com/smallbiznis/ledgerly/internal/customer/repository"
	invoicedomain "github.com/smallbiznis/ledgerly/internal/invoice/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/ledgerly/internal/payment/domain"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCustomerService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Customer{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentApplication{},
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

func customerContext(orgID int64) context.Context {
	ctx := orgcontext.WithOrgID(context.Background(), orgID)
	return auditcontext.WithActor(ctx, "user", "42")
}

func TestCustomerCreateAndGet(t *testing.T) {
	svc, _, _ := setupCustomerService(t)
	ctx := customerContext(100)

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:         "  Acme Interiors  ",
		Email:        "billing@acme.test",
		Phone:        "555-0100",
		AddressLine1: "12 Main St",
		City:         "Springfield",
		Country:      "US",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Interiors", created.Name)
	assert.True(t, created.IsActive)

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "billing@acme.test", got.Email)
	assert.Equal(t, "Springfield", got.City)
}

func TestCustomerCreateValidation(t *testing.T) {
	svc, _, _ := setupCustomerService(t)

	_, err := svc.Create(context.Background(), domain.CreateCustomerRequest{Name: "Acme"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	ctx := customerContext(100)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestCustomerListSearchAndPaging(t *testing.T) {
	svc, _, _ := setupCustomerService(t)
	ctx := customerContext(100)

	names := []string{"Acme Interiors", "Birchwood Labs", "Coastal Supply"}
	for _, name := range names {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: name})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListCustomerRequest{Search: "acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, "Acme Interiors", resp.Customers[0].Name)

	paged, err := svc.List(ctx, domain.ListCustomerRequest{
		Pagination: pagination.Pagination{Limit: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), paged.Total)
	assert.Len(t, paged.Customers, 2)
	assert.True(t, paged.HasMore)
}

func TestCustomerListFiltersInactive(t *testing.T) {
	svc, _, _ := setupCustomerService(t)
	ctx := customerContext(100)

	active, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Active Co"})
	require.NoError(t, err)
	dormant, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Dormant Co"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, dormant.ID.String(), domain.UpdateCustomerRequest{IsActive: &inactive})
	require.NoError(t, err)

	onlyActive := true
	resp, err := svc.List(ctx, domain.ListCustomerRequest{IsActive: &onlyActive})
	require.NoError(t, err)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, active.ID, resp.Customers[0].ID)
}

func TestCustomerUpdate(t *testing.T) {
	svc, _, _ := setupCustomerService(t)
	ctx := customerContext(100)

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme", Email: "old@acme.test"})
	require.NoError(t, err)

	newName := "Acme Holdings"
	newEmail := "new@acme.test"
	updated, err := svc.Update(ctx, created.ID.String(), domain.UpdateCustomerRequest{
		Name:  &newName,
		Email: &newEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", updated.Name)
	assert.Equal(t, "new@acme.test", updated.Email)

	bad := "not-an-email"
	_, err = svc.Update(ctx, created.ID.String(), domain.UpdateCustomerRequest{Email: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestCustomerCrossOrganizationInvisible(t *testing.T) {
	svc, _, _ := setupCustomerService(t)

	created, err := svc.Create(customerContext(100), domain.CreateCustomerRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.GetByID(customerContext(200), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	resp, err := svc.List(customerContext(200), domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Customers)
}

func TestCustomerDeleteUnreferenced(t *testing.T) {
	svc, db, _ := setupCustomerService(t)
	ctx := customerContext(100)

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	_, err = svc.GetByID(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var logged auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", "customer.deleted").First(&logged).Error)
}

func TestCustomerDeleteReferencedDeactivates(t *testing.T) {
	svc, db, node := setupCustomerService(t)
	ctx := customerContext(100)

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme"})
	require.NoError(t, err)

	invoice := invoicedomain.Invoice{
		ID:            node.Generate(),
		OrgID:         100,
		InvoiceNumber: "INV-0001",
		CustomerID:    created.ID,
		Status:        invoicedomain.InvoiceStatusDraft,
		IssueDate:     date.New(2025, 3, 1),
		DueDate:       date.New(2025, 3, 31),
		Currency:      "USD",
		Total:         decimal.NewFromInt(100),
		AmountDue:     decimal.NewFromInt(100),
	}
	require.NoError(t, db.Create(&invoice).Error)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	var logged auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", "customer.deactivated").First(&logged).Error)
}
