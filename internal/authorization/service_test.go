package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	auditrepository "github.com/smallbiznis/ledgerly/internal/audit/repository"
	auditservice "github.com/smallbiznis/ledgerly/internal/audit/service"
	authdomain "github.com/smallbiznis/ledgerly/internal/auth/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupAuthorization(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&authdomain.User{}))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, id, orgID snowflake.ID, role authdomain.Role) {
	t.Helper()

	now := time.Now().UTC()
	require.NoError(t, db.Create(&authdomain.User{
		ID:           id,
		OrgID:        orgID,
		Email:        "user-" + id.String() + "@example.com",
		PasswordHash: "irrelevant",
		Role:         role,
		IsActive:     true,
		Profile:      datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error)
}

func TestAuthorizeRoleMatrix(t *testing.T) {
	svc, db := setupAuthorization(t)
	ctx := context.Background()

	seedUser(t, db, snowflake.ID(1), snowflake.ID(900), authdomain.RoleOwner)
	seedUser(t, db, snowflake.ID(2), snowflake.ID(900), authdomain.RoleAccountant)
	seedUser(t, db, snowflake.ID(3), snowflake.ID(900), authdomain.RoleViewer)

	// Viewers read everything but mutate nothing.
	assert.NoError(t, svc.Authorize(ctx, "user:3", "900", ObjectInvoice, ActionInvoiceView))
	assert.NoError(t, svc.Authorize(ctx, "user:3", "900", ObjectReport, ActionReportView))
	assert.ErrorIs(t, svc.Authorize(ctx, "user:3", "900", ObjectInvoice, ActionInvoiceCreate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:3", "900", ObjectAuditLog, ActionAuditLogView), ErrForbidden)

	// Accountants manage documents and master data but not the organization.
	assert.NoError(t, svc.Authorize(ctx, "user:2", "900", ObjectInvoice, ActionInvoiceCreate))
	assert.NoError(t, svc.Authorize(ctx, "user:2", "900", ObjectPayment, ActionPaymentVoid))
	assert.NoError(t, svc.Authorize(ctx, "user:2", "900", ObjectCustomer, ActionCustomerDelete))
	assert.ErrorIs(t, svc.Authorize(ctx, "user:2", "900", ObjectOrganization, ActionOrganizationUpdate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:2", "900", ObjectAuditLog, ActionAuditLogView), ErrForbidden)

	// Owners additionally control settings and the audit trail.
	assert.NoError(t, svc.Authorize(ctx, "user:1", "900", ObjectOrganization, ActionOrganizationUpdate))
	assert.NoError(t, svc.Authorize(ctx, "user:1", "900", ObjectAuditLog, ActionAuditLogView))
}

func TestAuthorizeSystemActor(t *testing.T) {
	svc, _ := setupAuthorization(t)

	assert.NoError(t, svc.Authorize(context.Background(), "system", "900", ObjectJournalEntry, ActionJournalEntryCreate))
	assert.NoError(t, svc.Authorize(context.Background(), "system", "900", ObjectOrganization, ActionOrganizationUpdate))
}

func TestAuthorizeUnknownUser(t *testing.T) {
	svc, _ := setupAuthorization(t)

	err := svc.Authorize(context.Background(), "user:42", "900", ObjectInvoice, ActionInvoiceView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeCrossOrganization(t *testing.T) {
	svc, db := setupAuthorization(t)
	seedUser(t, db, snowflake.ID(1), snowflake.ID(900), authdomain.RoleOwner)

	err := svc.Authorize(context.Background(), "user:1", "901", ObjectInvoice, ActionInvoiceView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeInactiveUser(t *testing.T) {
	svc, db := setupAuthorization(t)
	seedUser(t, db, snowflake.ID(1), snowflake.ID(900), authdomain.RoleOwner)

	require.NoError(t, db.Model(&authdomain.User{}).
		Where("id = ?", snowflake.ID(1)).
		Update("is_active", false).Error)

	err := svc.Authorize(context.Background(), "user:1", "900", ObjectInvoice, ActionInvoiceView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeRoleChangeTakesEffect(t *testing.T) {
	svc, db := setupAuthorization(t)
	ctx := context.Background()
	seedUser(t, db, snowflake.ID(7), snowflake.ID(900), authdomain.RoleViewer)

	assert.ErrorIs(t, svc.Authorize(ctx, "user:7", "900", ObjectInvoice, ActionInvoiceCreate), ErrForbidden)

	require.NoError(t, db.Model(&authdomain.User{}).
		Where("id = ?", snowflake.ID(7)).
		Update("role", authdomain.RoleAccountant).Error)

	assert.NoError(t, svc.Authorize(ctx, "user:7", "900", ObjectInvoice, ActionInvoiceCreate))
}

func TestAuthorizeRejectsMalformedInput(t *testing.T) {
	svc, _ := setupAuthorization(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "900", ObjectInvoice, ActionInvoiceView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "robot:1", "900", ObjectInvoice, ActionInvoiceView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:nope", "900", ObjectInvoice, ActionInvoiceView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", "", ObjectInvoice, ActionInvoiceView), ErrInvalidOrganization)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", "nope", ObjectInvoice, ActionInvoiceView), ErrInvalidOrganization)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", "900", "", ActionInvoiceView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", "900", ObjectInvoice, ""), ErrInvalidAction)
}

func TestAuthorizeWritesAuditTrail(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&authdomain.User{}, &auditdomain.AuditLog{}))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
		Audit: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Repo:  auditrepository.Provide(),
		}),
	})

	seedUser(t, db, snowflake.ID(1), snowflake.ID(900), authdomain.RoleOwner)
	seedUser(t, db, snowflake.ID(3), snowflake.ID(900), authdomain.RoleViewer)
	ctx := orgcontext.WithOrgID(context.Background(), 900)

	require.ErrorIs(t, svc.Authorize(ctx, "user:3", "900", ObjectInvoice, ActionInvoiceVoid), ErrForbidden)
	require.NoError(t, svc.Authorize(ctx, "user:1", "900", ObjectInvoice, ActionInvoiceVoid))

	var denied, granted int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).
		Where("org_id = ? AND action = ?", snowflake.ID(900), "authorization.denied").
		Count(&denied).Error)
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).
		Where("org_id = ? AND action = ?", snowflake.ID(900), "authorization.granted").
		Count(&granted).Error)
	assert.Equal(t, int64(1), denied)
	assert.Equal(t, int64(1), granted)
}
