package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/audit/repository"
	auditcontext "github.com/smallbiznis/ledgerly/internal/auditcontext"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestService(t *testing.T) auditdomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func testContext(orgID int64) context.Context {
	ctx := orgcontext.WithOrgID(context.Background(), orgID)
	return auditcontext.WithActor(ctx, "user", "42")
}

func TestRecordAndList(t *testing.T) {
	svc := setupTestService(t)
	ctx := testContext(100)

	svc.Record(ctx, "invoice.created", "invoice", "9001", map[string]any{"total": "150.00"})
	svc.Record(ctx, "invoice.voided", "invoice", "9001", nil)

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.AuditLogs, 2)

	// newest first
	assert.Equal(t, "invoice.voided", resp.AuditLogs[0].Action)
	assert.Equal(t, "user", resp.AuditLogs[0].ActorType)
	assert.Equal(t, "42", resp.AuditLogs[0].ActorID)
}

func TestListFiltersByAction(t *testing.T) {
	svc := setupTestService(t)
	ctx := testContext(100)

	svc.Record(ctx, "invoice.created", "invoice", "1", nil)
	svc.Record(ctx, "bill.created", "bill", "2", nil)

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "bill.created"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "bill", resp.AuditLogs[0].TargetType)
}

func TestListScopedToOrganization(t *testing.T) {
	svc := setupTestService(t)

	svc.Record(testContext(100), "invoice.created", "invoice", "1", nil)
	svc.Record(testContext(200), "invoice.created", "invoice", "2", nil)

	resp, err := svc.List(testContext(100), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "1", resp.AuditLogs[0].TargetID)
}

func TestRecordMasksSensitiveMetadata(t *testing.T) {
	svc := setupTestService(t)
	ctx := testContext(100)

	svc.Record(ctx, "auth.login", "user", "42", map[string]any{
		"password": "hunter2-long-value",
		"email":    "alice@example.com",
	})

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	masked, ok := resp.AuditLogs[0].Metadata["password"].(string)
	require.True(t, ok)
	assert.NotContains(t, masked, "hunter2")
	assert.Equal(t, "alice@example.com", resp.AuditLogs[0].Metadata["email"])
}

func TestListRejectsMissingOrganization(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidOrganization)
}

func TestListPagination(t *testing.T) {
	svc := setupTestService(t)
	ctx := testContext(100)

	for i := 0; i < 5; i++ {
		svc.Record(ctx, "customer.created", "customer", "", nil)
	}

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{Limit: 2, Offset: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Total)
	assert.Len(t, resp.AuditLogs, 2)
	assert.True(t, resp.HasMore)
}
