package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	accountrepository "github.com/smallbiznis/ledgerly/internal/account/repository"
	accountservice "github.com/smallbiznis/ledgerly/internal/account/service"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	auditrepository "github.com/smallbiznis/ledgerly/internal/audit/repository"
	auditservice "github.com/smallbiznis/ledgerly/internal/audit/service"
	"github.com/smallbiznis/ledgerly/internal/auth/domain"
	"github.com/smallbiznis/ledgerly/internal/auth/repository"
	"github.com/smallbiznis/ledgerly/internal/auth/token"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/config"
	journaldomain "github.com/smallbiznis/ledgerly/internal/journal/domain"
	journalrepository "github.com/smallbiznis/ledgerly/internal/journal/repository"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/ledgerly/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/ledgerly/internal/ledger/service"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	orgrepository "github.com/smallbiznis/ledgerly/internal/organization/repository"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/ledgerly/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/ledgerly/internal/sequence/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuthService(t *testing.T) (domain.Service, *gorm.DB, *token.Manager) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&domain.User{},
		&accountdomain.Account{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalEntryLine{},
		&sequencedomain.DocumentSequence{},
		&ledgerdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	tokens, err := token.NewManager(config.Config{
		AppName:    "ledgerly",
		AuthSecret: "test-secret-0123456789",
		TokenTTL:   time.Hour,
	})
	require.NoError(t, err)

	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	sequences := sequenceservice.NewService(sequenceservice.Params{
		Log:   log,
		GenID: node,
		Repo:  sequencerepository.Provide(),
	})
	accounts := accountservice.New(accountservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)),
		Repo:     accountrepository.Provide(),
		Orgs:     orgrepository.Provide(),
		Journals: journalrepository.Provide(),
		Ledger: ledgerservice.NewService(ledgerservice.Params{
			Log:   log,
			GenID: node,
			Repo:  ledgerrepository.Provide(),
		}),
		LedgerRepo: ledgerrepository.Provide(),
		Sequence:   sequences,
		Audit:      audit,
	})

	svc := New(Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      repository.Provide(),
		Orgs:      orgrepository.Provide(),
		Accounts:  accounts,
		Sequences: sequences,
		Tokens:    tokens,
		Audit:     audit,
	})
	return svc, db, tokens
}

func register(t *testing.T, svc domain.Service, email, orgName string) domain.AuthResponse {
	t.Helper()

	resp, err := svc.Register(context.Background(), domain.RegisterRequest{
		Email:            email,
		Password:         "correct-horse-battery",
		FirstName:        "Ada",
		LastName:         "Lovelace",
		OrganizationName: orgName,
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterProvisionsTenant(t *testing.T) {
	svc, db, tokens := setupAuthService(t)

	resp := register(t, svc, "owner@example.com", "Acme Books")

	require.NotNil(t, resp.Organization)
	assert.Equal(t, "Acme Books", resp.Organization.Name)
	assert.Equal(t, "acme-books", resp.Organization.Slug)
	assert.Equal(t, "USD", resp.Organization.BaseCurrency)
	assert.Equal(t, "owner@example.com", resp.User.Email)
	assert.Equal(t, domain.RoleOwner, resp.User.Role)
	assert.Equal(t, resp.Organization.ID, resp.User.OrgID)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	principal, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, principal.UserID)
	assert.Equal(t, resp.Organization.ID, principal.OrgID)
	assert.Equal(t, domain.RoleOwner, principal.Role)

	var accounts int64
	require.NoError(t, db.Model(&accountdomain.Account{}).Where("org_id = ?", resp.Organization.ID).Count(&accounts).Error)
	assert.Equal(t, int64(len(accountdomain.DefaultChart())), accounts)

	var sequences int64
	require.NoError(t, db.Model(&sequencedomain.DocumentSequence{}).Where("org_id = ?", resp.Organization.ID).Count(&sequences).Error)
	assert.Equal(t, int64(len(sequencedomain.AllClasses())), sequences)

	var audited int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).
		Where("org_id = ? AND action = ?", resp.Organization.ID, "auth.registered").
		Count(&audited).Error)
	assert.Equal(t, int64(1), audited)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, db, _ := setupAuthService(t)

	resp := register(t, svc, "  Owner@Example.COM ", "Acme Books")
	assert.Equal(t, "owner@example.com", resp.User.Email)

	var stored domain.User
	require.NoError(t, db.Where("id = ?", resp.User.ID).First(&stored).Error)
	assert.Equal(t, "owner@example.com", stored.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := setupAuthService(t)
	register(t, svc, "owner@example.com", "Acme Books")

	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Email:            "OWNER@example.com",
		Password:         "correct-horse-battery",
		OrganizationName: "Other Books",
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestRegisterSlugCollision(t *testing.T) {
	svc, _, _ := setupAuthService(t)

	first := register(t, svc, "one@example.com", "Acme")
	second := register(t, svc, "two@example.com", "Acme")

	assert.Equal(t, "acme", first.Organization.Slug)
	assert.Equal(t, "acme-"+second.Organization.ID.String(), second.Organization.Slug)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := setupAuthService(t)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Email:            "not-an-email",
		Password:         "correct-horse-battery",
		OrganizationName: "Acme Books",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Register(context.Background(), domain.RegisterRequest{
		Email:            "owner@example.com",
		Password:         "short",
		OrganizationName: "Acme Books",
	})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	_, err = svc.Register(context.Background(), domain.RegisterRequest{
		Email:    "owner@example.com",
		Password: "correct-horse-battery",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestLogin(t *testing.T) {
	svc, db, tokens := setupAuthService(t)
	registered := register(t, svc, "owner@example.com", "Acme Books")

	resp, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "Owner@example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Nil(t, resp.Organization)
	require.NotNil(t, resp.User.LastLoginAt)

	var stored domain.User
	require.NoError(t, db.Where("id = ?", registered.User.ID).First(&stored).Error)
	assert.NotNil(t, stored.LastLoginAt)

	principal, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, principal.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := setupAuthService(t)
	register(t, svc, "owner@example.com", "Acme Books")

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "wrong-password-entirely",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse-battery",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	svc, db, _ := setupAuthService(t)
	registered := register(t, svc, "owner@example.com", "Acme Books")

	require.NoError(t, db.Model(&domain.User{}).
		Where("id = ?", registered.User.ID).
		Update("is_active", false).Error)

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "correct-horse-battery",
	})
	assert.ErrorIs(t, err, domain.ErrInactiveUser)
}

func TestMe(t *testing.T) {
	svc, _, tokens := setupAuthService(t)
	registered := register(t, svc, "owner@example.com", "Acme Books")

	principal, err := tokens.Verify(registered.Token)
	require.NoError(t, err)

	ctx := token.WithPrincipal(context.Background(), principal)
	user, err := svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)
	assert.Equal(t, "owner@example.com", user.Email)

	_, err = svc.Me(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
