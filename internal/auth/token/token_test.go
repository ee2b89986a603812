package token

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/ledgerly/internal/auth/domain"
	"github.com/smallbiznis/ledgerly/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	manager, err := NewManager(config.Config{
		AppName:    "ledgerly",
		AuthSecret: "test-secret-0123456789",
		TokenTTL:   ttl,
	})
	require.NoError(t, err)
	return manager
}

func TestIssueAndVerify(t *testing.T) {
	manager := testManager(t, time.Hour)

	signed, expiresAt, err := manager.Issue(snowflake.ID(42), snowflake.ID(7), authdomain.RoleOwner)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.True(t, expiresAt.After(time.Now()))

	principal, err := manager.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), principal.UserID)
	assert.Equal(t, snowflake.ID(7), principal.OrgID)
	assert.Equal(t, authdomain.RoleOwner, principal.Role)
}

func TestVerifyExpiredToken(t *testing.T) {
	manager := testManager(t, time.Nanosecond)

	signed, _, err := manager.Issue(snowflake.ID(42), snowflake.ID(7), authdomain.RoleViewer)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = manager.Verify(signed)
	assert.ErrorIs(t, err, authdomain.ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	manager := testManager(t, time.Hour)
	signed, _, err := manager.Issue(snowflake.ID(42), snowflake.ID(7), authdomain.RoleOwner)
	require.NoError(t, err)

	other, err := NewManager(config.Config{AppName: "ledgerly", AuthSecret: "a-different-secret", TokenTTL: time.Hour})
	require.NoError(t, err)

	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	manager := testManager(t, time.Hour)

	_, err := manager.Verify("")
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)

	_, err = manager.Verify("not.a.token")
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(config.Config{AppName: "ledgerly"})
	assert.Error(t, err)
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	manager := testManager(t, time.Hour)
	signed, _, err := manager.Issue(snowflake.ID(42), snowflake.ID(7), authdomain.RoleAccountant)
	require.NoError(t, err)

	principal, err := manager.Verify(signed)
	require.NoError(t, err)

	ctx := WithPrincipal(context.Background(), principal)
	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, principal, got)
}
