// Package token issues and verifies the bearer tokens carried on every
// authenticated request.
package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/smallbiznis/ledgerly/internal/auth/domain"
	"github.com/smallbiznis/ledgerly/internal/config"
)

// Principal identifies the caller after token verification. Every tenant
// scoped operation reads the org from here, never from the request body.
type Principal struct {
	UserID snowflake.ID
	OrgID  snowflake.ID
	Role   authdomain.Role
}

// Claims is the JWT payload: subject is the user id, org and role scope the
// principal.
type Claims struct {
	OrgID string `json:"org"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewManager(cfg config.Config) (*Manager, error) {
	secret := strings.TrimSpace(cfg.AuthSecret)
	if secret == "" {
		return nil, errors.New("AUTH_SECRET must be set")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: cfg.AppName,
	}, nil
}

// Issue signs a token for the user. The returned time is the expiry.
func (m *Manager) Issue(userID, orgID snowflake.ID, role authdomain.Role) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		OrgID: orgID.String(),
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a raw token and returns its principal.
func (m *Manager) Verify(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, authdomain.ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, authdomain.ErrTokenExpired
		}
		return Principal{}, authdomain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil || userID == 0 {
		return Principal{}, authdomain.ErrInvalidToken
	}
	orgID, err := snowflake.ParseString(claims.OrgID)
	if err != nil || orgID == 0 {
		return Principal{}, authdomain.ErrInvalidToken
	}
	role := authdomain.Role(claims.Role)
	if !role.Valid() {
		return Principal{}, authdomain.ErrInvalidToken
	}

	return Principal{UserID: userID, OrgID: orgID, Role: role}, nil
}

type principalKey struct{}

// WithPrincipal stores the verified principal in the request context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by the auth middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
