package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/auth/domain"
	"github.com/smallbiznis/ledgerly/internal/auth/password"
	"github.com/smallbiznis/ledgerly/internal/auth/token"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	pkgdb "github.com/smallbiznis/ledgerly/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Orgs      orgdomain.Repository
	Accounts  accountdomain.Service
	Sequences sequencedomain.Service
	Tokens    *token.Manager
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	orgs      orgdomain.Repository
	accounts  accountdomain.Service
	sequences sequencedomain.Service
	tokens    *token.Manager
	audit     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("auth.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		orgs:      p.Orgs,
		accounts:  p.Accounts,
		sequences: p.Sequences,
		tokens:    p.Tokens,
		audit:     p.Audit,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.AuthResponse{}, domain.ErrInvalidEmail
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return domain.AuthResponse{}, domain.ErrWeakPassword
	}
	orgName := strings.TrimSpace(req.OrganizationName)
	if orgName == "" {
		return domain.AuthResponse{}, domain.ErrInvalidOrganization
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	if existing != nil {
		return domain.AuthResponse{}, domain.ErrEmailTaken
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	now := time.Now().UTC()
	org := orgdomain.Organization{
		ID:                   s.genID.Generate(),
		Name:                 orgName,
		Slug:                 slug.Make(orgName),
		BaseCurrency:         "USD",
		FiscalYearStartMonth: 1,
		Timezone:             "UTC",
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	user := domain.User{
		ID:           s.genID.Generate(),
		OrgID:        org.ID,
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         domain.RoleOwner,
		IsActive:     true,
		Profile:      datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.orgs.FindBySlug(ctx, tx, org.Slug)
		if err != nil {
			return err
		}
		if taken != nil {
			org.Slug = org.Slug + "-" + org.ID.String()
		}
		if err := s.orgs.Insert(ctx, tx, &org); err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &user); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return err
		}

		if err := s.accounts.ProvisionDefaults(ctx, tx, org.ID); err != nil {
			return err
		}
		return s.sequences.EnsureDefaults(ctx, tx, org.ID)
	})
	if err != nil {
		return domain.AuthResponse{}, err
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID, org.ID, user.Role)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	s.audit.Record(orgcontext.WithOrgID(ctx, int64(org.ID)), "auth.registered", "user", user.ID.String(), map[string]any{
		"email":        user.Email,
		"organization": org.Name,
	})
	s.log.Info("tenant registered",
		zap.String("org_id", org.ID.String()),
		zap.String("user_id", user.ID.String()),
	)

	return domain.AuthResponse{
		Token:        signed,
		ExpiresAt:    expiresAt,
		User:         user,
		Organization: &org,
	}, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.AuthResponse{}, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return domain.AuthResponse{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return domain.AuthResponse{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return domain.AuthResponse{}, domain.ErrInactiveUser
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, s.db, user.ID, now); err != nil {
		return domain.AuthResponse{}, err
	}
	user.LastLoginAt = &now

	signed, expiresAt, err := s.tokens.Issue(user.ID, user.OrgID, user.Role)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	s.audit.Record(orgcontext.WithOrgID(ctx, int64(user.OrgID)), "auth.login", "user", user.ID.String(), map[string]any{
		"email": user.Email,
	})

	return domain.AuthResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      *user,
	}, nil
}

func (s *Service) Me(ctx context.Context) (domain.User, error) {
	principal, ok := token.PrincipalFromContext(ctx)
	if !ok || principal.UserID == 0 {
		return domain.User{}, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, s.db, principal.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *user, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
