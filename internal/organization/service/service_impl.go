package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("organization.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Organization, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Organization{}, domain.ErrInvalidOrganization
	}

	org, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return domain.Organization{}, err
	}
	if org == nil {
		return domain.Organization{}, domain.ErrNotFound
	}
	return *org, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateOrganizationRequest) (domain.Organization, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Organization{}, domain.ErrInvalidOrganization
	}

	org, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return domain.Organization{}, err
	}
	if org == nil {
		return domain.Organization{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Organization{}, domain.ErrInvalidName
		}
		org.Name = name
	}
	if req.BaseCurrency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.BaseCurrency))
		if len(currency) != 3 {
			return domain.Organization{}, domain.ErrInvalidCurrency
		}
		org.BaseCurrency = currency
	}
	if req.FiscalYearStartMonth != nil {
		month := *req.FiscalYearStartMonth
		if month < 1 || month > 12 {
			return domain.Organization{}, domain.ErrInvalidFiscalMonth
		}
		org.FiscalYearStartMonth = month
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return domain.Organization{}, domain.ErrInvalidTimezone
		}
		org.Timezone = tz
	}

	org.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, org); err != nil {
		return domain.Organization{}, err
	}

	return *org, nil
}
