package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/tax/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tax.service"),
		genID: p.GenID,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTaxRateRequest) (domain.TaxRate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.TaxRate{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.TaxRate{}, domain.ErrInvalidName
	}

	rate, err := normalizeRate(req.Rate)
	if err != nil {
		return domain.TaxRate{}, err
	}

	now := time.Now().UTC()
	taxRate := domain.TaxRate{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Rate:      rate,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &taxRate); err != nil {
		return domain.TaxRate{}, err
	}

	s.audit.Record(ctx, "tax_rate.created", "tax_rate", taxRate.ID.String(), map[string]any{
		"name": taxRate.Name,
		"rate": taxRate.Rate.String(),
	})
	return taxRate, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTaxRateRequest) (domain.ListTaxRateResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListTaxRateResponse{}, domain.ErrInvalidOrganization
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		OrgID:    orgID,
		IsActive: req.IsActive,
		Search:   strings.TrimSpace(req.Search),
	}, page)
	if err != nil {
		return domain.ListTaxRateResponse{}, err
	}

	rates := make([]domain.TaxRate, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rates = append(rates, *item)
	}

	return domain.ListTaxRateResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		TaxRates: rates,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.TaxRate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.TaxRate{}, domain.ErrInvalidOrganization
	}

	rateID, err := s.parseID(id)
	if err != nil {
		return domain.TaxRate{}, err
	}

	rate, err := s.repo.FindByID(ctx, s.db, orgID, rateID)
	if err != nil {
		return domain.TaxRate{}, err
	}
	if rate == nil {
		return domain.TaxRate{}, domain.ErrNotFound
	}
	return *rate, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateTaxRateRequest) (domain.TaxRate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.TaxRate{}, domain.ErrInvalidOrganization
	}

	rateID, err := s.parseID(id)
	if err != nil {
		return domain.TaxRate{}, err
	}

	taxRate, err := s.repo.FindByID(ctx, s.db, orgID, rateID)
	if err != nil {
		return domain.TaxRate{}, err
	}
	if taxRate == nil {
		return domain.TaxRate{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.TaxRate{}, domain.ErrInvalidName
		}
		taxRate.Name = name
	}
	if req.Rate != nil {
		rate, err := normalizeRate(*req.Rate)
		if err != nil {
			return domain.TaxRate{}, err
		}
		taxRate.Rate = rate
	}
	if req.IsActive != nil {
		taxRate.IsActive = *req.IsActive
	}
	taxRate.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, taxRate); err != nil {
		return domain.TaxRate{}, err
	}
	return *taxRate, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	rateID, err := s.parseID(id)
	if err != nil {
		return err
	}

	taxRate, err := s.repo.FindByID(ctx, s.db, orgID, rateID)
	if err != nil {
		return err
	}
	if taxRate == nil {
		return domain.ErrNotFound
	}

	refs, err := s.repo.CountLineItemRefs(ctx, s.db, orgID, rateID)
	if err != nil {
		return err
	}
	if refs > 0 {
		taxRate.IsActive = false
		taxRate.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, s.db, taxRate); err != nil {
			return err
		}
		s.audit.Record(ctx, "tax_rate.deactivated", "tax_rate", taxRate.ID.String(), map[string]any{
			"name":      taxRate.Name,
			"line_refs": refs,
		})
		return nil
	}

	if err := s.repo.Delete(ctx, s.db, orgID, rateID); err != nil {
		return err
	}
	s.audit.Record(ctx, "tax_rate.deleted", "tax_rate", taxRate.ID.String(), map[string]any{
		"name": taxRate.Name,
	})
	return nil
}

// normalizeRate bounds a tax rate to the stored fraction scale. Rates are
// fractions of one, so 8.25% arrives as 0.0825.
func normalizeRate(rate decimal.Decimal) (decimal.Decimal, error) {
	rounded := rate.Round(6)
	if rounded.IsNegative() || rounded.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Decimal{}, domain.ErrInvalidRate
	}
	return rounded, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
