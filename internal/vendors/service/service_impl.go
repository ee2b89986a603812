package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/vendors/domain"
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
		log:   p.Log.Named("vendor.service"),
		genID: p.GenID,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateVendorRequest) (domain.Vendor, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Vendor{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Vendor{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Vendor{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	vendor := domain.Vendor{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		AddressLine1: strings.TrimSpace(req.AddressLine1),
		AddressLine2: strings.TrimSpace(req.AddressLine2),
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
		PostalCode:   strings.TrimSpace(req.PostalCode),
		Country:      strings.TrimSpace(req.Country),
		Notes:        strings.TrimSpace(req.Notes),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &vendor); err != nil {
		return domain.Vendor{}, err
	}

	s.audit.Record(ctx, "vendor.created", "vendor", vendor.ID.String(), map[string]any{
		"name": vendor.Name,
	})
	return vendor, nil
}

func (s *Service) List(ctx context.Context, req domain.ListVendorRequest) (domain.ListVendorResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListVendorResponse{}, domain.ErrInvalidOrganization
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		OrgID:    orgID,
		IsActive: req.IsActive,
		Search:   strings.TrimSpace(req.Search),
	}, page)
	if err != nil {
		return domain.ListVendorResponse{}, err
	}

	vendors := make([]domain.Vendor, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		vendors = append(vendors, *item)
	}

	return domain.ListVendorResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Vendors:  vendors,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Vendor, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Vendor{}, domain.ErrInvalidOrganization
	}

	vendorID, err := s.parseID(id)
	if err != nil {
		return domain.Vendor{}, err
	}

	vendor, err := s.repo.FindByID(ctx, s.db, orgID, vendorID)
	if err != nil {
		return domain.Vendor{}, err
	}
	if vendor == nil {
		return domain.Vendor{}, domain.ErrNotFound
	}
	return *vendor, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateVendorRequest) (domain.Vendor, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Vendor{}, domain.ErrInvalidOrganization
	}

	vendorID, err := s.parseID(id)
	if err != nil {
		return domain.Vendor{}, err
	}

	vendor, err := s.repo.FindByID(ctx, s.db, orgID, vendorID)
	if err != nil {
		return domain.Vendor{}, err
	}
	if vendor == nil {
		return domain.Vendor{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Vendor{}, domain.ErrInvalidName
		}
		vendor.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && !strings.Contains(email, "@") {
			return domain.Vendor{}, domain.ErrInvalidEmail
		}
		vendor.Email = email
	}
	if req.Phone != nil {
		vendor.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.AddressLine1 != nil {
		vendor.AddressLine1 = strings.TrimSpace(*req.AddressLine1)
	}
	if req.AddressLine2 != nil {
		vendor.AddressLine2 = strings.TrimSpace(*req.AddressLine2)
	}
	if req.City != nil {
		vendor.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		vendor.State = strings.TrimSpace(*req.State)
	}
	if req.PostalCode != nil {
		vendor.PostalCode = strings.TrimSpace(*req.PostalCode)
	}
	if req.Country != nil {
		vendor.Country = strings.TrimSpace(*req.Country)
	}
	if req.Notes != nil {
		vendor.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.IsActive != nil {
		vendor.IsActive = *req.IsActive
	}
	vendor.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, vendor); err != nil {
		return domain.Vendor{}, err
	}
	return *vendor, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	vendorID, err := s.parseID(id)
	if err != nil {
		return err
	}

	vendor, err := s.repo.FindByID(ctx, s.db, orgID, vendorID)
	if err != nil {
		return err
	}
	if vendor == nil {
		return domain.ErrNotFound
	}

	refs, err := s.repo.CountDocumentRefs(ctx, s.db, orgID, vendorID)
	if err != nil {
		return err
	}
	if refs > 0 {
		vendor.IsActive = false
		vendor.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, s.db, vendor); err != nil {
			return err
		}
		s.audit.Record(ctx, "vendor.deactivated", "vendor", vendor.ID.String(), map[string]any{
			"name":          vendor.Name,
			"document_refs": refs,
		})
		return nil
	}

	if err := s.repo.Delete(ctx, s.db, orgID, vendorID); err != nil {
		return err
	}
	s.audit.Record(ctx, "vendor.deleted", "vendor", vendor.ID.String(), map[string]any{
		"name": vendor.Name,
	})
	return nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
