package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/customer/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
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
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	customer := domain.Customer{
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

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.audit.Record(ctx, "customer.created", "customer", customer.ID.String(), map[string]any{
		"name": customer.Name,
	})
	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListCustomerResponse{}, domain.ErrInvalidOrganization
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		OrgID:    orgID,
		IsActive: req.IsActive,
		Search:   strings.TrimSpace(req.Search),
	}, page)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	return domain.ListCustomerResponse{
		PageInfo:  pagination.BuildPageInfo(total, page),
		Customers: customers,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	customerID, err := s.parseID(id)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, orgID, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *customer, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	customerID, err := s.parseID(id)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, orgID, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		customer.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && !strings.Contains(email, "@") {
			return domain.Customer{}, domain.ErrInvalidEmail
		}
		customer.Email = email
	}
	if req.Phone != nil {
		customer.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.AddressLine1 != nil {
		customer.AddressLine1 = strings.TrimSpace(*req.AddressLine1)
	}
	if req.AddressLine2 != nil {
		customer.AddressLine2 = strings.TrimSpace(*req.AddressLine2)
	}
	if req.City != nil {
		customer.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		customer.State = strings.TrimSpace(*req.State)
	}
	if req.PostalCode != nil {
		customer.PostalCode = strings.TrimSpace(*req.PostalCode)
	}
	if req.Country != nil {
		customer.Country = strings.TrimSpace(*req.Country)
	}
	if req.Notes != nil {
		customer.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	customer.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	customerID, err := s.parseID(id)
	if err != nil {
		return err
	}

	customer, err := s.repo.FindByID(ctx, s.db, orgID, customerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return domain.ErrNotFound
	}

	refs, err := s.repo.CountDocumentRefs(ctx, s.db, orgID, customerID)
	if err != nil {
		return err
	}
	if refs > 0 {
		customer.IsActive = false
		customer.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, s.db, customer); err != nil {
			return err
		}
		s.audit.Record(ctx, "customer.deactivated", "customer", customer.ID.String(), map[string]any{
			"name":          customer.Name,
			"document_refs": refs,
		})
		return nil
	}

	if err := s.repo.Delete(ctx, s.db, orgID, customerID); err != nil {
		return err
	}
	s.audit.Record(ctx, "customer.deleted", "customer", customer.ID.String(), map[string]any{
		"name": customer.Name,
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
