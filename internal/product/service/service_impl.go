package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Accounts accountdomain.Repository
	Audit    auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	accounts accountdomain.Repository
	audit    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		accounts: p.Accounts,
		audit:    p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Product{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}

	unitPrice := money.Round4(req.UnitPrice.Amount)
	if unitPrice.IsNegative() {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	incomeID, err := s.resolveAccount(ctx, orgID, req.IncomeAccountID, accountdomain.AccountTypeIncome)
	if err != nil {
		return domain.Product{}, err
	}
	expenseID, err := s.resolveAccount(ctx, orgID, req.ExpenseAccountID, accountdomain.AccountTypeExpense)
	if err != nil {
		return domain.Product{}, err
	}
	inventoryID, err := s.resolveAccount(ctx, orgID, req.InventoryAccountID, accountdomain.AccountTypeAsset)
	if err != nil {
		return domain.Product{}, err
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:                 s.genID.Generate(),
		OrgID:              orgID,
		Name:               name,
		SKU:                strings.TrimSpace(req.SKU),
		Description:        strings.TrimSpace(req.Description),
		UnitPrice:          unitPrice,
		IncomeAccountID:    incomeID,
		ExpenseAccountID:   expenseID,
		InventoryAccountID: inventoryID,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}

	s.audit.Record(ctx, "product.created", "product", product.ID.String(), map[string]any{
		"name": product.Name,
	})
	return product, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) (domain.ListProductResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListProductResponse{}, domain.ErrInvalidOrganization
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		OrgID:    orgID,
		IsActive: req.IsActive,
		Search:   strings.TrimSpace(req.Search),
	}, page)
	if err != nil {
		return domain.ListProductResponse{}, err
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}

	return domain.ListProductResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Products: products,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Product, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Product{}, domain.ErrInvalidOrganization
	}

	productID, err := s.parseID(id)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateProductRequest) (domain.Product, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Product{}, domain.ErrInvalidOrganization
	}

	productID, err := s.parseID(id)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.SKU != nil {
		product.SKU = strings.TrimSpace(*req.SKU)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.UnitPrice != nil {
		unitPrice := money.Round4(req.UnitPrice.Amount)
		if unitPrice.IsNegative() {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.UnitPrice = unitPrice
	}
	if req.IncomeAccountID != nil {
		accountID, err := s.resolveAccount(ctx, orgID, *req.IncomeAccountID, accountdomain.AccountTypeIncome)
		if err != nil {
			return domain.Product{}, err
		}
		product.IncomeAccountID = accountID
	}
	if req.ExpenseAccountID != nil {
		accountID, err := s.resolveAccount(ctx, orgID, *req.ExpenseAccountID, accountdomain.AccountTypeExpense)
		if err != nil {
			return domain.Product{}, err
		}
		product.ExpenseAccountID = accountID
	}
	if req.InventoryAccountID != nil {
		accountID, err := s.resolveAccount(ctx, orgID, *req.InventoryAccountID, accountdomain.AccountTypeAsset)
		if err != nil {
			return domain.Product{}, err
		}
		product.InventoryAccountID = accountID
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	productID, err := s.parseID(id)
	if err != nil {
		return err
	}

	product, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}

	refs, err := s.repo.CountLineItemRefs(ctx, s.db, orgID, productID)
	if err != nil {
		return err
	}
	if refs > 0 {
		product.IsActive = false
		product.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, s.db, product); err != nil {
			return err
		}
		s.audit.Record(ctx, "product.deactivated", "product", product.ID.String(), map[string]any{
			"name":      product.Name,
			"line_refs": refs,
		})
		return nil
	}

	if err := s.repo.Delete(ctx, s.db, orgID, productID); err != nil {
		return err
	}
	s.audit.Record(ctx, "product.deleted", "product", product.ID.String(), map[string]any{
		"name": product.Name,
	})
	return nil
}

// resolveAccount validates an optional account reference: it must exist in
// the organization and carry the expected account type.
func (s *Service) resolveAccount(ctx context.Context, orgID snowflake.ID, raw string, want accountdomain.AccountType) (*snowflake.ID, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidAccount
	}

	account, err := s.accounts.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Type != want {
		return nil, domain.ErrInvalidAccount
	}
	return &id, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
