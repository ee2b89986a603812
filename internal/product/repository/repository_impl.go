package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Product, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("org_id = ?", filter.OrgID)
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		stmt = stmt.Where(
			"LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []*domain.Product
	err := option.ApplyPagination(page).Apply(stmt).
		Order("name asc, id asc").
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Save(product).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Product{}).Error
}

func (r *repo) CountLineItemRefs(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	var refs int64
	err := db.WithContext(ctx).
		Table("invoice_line_items").
		Where("org_id = ? AND product_id = ?", orgID, id).
		Count(&refs).Error
	if err != nil {
		return 0, err
	}
	return refs, nil
}
