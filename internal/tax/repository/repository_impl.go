package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/tax/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rate *domain.TaxRate) error {
	return db.WithContext(ctx).Create(rate).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.TaxRate, error) {
	var rate domain.TaxRate
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.TaxRate, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.TaxRate{}).
		Where("org_id = ?", filter.OrgID)
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rates []*domain.TaxRate
	err := option.ApplyPagination(page).Apply(stmt).
		Order("name asc, id asc").
		Find(&rates).Error
	if err != nil {
		return nil, 0, err
	}
	return rates, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rate *domain.TaxRate) error {
	return db.WithContext(ctx).Save(rate).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.TaxRate{}).Error
}

func (r *repo) CountLineItemRefs(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	var row struct {
		Refs int64 `gorm:"column:refs"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT (SELECT count(*) FROM invoice_line_items WHERE org_id = ? AND tax_rate_id = ?)
		      + (SELECT count(*) FROM bill_line_items WHERE org_id = ? AND tax_rate_id = ?) AS refs`,
		orgID, id, orgID, id,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Refs, nil
}
