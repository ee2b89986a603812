package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/vendors/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error {
	return db.WithContext(ctx).Create(vendor).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Vendor, error) {
	var vendor domain.Vendor
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vendor, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Vendor, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("org_id = ?", filter.OrgID)
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		stmt = stmt.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vendors []*domain.Vendor
	err := option.ApplyPagination(page).Apply(stmt).
		Order("name asc, id asc").
		Find(&vendors).Error
	if err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error {
	return db.WithContext(ctx).Save(vendor).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Vendor{}).Error
}

func (r *repo) CountDocumentRefs(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	var row struct {
		Refs int64 `gorm:"column:refs"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT (SELECT count(*) FROM bills WHERE org_id = ? AND vendor_id = ?)
		      + (SELECT count(*) FROM vendor_payments WHERE org_id = ? AND vendor_id = ?)
		      + (SELECT count(*) FROM expenses WHERE org_id = ? AND vendor_id = ?) AS refs`,
		orgID, id, orgID, id, orgID, id,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Refs, nil
}
