package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/account/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Account, error) {
	return r.find(ctx, db, orgID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Account, error) {
	return r.find(ctx, db, orgID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, lock bool) (*domain.Account, error) {
	stmt := db.WithContext(ctx)
	if lock && db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var account domain.Account
	err := stmt.
		Where("org_id = ? AND id = ?", orgID, id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, orgID snowflake.ID, number string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Where("org_id = ? AND account_number = ?", orgID, number).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) FindSystemBySubtype(ctx context.Context, db *gorm.DB, orgID snowflake.ID, subtype domain.AccountSubtype) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Where("org_id = ? AND subtype = ? AND is_system_account = ?", orgID, subtype, true).
		Order("id asc").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Account, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Account{}).
		Where("org_id = ?", filter.OrgID)

	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where(
			"LOWER(name) LIKE ? OR LOWER(COALESCE(account_number, '')) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []domain.Account
	err := option.ApplyPagination(page).Apply(stmt).
		Order("account_number asc, name asc, id asc").
		Find(&accounts).Error
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

func (r *repo) ListChildren(ctx context.Context, db *gorm.DB, orgID, parentID snowflake.ID) ([]domain.Account, error) {
	var accounts []domain.Account
	err := db.WithContext(ctx).
		Where("org_id = ? AND parent_account_id = ?", orgID, parentID).
		Order("account_number asc, name asc, id asc").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) CountChildren(ctx context.Context, db *gorm.DB, orgID, parentID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Account{}).
		Where("org_id = ? AND parent_account_id = ?", orgID, parentID).
		Count(&total).Error
	return total, err
}

func (r *repo) CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Account{}).
		Where("org_id = ?", orgID).
		Count(&total).Error
	return total, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Save(account).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Account{}).Error
}
