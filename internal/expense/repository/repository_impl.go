package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/expense/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Create(expense).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Expense, error) {
	var expense domain.Expense
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Expense, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("org_id = ?", filter.OrgID)
	if filter.AccountID != 0 {
		stmt = stmt.Where("account_id = ?", filter.AccountID)
	}
	if filter.VendorID != 0 {
		stmt = stmt.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.IsVoided != nil {
		stmt = stmt.Where("is_voided = ?", *filter.IsVoided)
	}
	if !filter.From.IsZero() {
		stmt = stmt.Where("expense_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("expense_date <= ?", filter.To)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where(
			"LOWER(expense_number) LIKE ? OR LOWER(reference) LIKE ? OR LOWER(memo) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var expenses []*domain.Expense
	err := option.ApplyPagination(page).Apply(stmt).
		Order("expense_date desc, id desc").
		Find(&expenses).Error
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Save(expense).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Expense{}).Error
}
