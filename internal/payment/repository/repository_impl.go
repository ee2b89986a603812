package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/payment/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment, applications []domain.PaymentApplication) error {
	if err := db.WithContext(ctx).Create(payment).Error; err != nil {
		return err
	}
	if len(applications) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&applications).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ApplicationsFor(ctx context.Context, db *gorm.DB, orgID, paymentID snowflake.ID) ([]domain.PaymentApplication, error) {
	var applications []domain.PaymentApplication
	err := db.WithContext(ctx).
		Where("org_id = ? AND payment_id = ?", orgID, paymentID).
		Order("id asc").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Payment, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("org_id = ?", filter.OrgID)
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.IsVoided != nil {
		stmt = stmt.Where("is_voided = ?", *filter.IsVoided)
	}
	if !filter.From.IsZero() {
		stmt = stmt.Where("payment_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("payment_date <= ?", filter.To)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where(
			"LOWER(payment_number) LIKE ? OR LOWER(reference_number) LIKE ? OR LOWER(memo) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []*domain.Payment
	err := option.ApplyPagination(page).Apply(stmt).
		Order("payment_date desc, id desc").
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Save(payment).Error
}

func (r *repo) DeleteApplications(ctx context.Context, db *gorm.DB, orgID, paymentID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND payment_id = ?", orgID, paymentID).
		Delete(&domain.PaymentApplication{}).Error
}
