package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/internal/bill/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill, lines []domain.BillLineItem) error {
	if err := db.WithContext(ctx).Create(bill).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Bill, error) {
	return r.find(ctx, db, orgID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Bill, error) {
	return r.find(ctx, db, orgID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, lock bool) (*domain.Bill, error) {
	stmt := db.WithContext(ctx)
	if lock && db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var bill domain.Bill
	err := stmt.
		Where("org_id = ? AND id = ?", orgID, id).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

func (r *repo) LinesFor(ctx context.Context, db *gorm.DB, orgID, billID snowflake.ID) ([]domain.BillLineItem, error) {
	var lines []domain.BillLineItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND bill_id = ?", orgID, billID).
		Order("position asc, id asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Bill, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("org_id = ?", filter.OrgID)
	if filter.VendorID != 0 {
		stmt = stmt.Where("vendor_id = ?", filter.VendorID)
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if !filter.IssuedFrom.IsZero() {
		stmt = stmt.Where("issue_date >= ?", filter.IssuedFrom)
	}
	if !filter.IssuedTo.IsZero() {
		stmt = stmt.Where("issue_date <= ?", filter.IssuedTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where(
			"LOWER(bill_number) LIKE ? OR LOWER(reference) LIKE ? OR LOWER(memo) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bills []*domain.Bill
	err := option.ApplyPagination(page).Apply(stmt).
		Order("issue_date desc, id desc").
		Find(&bills).Error
	if err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Save(bill).Error
}

func (r *repo) ReplaceLines(ctx context.Context, db *gorm.DB, orgID, billID snowflake.ID, lines []domain.BillLineItem) error {
	err := db.WithContext(ctx).
		Where("org_id = ? AND bill_id = ?", orgID, billID).
		Delete(&domain.BillLineItem{}).Error
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	err := db.WithContext(ctx).
		Where("org_id = ? AND bill_id = ?", orgID, id).
		Delete(&domain.BillLineItem{}).Error
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Bill{}).Error
}

func (r *repo) ApplicationTotal(ctx context.Context, db *gorm.DB, orgID, billID snowflake.ID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(bpa.amount), 0) AS total
		   FROM bill_payment_applications bpa
		   JOIN vendor_payments vp ON vp.id = bpa.vendor_payment_id
		  WHERE bpa.org_id = ? AND bpa.bill_id = ? AND vp.is_voided = ?`,
		orgID, billID, false,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
