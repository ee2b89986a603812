package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/internal/invoice/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, lines []domain.InvoiceLineItem) error {
	if err := db.WithContext(ctx).Create(invoice).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	return r.find(ctx, db, orgID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	return r.find(ctx, db, orgID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, lock bool) (*domain.Invoice, error) {
	stmt := db.WithContext(ctx)
	if lock && db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var invoice domain.Invoice
	err := stmt.
		Where("org_id = ? AND id = ?", orgID, id).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) LinesFor(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.InvoiceLineItem, error) {
	var lines []domain.InvoiceLineItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("position asc, id asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invoice, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ?", filter.OrgID)
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if !filter.DueBefore.IsZero() {
		stmt = stmt.Where("due_date < ?", filter.DueBefore)
	}
	if !filter.IssuedFrom.IsZero() {
		stmt = stmt.Where("issue_date >= ?", filter.IssuedFrom)
	}
	if !filter.IssuedTo.IsZero() {
		stmt = stmt.Where("issue_date <= ?", filter.IssuedTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where("LOWER(invoice_number) LIKE ? OR LOWER(memo) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []*domain.Invoice
	err := option.ApplyPagination(page).Apply(stmt).
		Order("issue_date desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Save(invoice).Error
}

func (r *repo) ReplaceLines(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, lines []domain.InvoiceLineItem) error {
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Delete(&domain.InvoiceLineItem{}).Error
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
		Where("org_id = ? AND invoice_id = ?", orgID, id).
		Delete(&domain.InvoiceLineItem{}).Error
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Invoice{}).Error
}

func (r *repo) ApplicationTotal(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(pa.amount), 0) AS total
		   FROM payment_applications pa
		   JOIN payments p ON p.id = pa.payment_id
		  WHERE pa.org_id = ? AND pa.invoice_id = ? AND p.is_voided = ?`,
		orgID, invoiceID, false,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
