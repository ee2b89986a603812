// Package repository runs the raw aggregate queries behind the reports.
// Every query filters on org_id and, for ledger reads, is_posted.
package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/report/domain"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) AccountActivity(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to date.Date) ([]domain.AccountActivityRow, error) {
	query := `
		SELECT a.id AS account_id,
		       a.account_number,
		       a.name,
		       a.type,
		       COALESCE(SUM(e.debit), 0)  AS debit,
		       COALESCE(SUM(e.credit), 0) AS credit
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id AND a.org_id = e.org_id
		WHERE e.org_id = ? AND e.is_posted = ?`
	args := []any{orgID, true}
	if !from.IsZero() {
		query += " AND e.transaction_date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND e.transaction_date <= ?"
		args = append(args, to)
	}
	query += `
		GROUP BY a.id, a.account_number, a.name, a.type
		ORDER BY a.account_number, a.name`

	var rows []domain.AccountActivityRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) OpenInvoices(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.OpenDocRow, error) {
	query := `
		SELECT i.customer_id    AS party_id,
		       c.name           AS party_name,
		       i.id             AS document_id,
		       i.invoice_number AS document_number,
		       i.due_date,
		       i.amount_due
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id AND c.org_id = i.org_id
		WHERE i.org_id = ?
		  AND i.status NOT IN ('draft', 'paid', 'voided')
		  AND i.amount_due > 0
		ORDER BY c.name, i.due_date, i.id`

	var rows []domain.OpenDocRow
	if err := db.WithContext(ctx).Raw(query, orgID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) OpenBills(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.OpenDocRow, error) {
	query := `
		SELECT b.id             AS document_id,
		       b.bill_number    AS document_number,
		       b.vendor_id      AS party_id,
		       v.name           AS party_name,
		       b.due_date,
		       b.amount_due
		FROM bills b
		JOIN vendors v ON v.id = b.vendor_id AND v.org_id = b.org_id
		WHERE b.org_id = ?
		  AND b.status NOT IN ('draft', 'paid', 'voided')
		  AND b.amount_due > 0
		ORDER BY v.name, b.due_date, b.id`

	var rows []domain.OpenDocRow
	if err := db.WithContext(ctx).Raw(query, orgID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UnappliedPayments(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.UnappliedRow, error) {
	query := `
		SELECT p.customer_id AS party_id,
		       SUM(p.amount) - COALESCE(SUM(app.applied), 0) AS amount
		FROM payments p
		LEFT JOIN (
			SELECT payment_id, SUM(amount) AS applied
			FROM payment_applications
			WHERE org_id = ?
			GROUP BY payment_id
		) app ON app.payment_id = p.id
		WHERE p.org_id = ? AND p.is_voided = ?
		GROUP BY p.customer_id
		HAVING SUM(p.amount) - COALESCE(SUM(app.applied), 0) > 0`

	var rows []domain.UnappliedRow
	if err := db.WithContext(ctx).Raw(query, orgID, orgID, false).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UnappliedVendorPayments(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.UnappliedRow, error) {
	query := `
		SELECT vp.vendor_id AS party_id,
		       SUM(vp.amount) - COALESCE(SUM(app.applied), 0) AS amount
		FROM vendor_payments vp
		LEFT JOIN (
			SELECT vendor_payment_id, SUM(amount) AS applied
			FROM bill_payment_applications
			WHERE org_id = ?
			GROUP BY vendor_payment_id
		) app ON app.vendor_payment_id = vp.id
		WHERE vp.org_id = ? AND vp.is_voided = ?
		GROUP BY vp.vendor_id
		HAVING SUM(vp.amount) - COALESCE(SUM(app.applied), 0) > 0`

	var rows []domain.UnappliedRow
	if err := db.WithContext(ctx).Raw(query, orgID, orgID, false).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Entries(ctx context.Context, db *gorm.DB, orgID snowflake.ID, window domain.EntryWindow) ([]domain.EntryRow, error) {
	query := `
		SELECT e.id AS entry_id,
		       e.source_id,
		       e.transaction_type,
		       e.transaction_date,
		       e.account_id,
		       a.account_number,
		       a.name AS account_name,
		       e.description,
		       e.debit,
		       e.credit
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id AND a.org_id = e.org_id
		WHERE e.org_id = ? AND e.is_posted = ?`
	args := []any{orgID, true}
	if !window.From.IsZero() {
		query += " AND e.transaction_date >= ?"
		args = append(args, window.From)
	}
	if !window.To.IsZero() {
		query += " AND e.transaction_date <= ?"
		args = append(args, window.To)
	}
	if window.AccountID != 0 {
		query += " AND e.account_id = ?"
		args = append(args, window.AccountID)
	}
	if window.TransactionType != "" {
		query += " AND e.transaction_type = ?"
		args = append(args, window.TransactionType)
	}
	query += " ORDER BY e.transaction_date, e.source_id, e.id"

	var rows []domain.EntryRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
