package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/ledger/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEntries(ctx context.Context, db *gorm.DB, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&entries).Error
}

func (r *repo) FindBySource(ctx context.Context, db *gorm.DB, orgID snowflake.ID, txType domain.TransactionType, sourceID snowflake.ID) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("org_id = ? AND transaction_type = ? AND source_id = ?", orgID, txType, sourceID).
		Order("id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, orgID, accountID snowflake.ID, filter domain.EntryFilter, page pagination.Pagination) ([]domain.LedgerEntry, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("org_id = ? AND account_id = ? AND is_posted = ?", orgID, accountID, true)
	stmt = applyEntryFilter(stmt, filter)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []domain.LedgerEntry
	err := option.ApplyPagination(page).Apply(stmt).
		Order("transaction_date desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repo) ListRange(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.EntryFilter) ([]domain.LedgerEntry, error) {
	stmt := db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("org_id = ? AND is_posted = ?", orgID, true)
	if filter.AccountID != nil {
		stmt = stmt.Where("account_id = ?", *filter.AccountID)
	}
	stmt = applyEntryFilter(stmt, filter)

	var entries []domain.LedgerEntry
	err := stmt.
		Order("transaction_date asc, source_id asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) SumByAccount(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.SumFilter) ([]domain.AccountSum, error) {
	stmt := db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Select("account_id, COALESCE(SUM(debit), 0) AS debit, COALESCE(SUM(credit), 0) AS credit").
		Where("org_id = ? AND is_posted = ?", orgID, true)
	if filter.From != nil {
		stmt = stmt.Where("transaction_date >= ?", filter.From.Time())
	}
	if filter.To != nil {
		stmt = stmt.Where("transaction_date <= ?", filter.To.Time())
	}
	if len(filter.Accounts) > 0 {
		stmt = stmt.Where("account_id IN ?", filter.Accounts)
	}

	var sums []domain.AccountSum
	if err := stmt.Group("account_id").Find(&sums).Error; err != nil {
		return nil, err
	}
	return sums, nil
}

func (r *repo) HasEntriesForAccount(ctx context.Context, db *gorm.DB, orgID, accountID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("org_id = ? AND account_id = ?", orgID, accountID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) CountAccountsInOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).
		Table("accounts").
		Where("org_id = ? AND id IN ?", orgID, accountIDs).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func applyEntryFilter(stmt *gorm.DB, filter domain.EntryFilter) *gorm.DB {
	if filter.From != nil {
		stmt = stmt.Where("transaction_date >= ?", filter.From.Time())
	}
	if filter.To != nil {
		stmt = stmt.Where("transaction_date <= ?", filter.To.Time())
	}
	if filter.TransactionType != nil {
		stmt = stmt.Where("transaction_type = ?", *filter.TransactionType)
	}
	return stmt
}
