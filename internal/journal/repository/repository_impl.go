package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/journal/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.JournalEntry, lines []domain.JournalEntryLine) error {
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.JournalEntry, error) {
	var entry domain.JournalEntry
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) LinesFor(ctx context.Context, db *gorm.DB, orgID, entryID snowflake.ID) ([]domain.JournalEntryLine, error) {
	var lines []domain.JournalEntryLine
	err := db.WithContext(ctx).
		Where("org_id = ? AND journal_entry_id = ?", orgID, entryID).
		Order("position asc, id asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.JournalEntry, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.JournalEntry{}).
		Where("org_id = ?", orgID)

	if !filter.From.IsZero() {
		stmt = stmt.Where("entry_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("entry_date <= ?", filter.To)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where("LOWER(entry_number) LIKE ? OR LOWER(memo) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.JournalEntry
	err := option.ApplyPagination(page).Apply(stmt).
		Order("entry_date desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, entry *domain.JournalEntry) error {
	return db.WithContext(ctx).Save(entry).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	err := db.WithContext(ctx).
		Where("org_id = ? AND journal_entry_id = ?", orgID, id).
		Delete(&domain.JournalEntryLine{}).Error
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.JournalEntry{}).Error
}
