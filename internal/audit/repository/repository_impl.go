package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/option"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.AuditLog, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{}).
		Where("org_id = ?", filter.OrgID)

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		stmt = stmt.Where("target_type = ?", targetType)
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		stmt = stmt.Where("target_id = ?", targetID)
	}
	if actorType := strings.TrimSpace(filter.ActorType); actorType != "" {
		stmt = stmt.Where("actor_type = ?", actorType)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []*domain.AuditLog
	err := option.ApplyPagination(page).Apply(stmt).
		Order("created_at desc, id desc").
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
