package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	OrgID      snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*AuditLog, int64, error)
}
