package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// IncrementAndGet atomically bumps next_number and returns the row as
	// it was before the bump. Returns nil when no row exists yet.
	IncrementAndGet(ctx context.Context, db *gorm.DB, orgID snowflake.ID, class Class) (*DocumentSequence, error)
	Insert(ctx context.Context, db *gorm.DB, seq *DocumentSequence) error
	Find(ctx context.Context, db *gorm.DB, orgID snowflake.ID, class Class) (*DocumentSequence, error)
}
