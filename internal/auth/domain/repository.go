package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	UpdateLastLogin(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
