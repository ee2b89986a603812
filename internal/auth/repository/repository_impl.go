package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) UpdateLastLogin(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_login_at": at, "updated_at": at}).Error
}
