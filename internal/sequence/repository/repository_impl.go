package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/sequence/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) IncrementAndGet(ctx context.Context, db *gorm.DB, orgID snowflake.ID, class domain.Class) (*domain.DocumentSequence, error) {
	if db.Dialector.Name() == "postgres" {
		return r.incrementReturning(ctx, db, orgID, class)
	}
	return r.incrementLocked(ctx, db, orgID, class)
}

// incrementReturning performs the bump in a single statement so concurrent
// allocators serialize on the row without an explicit lock.
func (r *repo) incrementReturning(ctx context.Context, db *gorm.DB, orgID snowflake.ID, class domain.Class) (*domain.DocumentSequence, error) {
	var seq domain.DocumentSequence
	result := db.WithContext(ctx).Raw(
		`UPDATE document_sequences
			SET next_number = next_number + 1, updated_at = ?
			WHERE org_id = ? AND document_class = ?
			RETURNING id, org_id, document_class, prefix, padding, next_number, created_at, updated_at`,
		time.Now().UTC(),
		orgID,
		class,
	).Scan(&seq)
	if result.Error != nil {
		return nil, result.Error
	}
	if seq.ID == 0 {
		return nil, nil
	}
	// RETURNING reports the post-increment value.
	seq.NextNumber--
	return &seq, nil
}

// incrementLocked is the fallback for databases without RETURNING-based
// upserts in gorm (tests run on sqlite, which serializes writers anyway).
func (r *repo) incrementLocked(ctx context.Context, db *gorm.DB, orgID snowflake.ID, class domain.Class) (*domain.DocumentSequence, error) {
	var seq domain.DocumentSequence
	stmt := db.WithContext(ctx)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.
		Where("org_id = ? AND document_class = ?", orgID, class).
		First(&seq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	allocated := seq.NextNumber
	err = db.WithContext(ctx).Model(&domain.DocumentSequence{}).
		Where("id = ?", seq.ID).
		Updates(map[string]any{
			"next_number": gorm.Expr("next_number + 1"),
			"updated_at":  time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, err
	}
	seq.NextNumber = allocated
	return &seq, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, seq *domain.DocumentSequence) error {
	return db.WithContext(ctx).Create(seq).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, orgID snowflake.ID, class domain.Class) (*domain.DocumentSequence, error) {
	var seq domain.DocumentSequence
	err := db.WithContext(ctx).
		Where("org_id = ? AND document_class = ?", orgID, class).
		First(&seq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &seq, nil
}
