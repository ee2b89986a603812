package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	OrgID    snowflake.ID
	IsActive *bool
	Search   string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Customer, int64, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	// CountDocumentRefs counts invoices and payments that reference the
	// customer; a non-zero count blocks hard deletion.
	CountDocumentRefs(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
}
