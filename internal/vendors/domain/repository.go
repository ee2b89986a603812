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
	Insert(ctx context.Context, db *gorm.DB, vendor *Vendor) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Vendor, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Vendor, int64, error)
	Update(ctx context.Context, db *gorm.DB, vendor *Vendor) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	// CountDocumentRefs counts bills, vendor payments and expenses that
	// reference the vendor; a non-zero count blocks hard deletion.
	CountDocumentRefs(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
}
