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
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Product, int64, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	// CountLineItemRefs counts invoice lines that reference the product;
	// a non-zero count blocks hard deletion.
	CountLineItemRefs(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
}
