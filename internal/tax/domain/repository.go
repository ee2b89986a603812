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
	Insert(ctx context.Context, db *gorm.DB, rate *TaxRate) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*TaxRate, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*TaxRate, int64, error)
	Update(ctx context.Context, db *gorm.DB, rate *TaxRate) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	// CountLineItemRefs counts invoice and bill lines that reference the
	// rate; a non-zero count blocks hard deletion.
	CountLineItemRefs(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
}
