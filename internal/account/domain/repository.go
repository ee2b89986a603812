package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows account listings. Search matches name, number and
// description case-insensitively.
type ListFilter struct {
	OrgID    snowflake.ID
	Type     AccountType
	IsActive *bool
	Search   string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Account, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Account, error)
	FindByNumber(ctx context.Context, db *gorm.DB, orgID snowflake.ID, number string) (*Account, error)
	FindSystemBySubtype(ctx context.Context, db *gorm.DB, orgID snowflake.ID, subtype AccountSubtype) (*Account, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Account, int64, error)
	ListChildren(ctx context.Context, db *gorm.DB, orgID, parentID snowflake.ID) ([]Account, error)
	CountChildren(ctx context.Context, db *gorm.DB, orgID, parentID snowflake.ID) (int64, error)
	CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
	Update(ctx context.Context, db *gorm.DB, account *Account) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
}
