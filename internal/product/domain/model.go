package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry line items can reference. The account columns
// carry the defaults used when a document line does not name one.
type Product struct {
	ID                 snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID              snowflake.ID    `gorm:"not null;index:ix_products_org" json:"org_id"`
	Name               string          `gorm:"type:text;not null" json:"name"`
	SKU                string          `gorm:"column:sku;type:text;not null;default:''" json:"sku"`
	Description        string          `gorm:"type:text;not null;default:''" json:"description"`
	UnitPrice          decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0" json:"unit_price"`
	IncomeAccountID    *snowflake.ID   `json:"income_account_id,omitempty"`
	ExpenseAccountID   *snowflake.ID   `json:"expense_account_id,omitempty"`
	InventoryAccountID *snowflake.ID   `json:"inventory_account_id,omitempty"`
	IsActive           bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }
