package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// TaxRate is an org-scoped rate applied to document lines. Rate is a
// fraction, e.g. 0.0825 for 8.25%.
type TaxRate struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID    `gorm:"not null;index:ix_tax_rates_org" json:"org_id"`
	Name      string          `gorm:"type:text;not null" json:"name"`
	Rate      decimal.Decimal `gorm:"type:numeric(8,6);not null;default:0" json:"rate"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TaxRate) TableName() string { return "tax_rates" }
