// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Organization represents a tenant. Every other table in the system hangs
// off its id; all amounts inside a tenant share its base currency.
type Organization struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                 string       `gorm:"type:text;not null" json:"name"`
	Slug                 string       `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	BaseCurrency         string       `gorm:"type:char(3);not null;default:'USD'" json:"base_currency"`
	FiscalYearStartMonth int          `gorm:"not null;default:1" json:"fiscal_year_start_month"`
	Timezone             string       `gorm:"type:text;not null;default:'UTC'" json:"timezone"`
	CreatedAt            time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
