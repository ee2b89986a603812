package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Customer struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID `gorm:"not null;index:ix_customers_org" json:"org_id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Email        string       `gorm:"type:text;not null;default:''" json:"email"`
	Phone        string       `gorm:"type:text;not null;default:''" json:"phone"`
	AddressLine1 string       `gorm:"type:text;not null;default:''" json:"address_line1"`
	AddressLine2 string       `gorm:"type:text;not null;default:''" json:"address_line2"`
	City         string       `gorm:"type:text;not null;default:''" json:"city"`
	State        string       `gorm:"type:text;not null;default:''" json:"state"`
	PostalCode   string       `gorm:"type:text;not null;default:''" json:"postal_code"`
	Country      string       `gorm:"type:text;not null;default:''" json:"country"`
	Notes        string       `gorm:"type:text;not null;default:''" json:"notes"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
