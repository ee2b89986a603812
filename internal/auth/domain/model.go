// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Role is the permission tier a user holds inside their organization.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAccountant Role = "accountant"
	RoleViewer     Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAccountant, RoleViewer:
		return true
	default:
		return false
	}
}

// User is a member of exactly one organization. Email is stored lowercased
// and is unique across the whole system so login needs no org discriminator.
type User struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID      `gorm:"not null;index:ix_users_org" json:"org_id"`
	Email        string            `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	PasswordHash string            `gorm:"type:text;not null" json:"-"`
	FirstName    string            `gorm:"type:text;not null;default:''" json:"first_name"`
	LastName     string            `gorm:"type:text;not null;default:''" json:"last_name"`
	Role         Role              `gorm:"type:text;not null;default:'owner'" json:"role"`
	IsActive     bool              `gorm:"not null;default:true" json:"is_active"`
	Profile      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"profile"`
	LastLoginAt  *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
