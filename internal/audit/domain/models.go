// Package domain contains types for the audit trail service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// AuditLog records who did what to which object inside a tenant.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index:ix_audit_logs_org_created,priority:1" json:"org_id"`
	ActorType  string            `gorm:"type:text;not null;default:''" json:"actor_type"`
	ActorID    string            `gorm:"type:text;not null;default:''" json:"actor_id"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	TargetType string            `gorm:"type:text;not null;default:''" json:"target_type"`
	TargetID   string            `gorm:"type:text;not null;default:''" json:"target_id"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	IPAddress  string            `gorm:"type:text;not null;default:''" json:"ip_address"`
	UserAgent  string            `gorm:"type:text;not null;default:''" json:"user_agent"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_audit_logs_org_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
