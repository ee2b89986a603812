package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

// Service is the append-only audit trail. Record never participates in the
// caller's transaction: a failed write is logged and swallowed so bookkeeping
// operations do not fail on audit unavailability.
type Service interface {
	Record(ctx context.Context, action, targetType, targetID string, metadata map[string]any)
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTimeRange    = errors.New("invalid_time_range")
	ErrInvalidAction       = errors.New("invalid_action")
)
