package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/audit/masking"
	auditcontext "github.com/smallbiznis/ledgerly/internal/auditcontext"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, action, targetType, targetID string, metadata map[string]any) {
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = "unknown"
	}

	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	actorType, actorID := s.resolveActor(ctx)

	payload := map[string]any{}
	for key, value := range metadata {
		if key == "" {
			continue
		}
		if isSensitiveKey(key) {
			payload[key] = masking.MaskSecret(fmt.Sprint(value))
			continue
		}
		payload[key] = value
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(targetID),
		Metadata:   datatypes.JSONMap(payload),
		IPAddress:  auditcontext.IPAddressFromContext(ctx),
		UserAgent:  auditcontext.UserAgentFromContext(ctx),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidOrganization
	}

	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		OrgID:      orgID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
	}, page)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	return auditdomain.ListAuditLogResponse{
		PageInfo:  pagination.BuildPageInfo(total, page),
		AuditLogs: logs,
	}, nil
}

func (s *Service) resolveActor(ctx context.Context) (string, string) {
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}
	return actorType, actorID
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "password") ||
		strings.Contains(lower, "secret") ||
		strings.Contains(lower, "token")
}
