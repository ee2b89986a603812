package server

import (
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
)

type listAuditLogQuery struct {
	pagination.Pagination
	Action     string `form:"action"`
	TargetType string `form:"targetType"`
	TargetID   string `form:"targetId"`
	ActorType  string `form:"actorType"`
	StartAt    string `form:"startAt"`
	EndAt      string `form:"endAt"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var q listAuditLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Pagination: q.Pagination,
		Action:     q.Action,
		TargetType: q.TargetType,
		TargetID:   q.TargetID,
		ActorType:  q.ActorType,
	}
	if q.StartAt != "" {
		t, err := time.Parse(time.RFC3339, q.StartAt)
		if err != nil {
			respondError(c, auditdomain.ErrInvalidTimeRange)
			return
		}
		req.StartAt = &t
	}
	if q.EndAt != "" {
		t, err := time.Parse(time.RFC3339, q.EndAt)
		if err != nil {
			respondError(c, auditdomain.ErrInvalidTimeRange)
			return
		}
		req.EndAt = &t
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.AuditLogs, resp.PageInfo)
}
