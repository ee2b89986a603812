package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ledgerly/internal/auditcontext"
	"github.com/smallbiznis/ledgerly/internal/auth/token"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/ratelimit"
)

// AuthMiddleware verifies the bearer token and installs the principal and
// tenant scope on the request context. Every tenant-scoped repository read
// goes through orgcontext, so a missing principal fails closed.
func (s *Server) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			respondError(c, ErrUnauthorized)
			return
		}

		principal, err := s.tokens.Verify(raw)
		if err != nil {
			respondError(c, err)
			return
		}

		ctx := token.WithPrincipal(c.Request.Context(), principal)
		ctx = orgcontext.WithOrgID(ctx, int64(principal.OrgID))
		ctx = auditcontext.WithActor(ctx, "user", principal.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequestAuditContext captures the request attribution the audit trail
// records alongside each action.
func (s *Server) RequestAuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auditcontext.WithRequestID(c.Request.Context(), c.GetHeader("X-Request-ID"))
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorize gates a route on the casbin policy for the caller's role.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := token.PrincipalFromContext(c.Request.Context())
		if !ok {
			respondError(c, ErrUnauthorized)
			return
		}

		actor := "user:" + principal.UserID.String()
		if err := s.authz.Authorize(c.Request.Context(), actor, principal.OrgID.String(), object, action); err != nil {
			respondError(c, err)
			return
		}
		c.Next()
	}
}

// AuthRateLimit throttles credential endpoints per client address. The
// limiter is nil when Redis is not configured; requests pass untouched.
func (s *Server) AuthRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.authLimiter.Enabled() {
			c.Next()
			return
		}

		result, err := s.authLimiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Redis being down must not lock everyone out.
			s.log.Warn("auth rate limiter unavailable")
			c.Next()
			return
		}
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(result.RetryAfter)))
			respondError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
