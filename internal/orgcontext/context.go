// Package orgcontext carries the authenticated tenant through the request
// context. Every service re-reads it, so a handler cannot reach another
// tenant's rows by passing the wrong ID.
package orgcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type orgKey struct{}

// WithOrgID stores the organization ID in the context.
func WithOrgID(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, orgKey{}, orgID)
}

// OrgIDFromContext returns the organization ID from context, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	switch typed := ctx.Value(orgKey{}).(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
