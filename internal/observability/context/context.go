// Package obscontext carries request-scoped correlation values used by
// logging and tracing. Values are plain strings so they can cross package
// boundaries without importing domain types.
package obscontext

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type orgIDKey struct{}
type actorKey struct{}

type actor struct {
	Type string
	ID   string
}

// WithRequestID stores the request id on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the request id or empty string.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithOrgID stores the organization id on the context for log correlation.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDKey{}, strings.TrimSpace(orgID))
}

// OrgIDFromContext returns the organization id or empty string.
func OrgIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(orgIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithActor stores the acting principal type and id on the context.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{
		Type: strings.TrimSpace(actorType),
		ID:   strings.TrimSpace(actorID),
	})
}

// ActorFromContext returns the actor type and id, empty when unset.
func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	if v, ok := ctx.Value(actorKey{}).(actor); ok {
		return v.Type, v.ID
	}
	return "", ""
}
