// Package auditcontext carries request attribution for audit trail writes.
package auditcontext

import (
	"context"
	"strings"
)

type actorKey struct{}
type requestIDKey struct{}
type ipAddressKey struct{}
type userAgentKey struct{}

type actor struct {
	Type string
	ID   string
}

// WithActor records the acting principal for downstream audit writes.
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

// WithRequestID records the correlation id for audit writes.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the correlation id or empty string.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithIPAddress records the caller address for audit writes.
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipAddressKey{}, strings.TrimSpace(ip))
}

// IPAddressFromContext returns the caller address or empty string.
func IPAddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ipAddressKey{}).(string); ok {
		return v
	}
	return ""
}

// WithUserAgent records the caller user agent for audit writes.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, strings.TrimSpace(ua))
}

// UserAgentFromContext returns the caller user agent or empty string.
func UserAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}
