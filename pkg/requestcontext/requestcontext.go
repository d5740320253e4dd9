// Package requestcontext carries request-scoped values set by HTTP middleware.
package requestcontext

import (
	"context"
	"time"

	"credledger/pkg/domain"
)

type (
	contextKeyRequestID struct{}
	contextKeyCaller    struct{}
	contextKeyTime      struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// RequestID returns the request ID, or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return v
	}
	return ""
}

// WithCaller stores the authenticated ledger account acting for this request.
func WithCaller(ctx context.Context, caller domain.Address) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, caller)
}

// Caller returns the authenticated account and whether one was set.
func Caller(ctx context.Context) (domain.Address, bool) {
	v, ok := ctx.Value(contextKeyCaller{}).(domain.Address)
	return v, ok && v != ""
}

// WithTime pins "now" for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyTime{}, t)
}

// Now returns the pinned request time, falling back to the wall clock
// for workers, CLI commands and tests that never set one.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
