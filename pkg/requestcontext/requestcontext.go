// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware but consumed by services. Keeping this
// package free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	callerID := requestcontext.CallerID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithCallerID(ctx, userID)
package requestcontext

import (
	"context"
	"time"

	id "linkup/pkg/domain"
)

type (
	callerIDKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// CallerID retrieves the authenticated caller from the context.
// Returns the zero value (nil UUID) if not set.
func CallerID(ctx context.Context) id.UserID {
	if callerID, ok := ctx.Value(callerIDKey{}).(id.UserID); ok {
		return callerID
	}
	return id.UserID{}
}

// WithCallerID injects an authenticated caller into the context.
func WithCallerID(ctx context.Context, callerID id.UserID) context.Context {
	return context.WithValue(ctx, callerIDKey{}, callerID)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request time if one was injected, else wall-clock time.
// Services use this so tests can pin timestamps.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time in the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
