// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free
// of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	personID := requestcontext.PersonID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithPersonID(ctx, 42)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	personIDKey    struct{}
	adminIDKey     struct{}
	clientAddrKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// PersonID retrieves the authenticated person ID from the context.
// Returns 0 if not set.
func PersonID(ctx context.Context) int64 {
	if id, ok := ctx.Value(personIDKey{}).(int64); ok {
		return id
	}
	return 0
}

// WithPersonID injects an authenticated person ID into the context.
func WithPersonID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, personIDKey{}, id)
}

// AdminID retrieves the acting administrator ID from the context.
// Returns 0 if not set.
func AdminID(ctx context.Context) int64 {
	if id, ok := ctx.Value(adminIDKey{}).(int64); ok {
		return id
	}
	return 0
}

// WithAdminID injects an acting administrator ID into the context.
func WithAdminID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, adminIDKey{}, id)
}

// ClientAddr retrieves the observed client network address from the context.
// Returns "" if the extraction middleware did not run.
func ClientAddr(ctx context.Context) string {
	if addr, ok := ctx.Value(clientAddrKey{}).(string); ok {
		return addr
	}
	return ""
}

// WithClientAddr injects an observed client address into the context.
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrKey{}, addr)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, tests without injection).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for workers that need a consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
