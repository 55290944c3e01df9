// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the pipeline must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/turnstile/pkg/contextkeys"
//	ctx = contextkeys.WithAuth(ctx, authCtx)
//	raw := contextkeys.GetAuth(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *identity.AuthContext
	// Set by: middleware.Auth (pkg/middleware/auth.go)
	// Required by: CSRF middleware, user-keyed rate limiting, RBAC middleware, handlers
	// Type: *identity.AuthContext
	AuthKey Key = "auth_context"

	// BodyKey contains the cached parsed request body
	// Set by: middleware.BodyCache (pkg/middleware/bodycache.go)
	// Required by: CSRF middleware (in-body token fallback), handlers
	// Type: map[string]interface{}
	BodyKey Key = "cached_body"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// GetAuth retrieves the raw authentication context value
func GetAuth(ctx context.Context) interface{} {
	return ctx.Value(AuthKey)
}

// WithBody adds the cached parsed request body to the context
func WithBody(ctx context.Context, body map[string]interface{}) context.Context {
	return context.WithValue(ctx, BodyKey, body)
}

// GetBody retrieves the cached parsed request body from the context.
// Returns nil when no body cache middleware ran for this request.
func GetBody(ctx context.Context) map[string]interface{} {
	if body, ok := ctx.Value(BodyKey).(map[string]interface{}); ok {
		return body
	}
	return nil
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}
