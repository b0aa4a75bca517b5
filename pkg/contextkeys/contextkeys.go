// Package contextkeys centralizes request context key definitions.
//
// All context keys used across the application are defined here so
// dependencies between middlewares stay discoverable and typo-proof.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions.
type Key string

const (
	// AuthKey contains *auth.Context.
	// Set by: middleware.AuthMiddleware
	// Required by: protected endpoints, rbac middleware
	AuthKey Key = "auth_context"

	// CompanyKey contains the uuid.UUID of the company (domain) the
	// request targets.
	// Set by: middleware.CompanyContext from the {companyId} path var
	// Required by: rbac middleware, quota guards
	CompanyKey Key = "company_id"

	// RequestIDKey contains the request id string.
	// Set by: middleware.RequestID
	RequestIDKey Key = "request_id"
)

// WithAuth adds the authentication context.
func WithAuth(ctx context.Context, authCtx any) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithCompany adds the target company id.
func WithCompany(ctx context.Context, companyID any) context.Context {
	return context.WithValue(ctx, CompanyKey, companyID)
}

// WithRequestID adds the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID returns the request id, or "" when unset.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}
