// Package middleware provides the HTTP middleware chain: request ids,
// request logging, bearer token authentication and company scoping.
//
// Ordering matters. RequestID runs first so every later log line carries
// the id, Logging wraps the handler to time it, Auth resolves the bearer
// token into a user, and CompanyContext pins the request to the company
// named in the path. Capability checks live in the rbac package and expect
// Auth and CompanyContext to have run already.
package middleware
