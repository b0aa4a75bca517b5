// Package rbac provides domain-scoped role-based access control for Memberbase.
//
// # Overview
//
// A role is a grant of a named role to a user inside one domain (in this
// product a domain is a company id). Every mutating API operation is gated
// by an authorization check: the evaluator resolves the user's roles in the
// target domain and allows the operation when any of them implies the
// required capability.
//
// # Roles and Capabilities
//
// Role names come from a closed, configurable set; the defaults are:
//
//	owner    - company creator, full control
//	admin    - full control, granted by the owner
//	manager  - full control over day-to-day records
//	member   - read-only access
//
// Role names map to capabilities through an explicit Grants table, never by
// convention inside the evaluator:
//
//	grants := rbac.DefaultGrants()
//	grants.Implies(rbac.RoleMember, rbac.CapabilityRead) // true
//	grants.Implies(rbac.RoleMember, rbac.CapabilityFull) // false
//
// CapabilityFull covers create, update and delete; read-only endpoints
// require CapabilityRead.
//
// # Authorization
//
//	checker := rbac.NewChecker(store, rbac.DefaultGrants())
//	err := checker.Authorize(ctx, userID, companyID, rbac.CapabilityFull)
//	if errors.Is(err, rbac.ErrForbidden) {
//		// 403, no detail about which roles exist
//	}
//
// The evaluator answers only the authorization question for an
// already-resolved domain id; "domain does not exist" is the caller's
// lookup to make and is never conflated with a denial. A user with zero
// roles in the domain is always denied. When a user holds several roles in
// one domain the union of their capabilities applies.
//
// Decisions can be cached in Redis with a short TTL; role mutations must
// invalidate the affected user's entries.
//
// # Quotas
//
// Several guards cap how many resources of a kind a domain may hold (five
// companies per owner, a bounded number of roles per company, and so on).
// The predicate is a plain count-versus-maximum compare; violations surface
// as *QuotaExceededError, distinct from an authorization denial.
//
// # Related Packages
//
//   - pkg/middleware: resolves the authenticated user and the company id
//     from the request before the check runs
//   - pkg/companies: creates the owner role when a company is created and
//     cascades role deletion with the company
package rbac
