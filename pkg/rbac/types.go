package rbac

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Capability is a named permission a role may imply.
type Capability string

const (
	// CapabilityRead gates read-only endpoints.
	CapabilityRead Capability = "read"
	// CapabilityFull covers create, update and delete; it is the default
	// requirement for mutating endpoints.
	CapabilityFull Capability = "full"
)

// RoleName identifies a role within the configured closed set.
type RoleName string

// Default role names. The recognized set is configuration, not a constraint
// baked into the evaluator; deployments may extend it through Grants.
const (
	RoleOwner   RoleName = "owner"
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleMember  RoleName = "member"
)

// ErrForbidden is the generic denial. It intentionally carries no
// information about which roles exist or would have satisfied the check.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a role lookup matches nothing.
var ErrNotFound = errors.New("role not found")

// GlobalDomain is the sentinel for grants with no domain restriction.
// Representable in storage, but outside what Checker evaluates.
var GlobalDomain = uuid.Nil

// Role binds (user, domain, name): a grant of a named role to a user within
// one tenant-scoped domain. The persistence layer enforces uniqueness of
// the triple; a user may still hold several distinct roles in one domain.
type Role struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Domain    uuid.UUID `json:"domain"`
	Name      RoleName  `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CursorID implements pagination.Item.
func (r *Role) CursorID() string { return r.ID.String() }

// CursorValue implements pagination.Item.
func (r *Role) CursorValue(column string) (any, bool) {
	switch column {
	case "createdAt":
		return r.CreatedAt, true
	case "updatedAt":
		return r.UpdatedAt, true
	case "name":
		return string(r.Name), true
	case "userId":
		return r.UserID.String(), true
	case "domain":
		return r.Domain.String(), true
	}
	return nil, false
}

// Grants is the explicit role-name-to-capability table the evaluator
// consults. Keeping it a value handed to NewChecker, rather than package
// state, lets deployments reshape the role set without code changes.
type Grants map[RoleName][]Capability

// DefaultGrants returns the product's stock role table.
func DefaultGrants() Grants {
	return Grants{
		RoleOwner:   {CapabilityFull, CapabilityRead},
		RoleAdmin:   {CapabilityFull, CapabilityRead},
		RoleManager: {CapabilityFull, CapabilityRead},
		RoleMember:  {CapabilityRead},
	}
}

// Implies reports whether the named role carries the capability.
func (g Grants) Implies(name RoleName, capability Capability) bool {
	for _, c := range g[name] {
		if c == capability {
			return true
		}
	}
	return false
}

// Recognized reports whether name is part of the configured role set.
func (g Grants) Recognized(name RoleName) bool {
	_, ok := g[name]
	return ok
}
