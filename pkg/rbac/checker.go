package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memberbase/memberbase/pkg/observability"
)

// RoleSource is the evaluator's read path into persisted grants.
type RoleSource interface {
	RolesForUser(ctx context.Context, userID, domain uuid.UUID) ([]*Role, error)
}

// DecisionCache caches authorization verdicts. Implementations are best
// effort: the checker falls through to the role source on any cache error.
type DecisionCache interface {
	Get(ctx context.Context, key string) (allowed bool, ok bool, err error)
	Set(ctx context.Context, key string, allowed bool, ttl time.Duration) error
	InvalidateUser(ctx context.Context, userID string) error
}

// Checker decides allow/deny for (user, domain, capability). It is
// stateless between invocations and safe for concurrent use.
type Checker struct {
	roles    RoleSource
	grants   Grants
	cache    DecisionCache
	cacheTTL time.Duration
	metrics  *observability.Metrics
}

// NewChecker creates an evaluator over the given role source and grant
// table.
func NewChecker(roles RoleSource, grants Grants) *Checker {
	return &Checker{roles: roles, grants: grants}
}

// WithCache enables verdict caching with the given TTL. Role mutations must
// call InvalidateUser or stale allows live until the TTL runs out.
func (c *Checker) WithCache(cache DecisionCache, ttl time.Duration) *Checker {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

// WithMetrics enables decision and cache instrumentation. Nil is a no-op.
func (c *Checker) WithMetrics(m *observability.Metrics) *Checker {
	c.metrics = m
	return c
}

func (c *Checker) recordDecision(capability Capability, allowed bool) {
	if c.metrics == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	c.metrics.AuthzDecisionsTotal.WithLabelValues(string(capability), decision).Inc()
}

// Authorize resolves the user's roles scoped to exactly this domain and
// allows when any of them implies the required capability. Zero roles deny.
// The returned denial is the bare ErrForbidden: nothing about existing
// roles leaks to the caller. The domain id must already be resolved; a
// missing domain is the caller's not-found, not a denial.
func (c *Checker) Authorize(ctx context.Context, userID, domain uuid.UUID, capability Capability) error {
	key := decisionKey(userID, domain, capability)
	if c.cache != nil {
		if allowed, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if c.metrics != nil {
				c.metrics.AuthzCacheHitsTotal.WithLabelValues(string(capability)).Inc()
			}
			c.recordDecision(capability, allowed)
			if allowed {
				return nil
			}
			return ErrForbidden
		}
		if c.metrics != nil {
			c.metrics.AuthzCacheMissesTotal.WithLabelValues(string(capability)).Inc()
		}
	}

	roles, err := c.roles.RolesForUser(ctx, userID, domain)
	if err != nil {
		return fmt.Errorf("failed to resolve roles: %w", err)
	}

	allowed := false
	for _, role := range roles {
		if c.grants.Implies(role.Name, capability) {
			allowed = true
			break
		}
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, allowed, c.cacheTTL)
	}
	c.recordDecision(capability, allowed)

	if !allowed {
		return ErrForbidden
	}
	return nil
}

// InvalidateUser drops every cached verdict for the user. No-op without a
// cache.
func (c *Checker) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.InvalidateUser(ctx, userID.String())
}

// decisionKey scopes a cached verdict to (user, domain, capability).
func decisionKey(userID, domain uuid.UUID, capability Capability) string {
	return fmt.Sprintf("perm:%s:%s:%s", userID, domain, capability)
}

// DecisionKeyPrefix returns the cache key prefix holding one user's
// verdicts, used by cache implementations to invalidate per user.
func DecisionKeyPrefix(userID string) string {
	return "perm:" + userID + ":"
}
