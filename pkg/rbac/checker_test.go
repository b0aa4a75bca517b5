package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbase/memberbase/pkg/observability"
)

type fakeRoleSource struct {
	roles map[uuid.UUID]map[uuid.UUID][]*Role
	calls int
	err   error
}

func (f *fakeRoleSource) RolesForUser(_ context.Context, userID, domain uuid.UUID) ([]*Role, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[userID][domain], nil
}

func grant(userID, domain uuid.UUID, name RoleName) *Role {
	return &Role{ID: uuid.New(), UserID: userID, Domain: domain, Name: name}
}

func TestAuthorize(t *testing.T) {
	owner := uuid.New()
	member := uuid.New()
	stranger := uuid.New()
	company := uuid.New()
	other := uuid.New()

	source := &fakeRoleSource{roles: map[uuid.UUID]map[uuid.UUID][]*Role{
		owner:  {company: {grant(owner, company, RoleOwner)}},
		member: {company: {grant(member, company, RoleMember)}},
	}}
	checker := NewChecker(source, DefaultGrants())
	ctx := context.Background()

	assert.NoError(t, checker.Authorize(ctx, owner, company, CapabilityFull))
	assert.NoError(t, checker.Authorize(ctx, member, company, CapabilityRead))

	// Member cannot mutate.
	assert.ErrorIs(t, checker.Authorize(ctx, member, company, CapabilityFull), ErrForbidden)

	// No roles at all denies with the same error.
	assert.ErrorIs(t, checker.Authorize(ctx, stranger, company, CapabilityRead), ErrForbidden)

	// Roles do not leak across domains.
	assert.ErrorIs(t, checker.Authorize(ctx, owner, other, CapabilityRead), ErrForbidden)
}

func TestAuthorizeUnionOfRoles(t *testing.T) {
	user := uuid.New()
	company := uuid.New()

	// Holding member and admin together, the stronger grant wins.
	source := &fakeRoleSource{roles: map[uuid.UUID]map[uuid.UUID][]*Role{
		user: {company: {
			grant(user, company, RoleMember),
			grant(user, company, RoleAdmin),
		}},
	}}
	checker := NewChecker(source, DefaultGrants())

	assert.NoError(t, checker.Authorize(context.Background(), user, company, CapabilityFull))
}

func TestAuthorizeUnrecognizedRoleName(t *testing.T) {
	user := uuid.New()
	company := uuid.New()

	source := &fakeRoleSource{roles: map[uuid.UUID]map[uuid.UUID][]*Role{
		user: {company: {grant(user, company, "superuser")}},
	}}
	checker := NewChecker(source, DefaultGrants())

	assert.ErrorIs(t, checker.Authorize(context.Background(), user, company, CapabilityRead), ErrForbidden)
}

func TestAuthorizeSourceError(t *testing.T) {
	source := &fakeRoleSource{err: errors.New("db down")}
	checker := NewChecker(source, DefaultGrants())

	err := checker.Authorize(context.Background(), uuid.New(), uuid.New(), CapabilityRead)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client)
}

func TestAuthorizeCaching(t *testing.T) {
	user := uuid.New()
	company := uuid.New()

	source := &fakeRoleSource{roles: map[uuid.UUID]map[uuid.UUID][]*Role{
		user: {company: {grant(user, company, RoleAdmin)}},
	}}
	checker := NewChecker(source, DefaultGrants()).
		WithCache(newTestRedisCache(t), time.Minute)
	ctx := context.Background()

	require.NoError(t, checker.Authorize(ctx, user, company, CapabilityFull))
	assert.Equal(t, 1, source.calls)

	// Second check is answered from cache.
	require.NoError(t, checker.Authorize(ctx, user, company, CapabilityFull))
	assert.Equal(t, 1, source.calls)

	// Denials cache too.
	stranger := uuid.New()
	assert.ErrorIs(t, checker.Authorize(ctx, stranger, company, CapabilityRead), ErrForbidden)
	assert.ErrorIs(t, checker.Authorize(ctx, stranger, company, CapabilityRead), ErrForbidden)
	assert.Equal(t, 2, source.calls)

	// Invalidation forces a fresh lookup.
	require.NoError(t, checker.InvalidateUser(ctx, user))
	require.NoError(t, checker.Authorize(ctx, user, company, CapabilityFull))
	assert.Equal(t, 3, source.calls)
}

func TestAuthorizeMetrics(t *testing.T) {
	user := uuid.New()
	company := uuid.New()

	source := &fakeRoleSource{roles: map[uuid.UUID]map[uuid.UUID][]*Role{
		user: {company: {grant(user, company, RoleAdmin)}},
	}}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	checker := NewChecker(source, DefaultGrants()).
		WithCache(newTestRedisCache(t), time.Minute).
		WithMetrics(metrics)
	ctx := context.Background()

	// First check misses the cache, second is served from it.
	require.NoError(t, checker.Authorize(ctx, user, company, CapabilityFull))
	require.NoError(t, checker.Authorize(ctx, user, company, CapabilityFull))

	capability := string(CapabilityFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthzCacheMissesTotal.WithLabelValues(capability)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthzCacheHitsTotal.WithLabelValues(capability)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues(capability, "allow")))

	// Denials count too.
	stranger := uuid.New()
	assert.ErrorIs(t, checker.Authorize(ctx, stranger, company, CapabilityRead), ErrForbidden)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues(string(CapabilityRead), "deny")))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "perm:u:d:read")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "perm:u:d:read", true, time.Minute))
	allowed, ok, err := cache.Get(ctx, "perm:u:d:read")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, allowed)

	require.NoError(t, cache.Set(ctx, "perm:u:d:full", false, time.Minute))
	allowed, ok, err = cache.Get(ctx, "perm:u:d:full")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, allowed)

	require.NoError(t, cache.InvalidateUser(ctx, "u"))
	_, ok, err = cache.Get(ctx, "perm:u:d:read")
	require.NoError(t, err)
	assert.False(t, ok)
}
