package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tg := NewTokenGenerator()

	token, hash, prefix, err := tg.GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	assert.True(t, strings.HasPrefix(prefix, TokenPrefix))
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, tg.HashToken(token))
	assert.NoError(t, tg.ValidateTokenFormat(token))

	// Two tokens never collide.
	token2, _, _, err := tg.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestValidateTokenFormat(t *testing.T) {
	tg := NewTokenGenerator()

	assert.Error(t, tg.ValidateTokenFormat("tok_abcdef"))
	assert.Error(t, tg.ValidateTokenFormat("mb_"))
	assert.Error(t, tg.ValidateTokenFormat("mb_not!!valid@@base64"))
}

type memTokenStore struct {
	tokens  map[string]*APIToken
	users   map[uuid.UUID]*User
	touched int
}

func (s *memTokenStore) TokenByHash(_ context.Context, hash string) (*APIToken, error) {
	if t, ok := s.tokens[hash]; ok {
		return t, nil
	}
	return nil, ErrInvalidToken
}

func (s *memTokenStore) UserByID(_ context.Context, id uuid.UUID) (*User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (s *memTokenStore) TouchToken(_ context.Context, _ string, _ time.Time) error {
	s.touched++
	return nil
}

func newTestManager(t *testing.T) (*TokenManager, *memTokenStore, string) {
	t.Helper()
	tg := NewTokenGenerator()
	token, hash, prefix, err := tg.GenerateToken()
	require.NoError(t, err)

	user := &User{ID: uuid.New(), Email: "owner@example.com", IsActive: true}
	store := &memTokenStore{
		tokens: map[string]*APIToken{
			hash: {ID: uuid.New(), UserID: user.ID, TokenHash: hash, TokenPrefix: prefix},
		},
		users: map[uuid.UUID]*User{user.ID: user},
	}
	return NewTokenManager(store), store, token
}

func TestManagerValidate(t *testing.T) {
	manager, store, token := newTestManager(t)

	authCtx, err := manager.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", authCtx.User.Email)
	assert.Equal(t, 1, store.touched)
}

func TestManagerValidateRejectsUnknownToken(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.Validate(context.Background(), "mb_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = manager.Validate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManagerValidateRejectsExpiredAndRevoked(t *testing.T) {
	manager, store, token := newTestManager(t)

	past := time.Now().Add(-time.Hour)
	for _, tok := range store.tokens {
		tok.ExpiresAt = &past
	}
	_, err := manager.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	for _, tok := range store.tokens {
		tok.ExpiresAt = nil
		tok.RevokedAt = &past
	}
	_, err = manager.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManagerValidateRejectsInactiveUser(t *testing.T) {
	manager, store, token := newTestManager(t)
	for _, u := range store.users {
		u.IsActive = false
	}

	_, err := manager.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAPITokenExpired(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	assert.False(t, (&APIToken{}).Expired(now))
	assert.False(t, (&APIToken{ExpiresAt: &later}).Expired(now))
	assert.True(t, (&APIToken{ExpiresAt: &now}).Expired(later))
	assert.True(t, (&APIToken{RevokedAt: &now}).Expired(now))
}
