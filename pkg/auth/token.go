package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenPrefix identifies Memberbase tokens.
	TokenPrefix = "mb_"
	// TokenLength is the number of random bytes in a token (256 bits).
	TokenLength = 32
)

// ErrInvalidToken is returned for tokens that are malformed, unknown,
// expired or revoked. The caller cannot tell which, on purpose.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenStore is the persistence the manager validates against.
type TokenStore interface {
	// TokenByHash looks up a token by its SHA-256 hash.
	TokenByHash(ctx context.Context, hash string) (*APIToken, error)
	// UserByID loads the token owner.
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)
	// TouchToken records last use; best effort.
	TouchToken(ctx context.Context, hash string, at time.Time) error
}

// TokenGenerator generates and validates API tokens.
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token.
// Format: mb_<base64url(32 random bytes)>. The hash is what goes to
// storage; the prefix is kept for display in token listings.
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encoded

	hash := sha256.Sum256([]byte(fullToken))

	prefix := TokenPrefix
	if len(encoded) >= 8 {
		prefix = TokenPrefix + encoded[:8]
	}

	return fullToken, hex.EncodeToString(hash[:]), prefix, nil
}

// HashToken computes the SHA-256 hash of a token for lookup.
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks whether a token is shaped like one of ours
// before any storage lookup happens.
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}
	encoded := strings.TrimPrefix(token, TokenPrefix)
	if encoded == "" {
		return errors.New("token is too short")
	}
	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}
	return nil
}

// TokenManager resolves bearer tokens into authenticated users.
type TokenManager struct {
	store     TokenStore
	generator *TokenGenerator
	now       func() time.Time
}

// NewTokenManager creates a manager over store.
func NewTokenManager(store TokenStore) *TokenManager {
	return &TokenManager{
		store:     store,
		generator: NewTokenGenerator(),
		now:       time.Now,
	}
}

// Validate resolves a raw bearer token into its owner. Every failure mode
// collapses into ErrInvalidToken.
func (m *TokenManager) Validate(ctx context.Context, token string) (*Context, error) {
	if err := m.generator.ValidateTokenFormat(token); err != nil {
		return nil, ErrInvalidToken
	}

	hash := m.generator.HashToken(token)
	apiToken, err := m.store.TokenByHash(ctx, hash)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if apiToken.Expired(m.now()) {
		return nil, ErrInvalidToken
	}

	user, err := m.store.UserByID(ctx, apiToken.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidToken
	}

	_ = m.store.TouchToken(ctx, hash, m.now())

	return &Context{User: user, Token: apiToken}, nil
}
