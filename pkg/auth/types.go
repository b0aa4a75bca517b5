// Package auth provides user accounts and API token authentication.
package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account that can hold roles and own companies.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// APIToken represents a long-lived API token. Only the SHA-256 hash is
// stored; the raw token is shown once at creation.
type APIToken struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Expired reports whether the token is past its expiry or revoked.
func (t *APIToken) Expired(now time.Time) bool {
	if t.RevokedAt != nil {
		return true
	}
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// Context is the authenticated identity attached to a request.
type Context struct {
	User  *User
	Token *APIToken
}
