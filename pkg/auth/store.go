package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user lookup matches nothing.
var ErrUserNotFound = errors.New("user not found")

// Store persists users and API tokens in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates an auth store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, email, name, phone, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.Phone).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.IsActive = true
	return nil
}

// UserByID implements TokenStore.
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, email, name, phone, is_active, created_at, updated_at, last_login_at
		FROM users WHERE id = $1
	`
	user := &User{}
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.Phone,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return user, nil
}

// CreateToken stores a freshly generated token's hash.
func (s *Store) CreateToken(ctx context.Context, token *APIToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	query := `
		INSERT INTO api_tokens (id, user_id, token_hash, token_prefix, name, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.TokenPrefix, token.Name, token.ExpiresAt,
	).Scan(&token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// TokenByHash implements TokenStore.
func (s *Store) TokenByHash(ctx context.Context, hash string) (*APIToken, error) {
	query := `
		SELECT id, user_id, token_hash, token_prefix, name, expires_at, last_used_at, created_at, revoked_at
		FROM api_tokens WHERE token_hash = $1
	`
	token := &APIToken{}
	var expiresAt, lastUsedAt, revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.TokenPrefix, &token.Name,
		&expiresAt, &lastUsedAt, &token.CreatedAt, &revokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if expiresAt.Valid {
		token.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		token.LastUsedAt = &lastUsedAt.Time
	}
	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}
	return token, nil
}

// TouchToken implements TokenStore.
func (s *Store) TouchToken(ctx context.Context, hash string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE api_tokens SET last_used_at = $2 WHERE token_hash = $1", hash, at)
	return err
}

// PurgeExpiredTokens deletes tokens that expired or were revoked before
// the cutoff. Returns how many rows were removed.
func (s *Store) PurgeExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM api_tokens
		WHERE (expires_at IS NOT NULL AND expires_at < $1)
		   OR (revoked_at IS NOT NULL AND revoked_at < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tokens: %w", err)
	}
	return result.RowsAffected()
}

// RevokeToken marks a token unusable from now on.
func (s *Store) RevokeToken(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE api_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidToken
	}
	return nil
}
