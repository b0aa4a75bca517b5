package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/memberbase/memberbase/pkg/pagination"
)

// roleColumns whitelists the filter/order keys the roles repository accepts.
var roleColumns = map[string]string{
	"id":        "id",
	"userId":    "user_id",
	"domain":    "domain",
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const roleSelectList = "id, user_id, domain, name, created_at, updated_at"

// Store persists role grants in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a role store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRole inserts a new grant. The id is generated here; timestamps come
// back from the database so they match what later reads will see.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	query := `
		INSERT INTO roles (id, user_id, domain, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, role.ID, role.UserID, role.Domain, string(role.Name)).
		Scan(&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// CreateRoleIn is CreateRole inside an existing transaction, for callers
// that must grant a role atomically with another write.
func (s *Store) CreateRoleIn(ctx context.Context, tx *sql.Tx, role *Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	query := `
		INSERT INTO roles (id, user_id, domain, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := tx.QueryRowContext(ctx, query, role.ID, role.UserID, role.Domain, string(role.Name)).
		Scan(&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// GetRole retrieves a grant by id, optionally scoped to a domain. Passing
// GlobalDomain skips the domain restriction.
func (s *Store) GetRole(ctx context.Context, id, domain uuid.UUID) (*Role, error) {
	query := "SELECT " + roleSelectList + " FROM roles WHERE id = $1"
	args := []any{id}
	if domain != GlobalDomain {
		query += " AND domain = $2"
		args = append(args, domain)
	}

	role, err := scanRole(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// UpdateRoleName changes a grant's role name with replace semantics.
func (s *Store) UpdateRoleName(ctx context.Context, id uuid.UUID, name RoleName) (*Role, error) {
	query := `
		UPDATE roles SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + roleSelectList
	role, err := scanRole(s.db.QueryRowContext(ctx, query, id, string(name)))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return role, nil
}

// DeleteRole revokes a single grant.
func (s *Store) DeleteRole(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM roles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDomainRoles revokes every grant in a domain. Runs inside the same
// transaction that deletes the domain itself.
func (s *Store) DeleteDomainRoles(ctx context.Context, tx *sql.Tx, domain uuid.UUID) error {
	execer := interface {
		ExecContext(context.Context, string, ...any) (sql.Result, error)
	}(s.db)
	if tx != nil {
		execer = tx
	}
	if _, err := execer.ExecContext(ctx, "DELETE FROM roles WHERE domain = $1", domain); err != nil {
		return fmt.Errorf("failed to delete domain roles: %w", err)
	}
	return nil
}

// RolesForUser returns the grants user holds in exactly this domain.
// This is the evaluator's read path.
func (s *Store) RolesForUser(ctx context.Context, userID, domain uuid.UUID) ([]*Role, error) {
	query := "SELECT " + roleSelectList + " FROM roles WHERE user_id = $1 AND domain = $2"
	rows, err := s.db.QueryContext(ctx, query, userID, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()
	return collectRoles(rows)
}

// DomainsForUser returns the distinct domains the user holds any role in.
func (s *Store) DomainsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT domain FROM roles WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user domains: %w", err)
	}
	defer rows.Close()

	var domains []uuid.UUID
	for rows.Next() {
		var d uuid.UUID
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// Find implements pagination.Repository for role listings.
func (s *Store) Find(ctx context.Context, q pagination.Query) ([]*Role, error) {
	query, args, err := q.SelectSQL("roles", roleColumns, roleSelectList)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()
	return collectRoles(rows)
}

// Count implements pagination.Repository.
func (s *Store) Count(ctx context.Context, f pagination.Filter) (int64, error) {
	query, args, err := pagination.CountSQL(f, "roles", roleColumns)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count roles: %w", err)
	}
	return count, nil
}

// CountForDomain counts the grants a domain holds, for the role quota guard.
func (s *Store) CountForDomain(ctx context.Context, domain uuid.UUID) (int64, error) {
	return s.Count(ctx, pagination.Filter{"domain": domain})
}

func scanRole(scanner interface{ Scan(dest ...any) error }) (*Role, error) {
	var (
		role Role
		name string
	)
	err := scanner.Scan(&role.ID, &role.UserID, &role.Domain, &name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	role.Name = RoleName(name)
	return &role, nil
}

func collectRoles(rows *sql.Rows) ([]*Role, error) {
	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
