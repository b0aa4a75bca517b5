package companies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/memberbase/memberbase/pkg/pagination"
	"github.com/memberbase/memberbase/pkg/rbac"
	"github.com/memberbase/memberbase/pkg/storage"
)

// companyColumns whitelists the filter/order keys the repository accepts.
var companyColumns = map[string]string{
	"id":        "id",
	"ownerId":   "owner_id",
	"name":      "name",
	"slug":      "slug",
	"status":    "status",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const companySelectList = "id, owner_id, name, slug, COALESCE(description, ''), COALESCE(phone, ''), COALESCE(email, ''), status, COALESCE(logo_key, ''), created_at, updated_at"

const uniqueViolation = "23505"

// Service persists companies and enforces the owner quota. Deleting a
// company also revokes its roles and sweeps its uploaded files.
type Service struct {
	db          *sql.DB
	roles       *rbac.Store
	files       *storage.ObjectStore
	maxPerOwner int64
}

// NewService creates a company service. files may be nil when object
// storage is not configured; file sweeps are skipped then.
func NewService(db *sql.DB, roles *rbac.Store, files *storage.ObjectStore, maxPerOwner int64) *Service {
	return &Service{db: db, roles: roles, files: files, maxPerOwner: maxPerOwner}
}

// Create inserts a company and grants the creator the owner role in the
// same transaction. The owner quota is checked first; hitting it returns a
// *rbac.QuotaExceededError, not a permission denial.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *CreateRequest) (*Company, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pagination.ErrValidation, err)
	}

	current, err := s.CountForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := rbac.CheckQuota("companies", current, s.maxPerOwner); err != nil {
		return nil, err
	}

	company := &Company{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Phone:       req.Phone,
		Email:       req.Email,
		Status:      StatusActive,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO companies (id, owner_id, name, slug, description, phone, email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		company.ID, company.OwnerID, company.Name, company.Slug,
		company.Description, company.Phone, company.Email, string(company.Status),
	).Scan(&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	ownerRole := &rbac.Role{UserID: ownerID, Domain: company.ID, Name: rbac.RoleOwner}
	if err := s.roles.CreateRoleIn(ctx, tx, ownerRole); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return company, nil
}

// Get retrieves a company by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Company, error) {
	query := "SELECT " + companySelectList + " FROM companies WHERE id = $1"
	company, err := scanCompany(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// Update applies the non-nil request fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Company, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pagination.ErrValidation, err)
	}

	query := `
		UPDATE companies SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			phone = COALESCE($4, phone),
			email = COALESCE($5, email),
			status = COALESCE($6, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + companySelectList

	var status *string
	if req.Status != nil {
		v := string(*req.Status)
		status = &v
	}
	company, err := scanCompany(s.db.QueryRowContext(ctx, query,
		id, req.Name, req.Description, req.Phone, req.Email, status))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return company, nil
}

// SetLogoKey records where the company's logo lives in object storage.
func (s *Service) SetLogoKey(ctx context.Context, id uuid.UUID, key string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE companies SET logo_key = $2, updated_at = NOW() WHERE id = $1", id, key)
	if err != nil {
		return fmt.Errorf("failed to set logo: %w", err)
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

// Delete removes the company and revokes every role scoped to it in one
// transaction, then sweeps its uploaded files best effort. Dependent rows
// (locations, subscriptions) go with the ON DELETE CASCADE constraints.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM companies WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := s.roles.DeleteDomainRoles(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if s.files != nil {
		_ = s.files.DeletePrefix(ctx, storage.CompanyPrefix(id))
	}
	return nil
}

// Find implements pagination.Repository for company listings.
func (s *Service) Find(ctx context.Context, q pagination.Query) ([]*Company, error) {
	query, args, err := q.SelectSQL("companies", companyColumns, companySelectList)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()
	return collectCompanies(rows)
}

// Count implements pagination.Repository.
func (s *Service) Count(ctx context.Context, f pagination.Filter) (int64, error) {
	query, args, err := pagination.CountSQL(f, "companies", companyColumns)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return count, nil
}

// CountForOwner counts the companies a user owns, for the owner quota.
func (s *Service) CountForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return s.Count(ctx, pagination.Filter{"ownerId": ownerID})
}

// ListForUser returns every company the user holds any role in, resolved
// through the user's role domains.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Company, error) {
	domains, err := s.roles.DomainsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(domains) == 0 {
		return []*Company{}, nil
	}

	ids := make([]string, len(domains))
	for i, d := range domains {
		ids[i] = d.String()
	}
	query := "SELECT " + companySelectList + " FROM companies WHERE id = ANY($1) ORDER BY created_at DESC, id DESC"
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query user companies: %w", err)
	}
	defer rows.Close()
	return collectCompanies(rows)
}

func scanCompany(scanner interface{ Scan(dest ...any) error }) (*Company, error) {
	var (
		c      Company
		status string
	)
	err := scanner.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Slug, &c.Description,
		&c.Phone, &c.Email, &status, &c.LogoKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = Status(status)
	return &c, nil
}

func collectCompanies(rows *sql.Rows) ([]*Company, error) {
	var companies []*Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}
