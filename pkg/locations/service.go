package locations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/memberbase/memberbase/pkg/pagination"
	"github.com/memberbase/memberbase/pkg/rbac"
)

var locationColumns = map[string]string{
	"id":        "id",
	"companyId": "company_id",
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const locationSelectList = "id, company_id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''), latitude, longitude, working_hours, created_at, updated_at"

// Service persists locations. Every operation is company-scoped so one
// tenant can never reach another's rows, whatever ids it guesses.
type Service struct {
	db            *sql.DB
	maxPerCompany int64
}

// NewService creates a location service.
func NewService(db *sql.DB, maxPerCompany int64) *Service {
	return &Service{db: db, maxPerCompany: maxPerCompany}
}

// Create inserts a location after checking the per-company quota.
func (s *Service) Create(ctx context.Context, companyID uuid.UUID, req *CreateRequest) (*Location, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pagination.ErrValidation, err)
	}

	current, err := s.CountForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := rbac.CheckQuota("locations", current, s.maxPerCompany); err != nil {
		return nil, err
	}

	location := &Location{
		ID:           uuid.New(),
		CompanyID:    companyID,
		Name:         req.Name,
		Address:      req.Address,
		Phone:        req.Phone,
		Email:        req.Email,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		WorkingHours: req.WorkingHours,
	}
	if location.WorkingHours == nil {
		location.WorkingHours = WorkingHours{}
	}

	hours, err := json.Marshal(location.WorkingHours)
	if err != nil {
		return nil, fmt.Errorf("failed to encode working hours: %w", err)
	}

	query := `
		INSERT INTO locations (id, company_id, name, address, phone, email, latitude, longitude, working_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		location.ID, location.CompanyID, location.Name, location.Address,
		location.Phone, location.Email, location.Latitude, location.Longitude, hours,
	).Scan(&location.CreatedAt, &location.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return location, nil
}

// Get retrieves a location within the company.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Location, error) {
	query := "SELECT " + locationSelectList + " FROM locations WHERE id = $1 AND company_id = $2"
	location, err := scanLocation(s.db.QueryRowContext(ctx, query, id, companyID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return location, nil
}

// Update applies the non-nil request fields.
func (s *Service) Update(ctx context.Context, companyID, id uuid.UUID, req *UpdateRequest) (*Location, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pagination.ErrValidation, err)
	}

	var hours []byte
	if req.WorkingHours != nil {
		encoded, err := json.Marshal(*req.WorkingHours)
		if err != nil {
			return nil, fmt.Errorf("failed to encode working hours: %w", err)
		}
		hours = encoded
	}

	query := `
		UPDATE locations SET
			name = COALESCE($3, name),
			address = COALESCE($4, address),
			phone = COALESCE($5, phone),
			email = COALESCE($6, email),
			latitude = COALESCE($7, latitude),
			longitude = COALESCE($8, longitude),
			working_hours = COALESCE($9, working_hours),
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING ` + locationSelectList

	location, err := scanLocation(s.db.QueryRowContext(ctx, query,
		id, companyID, req.Name, req.Address, req.Phone, req.Email,
		req.Latitude, req.Longitude, hours))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return location, nil
}

// Delete removes a location within the company.
func (s *Service) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM locations WHERE id = $1 AND company_id = $2", id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
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

// Find implements pagination.Repository for location listings.
func (s *Service) Find(ctx context.Context, q pagination.Query) ([]*Location, error) {
	query, args, err := q.SelectSQL("locations", locationColumns, locationSelectList)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []*Location
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

// Count implements pagination.Repository.
func (s *Service) Count(ctx context.Context, f pagination.Filter) (int64, error) {
	query, args, err := pagination.CountSQL(f, "locations", locationColumns)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count locations: %w", err)
	}
	return count, nil
}

// CountForCompany counts a company's locations, for the location quota.
func (s *Service) CountForCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return s.Count(ctx, pagination.Filter{"companyId": companyID})
}

func scanLocation(scanner interface{ Scan(dest ...any) error }) (*Location, error) {
	var (
		l     Location
		hours []byte
	)
	err := scanner.Scan(&l.ID, &l.CompanyID, &l.Name, &l.Address, &l.Phone,
		&l.Email, &l.Latitude, &l.Longitude, &hours, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(hours, &l.WorkingHours); err != nil {
		return nil, fmt.Errorf("failed to decode working hours: %w", err)
	}
	return &l, nil
}
