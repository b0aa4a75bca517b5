package plans

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memberbase/memberbase/pkg/pagination"
)

const planSelectList = "id, company_id, created_by, name, price, is_active, starts_at, ends_at, created_at, updated_at"

// Service persists pricing plans.
type Service struct {
	db *sql.DB
}

// NewService creates a pricing plan service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Start begins a new plan for the company, cancelling any active plans
// first. Both steps run in one transaction so the company never holds two
// competing plans.
func (s *Service) Start(ctx context.Context, companyID, userID uuid.UUID, req *StartRequest) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pagination.ErrValidation, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pricing_plans SET is_active = FALSE, updated_at = NOW()
		WHERE company_id = $1 AND is_active`,
		companyID); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to cancel previous plans: %w", err)
	}

	plan := &Plan{
		ID:        uuid.New(),
		CompanyID: companyID,
		CreatedBy: userID,
		Name:      req.Name,
		Price:     req.Price,
		IsActive:  true,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO pricing_plans (id, company_id, created_by, name, price, is_active, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		plan.ID, plan.CompanyID, plan.CreatedBy, plan.Name, plan.Price,
		plan.IsActive, plan.StartsAt, plan.EndsAt,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan: %w", err)
	}
	return plan, nil
}

// Extend queues a plan that begins when the company's current chain ends.
// The company must hold an active plan to extend.
func (s *Service) Extend(ctx context.Context, companyID, userID uuid.UUID, req *ExtendRequest) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pagination.ErrValidation, err)
	}

	current, err := s.Latest(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !req.EndsAt.After(current.EndsAt) {
		return nil, fmt.Errorf("%w: endsAt must be after the current plan ends", pagination.ErrValidation)
	}

	plan := &Plan{
		ID:        uuid.New(),
		CompanyID: companyID,
		CreatedBy: userID,
		Name:      req.Name,
		Price:     req.Price,
		IsActive:  true,
		StartsAt:  current.EndsAt,
		EndsAt:    req.EndsAt,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO pricing_plans (id, company_id, created_by, name, price, is_active, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		plan.ID, plan.CompanyID, plan.CreatedBy, plan.Name, plan.Price,
		plan.IsActive, plan.StartsAt, plan.EndsAt,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to extend plan: %w", err)
	}
	return plan, nil
}

// Latest returns the active plan ending last, which is the tail of the
// company's plan chain: the current plan, or the furthest queued
// extension.
func (s *Service) Latest(ctx context.Context, companyID uuid.UUID) (*Plan, error) {
	query := "SELECT " + planSelectList + " FROM pricing_plans WHERE company_id = $1 AND is_active ORDER BY ends_at DESC LIMIT 1"
	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, companyID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// Cancel deactivates the company's whole plan chain, the current plan and
// any queued extensions together.
func (s *Service) Cancel(ctx context.Context, companyID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE pricing_plans SET is_active = FALSE, updated_at = NOW()
		WHERE company_id = $1 AND is_active`,
		companyID)
	if err != nil {
		return fmt.Errorf("failed to cancel plan: %w", err)
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

// ExpireLapsed deactivates every active plan whose period has ended. The
// janitor runs this nightly; it is idempotent.
func (s *Service) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE pricing_plans SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND ends_at <= $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire plans: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func scanPlan(scanner interface{ Scan(dest ...any) error }) (*Plan, error) {
	var plan Plan
	err := scanner.Scan(&plan.ID, &plan.CompanyID, &plan.CreatedBy, &plan.Name,
		&plan.Price, &plan.IsActive, &plan.StartsAt, &plan.EndsAt,
		&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
