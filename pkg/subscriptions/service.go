package subscriptions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memberbase/memberbase/pkg/pagination"
)

var subscriptionColumns = map[string]string{
	"id":        "id",
	"companyId": "company_id",
	"userId":    "user_id",
	"type":      "type",
	"name":      "name",
	"isActive":  "is_active",
	"startsAt":  "starts_at",
	"expiresAt": "expires_at",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const subscriptionSelectList = "id, company_id, user_id, type, name, price, is_active, starts_at, expires_at, created_at, updated_at"

// Service persists subscriptions. Like locations, every operation is
// company-scoped.
type Service struct {
	db *sql.DB
}

// NewService creates a subscription service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a subscription for a user within the company.
func (s *Service) Create(ctx context.Context, companyID uuid.UUID, req *CreateRequest) (*Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pagination.ErrValidation, err)
	}

	sub := &Subscription{
		ID:        uuid.New(),
		CompanyID: companyID,
		UserID:    req.UserID,
		Type:      req.Type,
		Name:      req.Name,
		Price:     req.Price,
		IsActive:  true,
		StartsAt:  req.StartsAt,
		ExpiresAt: req.ExpiresAt,
	}

	query := `
		INSERT INTO subscriptions (id, company_id, user_id, type, name, price, is_active, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		sub.ID, sub.CompanyID, sub.UserID, string(sub.Type), sub.Name,
		sub.Price, sub.IsActive, sub.StartsAt, sub.ExpiresAt,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub, nil
}

// Get retrieves a subscription within the company.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Subscription, error) {
	query := "SELECT " + subscriptionSelectList + " FROM subscriptions WHERE id = $1 AND company_id = $2"
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, query, id, companyID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// Cancel deactivates a subscription without deleting its record.
func (s *Service) Cancel(ctx context.Context, companyID, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND is_active`,
		id, companyID)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
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

// Delete removes a subscription within the company.
func (s *Service) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE id = $1 AND company_id = $2", id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
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

// Find implements pagination.Repository for subscription listings. Sorting
// by expiresAt puts never-expiring rows at the tail under the null
// ordering policy.
func (s *Service) Find(ctx context.Context, q pagination.Query) ([]*Subscription, error) {
	query, args, err := q.SelectSQL("subscriptions", subscriptionColumns, subscriptionSelectList)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Count implements pagination.Repository.
func (s *Service) Count(ctx context.Context, f pagination.Filter) (int64, error) {
	query, args, err := pagination.CountSQL(f, "subscriptions", subscriptionColumns)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

// ExpireLapsed deactivates every active subscription whose expiry has
// passed. The janitor runs this nightly; it is idempotent.
func (s *Service) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func scanSubscription(scanner interface{ Scan(dest ...any) error }) (*Subscription, error) {
	var (
		sub       Subscription
		subType   string
		expiresAt sql.NullTime
	)
	err := scanner.Scan(&sub.ID, &sub.CompanyID, &sub.UserID, &subType, &sub.Name,
		&sub.Price, &sub.IsActive, &sub.StartsAt, &expiresAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Type = Type(subType)
	if expiresAt.Valid {
		sub.ExpiresAt = &expiresAt.Time
	}
	return &sub, nil
}
