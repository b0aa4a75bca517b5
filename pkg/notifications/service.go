package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const notificationSelectList = "id, user_id, title, body, seen_at, created_at"

// Service persists notifications. Every read and mutation is scoped to
// the owning user, so one user can never touch another's feed.
type Service struct {
	db *sql.DB
}

// NewService creates a notification service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create appends an entry to the user's feed.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, body string) (*Notification, error) {
	n := &Notification{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
		Body:   body,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		n.ID, n.UserID, n.Title, n.Body,
	).Scan(&n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// ListForUser returns the user's feed, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Notification, error) {
	query := "SELECT " + notificationSelectList + " FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id DESC"
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var list []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkSeen stamps the notification as seen and returns it. Marking an
// already-seen entry refreshes the stamp.
func (s *Service) MarkSeen(ctx context.Context, userID, id uuid.UUID) (*Notification, error) {
	query := `
		UPDATE notifications SET seen_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationSelectList
	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification seen: %w", err)
	}
	return n, nil
}

// Delete removes the notification from the user's feed.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
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

// PurgeSeen deletes seen notifications older than the cutoff. The janitor
// runs this weekly to keep feeds bounded.
func (s *Service) PurgeSeen(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE seen_at IS NOT NULL AND seen_at <= $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func scanNotification(scanner interface{ Scan(dest ...any) error }) (*Notification, error) {
	var (
		n      Notification
		seenAt sql.NullTime
	)
	err := scanner.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &seenAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if seenAt.Valid {
		n.SeenAt = &seenAt.Time
	}
	return &n, nil
}
