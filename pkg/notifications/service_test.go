package notifications

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db), mock
}

func notificationRows(list ...*Notification) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "body", "seen_at", "created_at"})
	for _, n := range list {
		var seen interface{}
		if n.SeenAt != nil {
			seen = *n.SeenAt
		}
		rows.AddRow(n.ID, n.UserID, n.Title, n.Body, seen, n.CreatedAt)
	}
	return rows
}

func TestCreateAndList(t *testing.T) {
	service, mock := newMockService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(sqlmock.AnyArg(), userID, "Role granted", "You are now a member of Acme").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	created, err := service.Create(context.Background(), userID, "Role granted", "You are now a member of Acme")
	require.NoError(t, err)
	assert.Nil(t, created.SeenAt)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY created_at DESC, id DESC")).
		WithArgs(userID).
		WillReturnRows(notificationRows(created))

	list, err := service.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Role granted", list[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSeen(t *testing.T) {
	service, mock := newMockService(t)
	userID, id := uuid.New(), uuid.New()
	now := time.Now()

	seen := &Notification{
		ID: id, UserID: userID, Title: "Role granted",
		SeenAt: &now, CreatedAt: now.Add(-time.Hour),
	}
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notifications SET seen_at = NOW()")).
		WithArgs(id, userID).
		WillReturnRows(notificationRows(seen))

	got, err := service.MarkSeen(context.Background(), userID, id)
	require.NoError(t, err)
	require.NotNil(t, got.SeenAt)

	// A foreign or missing id matches nothing.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notifications SET seen_at = NOW()")).
		WithArgs(id, userID).
		WillReturnRows(notificationRows())
	_, err = service.MarkSeen(context.Background(), userID, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	service, mock := newMockService(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE id = $1 AND user_id = $2")).
		WithArgs(id, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, service.Delete(context.Background(), userID, id))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE id = $1 AND user_id = $2")).
		WithArgs(id, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, service.Delete(context.Background(), userID, id), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeSeen(t *testing.T) {
	service, mock := newMockService(t)
	cutoff := time.Now().AddDate(0, 0, -30)

	mock.ExpectExec(regexp.QuoteMeta("WHERE seen_at IS NOT NULL AND seen_at <= $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	purged, err := service.PurgeSeen(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
