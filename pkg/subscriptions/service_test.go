package subscriptions

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbase/memberbase/pkg/pagination"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db), mock
}

func subscriptionRows(subs ...*Subscription) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "company_id", "user_id", "type", "name", "price", "is_active",
		"starts_at", "expires_at", "created_at", "updated_at",
	})
	for _, s := range subs {
		var expires interface{}
		if s.ExpiresAt != nil {
			expires = *s.ExpiresAt
		}
		rows.AddRow(s.ID, s.CompanyID, s.UserID, string(s.Type), s.Name,
			s.Price, s.IsActive, s.StartsAt, expires, s.CreatedAt, s.UpdatedAt)
	}
	return rows
}

func TestCreate(t *testing.T) {
	service, mock := newMockService(t)
	companyID := uuid.New()
	userID := uuid.New()
	now := time.Now()
	starts := now.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO subscriptions")).
		WithArgs(sqlmock.AnyArg(), companyID, userID, "membership", "Gold", int64(4999), true, starts, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	sub, err := service.Create(context.Background(), companyID, &CreateRequest{
		UserID:   userID,
		Type:     TypeMembership,
		Name:     "Gold",
		Price:    4999,
		StartsAt: starts,
	})
	require.NoError(t, err)
	assert.True(t, sub.IsActive)
	assert.Nil(t, sub.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateValidation(t *testing.T) {
	service, _ := newMockService(t)
	ctx := context.Background()
	now := time.Now()
	before := now.Add(-time.Hour)

	cases := []*CreateRequest{
		{},
		{Name: "Gold", UserID: uuid.New(), Type: "trial", StartsAt: now},
		{Name: "Gold", UserID: uuid.New(), Type: TypeVoucher, Price: -1, StartsAt: now},
		{Name: "Gold", UserID: uuid.New(), Type: TypeVoucher},
		{Name: "Gold", UserID: uuid.New(), Type: TypeVoucher, StartsAt: now, ExpiresAt: &before},
	}
	for i, req := range cases {
		_, err := service.Create(ctx, uuid.New(), req)
		assert.ErrorIs(t, err, pagination.ErrValidation, "case %d", i)
	}
}

func TestGet(t *testing.T) {
	service, mock := newMockService(t)
	expires := time.Now().Add(24 * time.Hour)
	sub := &Subscription{
		ID: uuid.New(), CompanyID: uuid.New(), UserID: uuid.New(),
		Type: TypeVoucher, Name: "Day Pass", Price: 900, IsActive: true,
		StartsAt: time.Now().Add(-time.Hour), ExpiresAt: &expires,
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE id = $1 AND company_id = $2")).
		WithArgs(sub.ID, sub.CompanyID).
		WillReturnRows(subscriptionRows(sub))

	got, err := service.Get(context.Background(), sub.CompanyID, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.Equal(t, TypeVoucher, got.Type)

	mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE id = $1 AND company_id = $2")).
		WillReturnError(sql.ErrNoRows)
	_, err = service.Get(context.Background(), uuid.New(), sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel(t *testing.T) {
	service, mock := newMockService(t)
	companyID, id := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE subscriptions SET is_active = FALSE")).
		WithArgs(id, companyID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, service.Cancel(context.Background(), companyID, id))

	// Cancelling twice finds nothing active.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subscriptions SET is_active = FALSE")).
		WithArgs(id, companyID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, service.Cancel(context.Background(), companyID, id), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireLapsed(t *testing.T) {
	service, mock := newMockService(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	expired, err := service.ExpireLapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSortedByExpiry(t *testing.T) {
	service, mock := newMockService(t)
	companyID := uuid.New()
	sub := &Subscription{
		ID: uuid.New(), CompanyID: companyID, UserID: uuid.New(),
		Type: TypeMembership, Name: "Gold", IsActive: true, StartsAt: time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE company_id = $1 ORDER BY expires_at ASC NULLS LAST, id ASC LIMIT 25")).
		WithArgs(companyID).
		WillReturnRows(subscriptionRows(sub))

	got, err := service.Find(context.Background(), pagination.Query{
		Filter:      pagination.Filter{"companyId": companyID},
		OrderColumn: "expiresAt",
		Order:       pagination.OrderAsc,
		Limit:       25,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveAt(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	sub := &Subscription{IsActive: true, StartsAt: earlier}
	assert.True(t, sub.ActiveAt(now))

	sub.ExpiresAt = &later
	assert.True(t, sub.ActiveAt(now))
	assert.False(t, sub.ActiveAt(later.Add(time.Minute)))

	sub.IsActive = false
	assert.False(t, sub.ActiveAt(now))

	notStarted := &Subscription{IsActive: true, StartsAt: later}
	assert.False(t, notStarted.ActiveAt(now))
}
