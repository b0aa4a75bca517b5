package plans

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

func planRows(plans ...*Plan) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "company_id", "created_by", "name", "price", "is_active",
		"starts_at", "ends_at", "created_at", "updated_at",
	})
	for _, p := range plans {
		rows.AddRow(p.ID, p.CompanyID, p.CreatedBy, p.Name, p.Price,
			p.IsActive, p.StartsAt, p.EndsAt, p.CreatedAt, p.UpdatedAt)
	}
	return rows
}

func TestStartCancelsPreviousPlans(t *testing.T) {
	service, mock := newMockService(t)
	companyID, userID := uuid.New(), uuid.New()
	now := time.Now()
	ends := now.AddDate(0, 1, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pricing_plans SET is_active = FALSE")).
		WithArgs(companyID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pricing_plans")).
		WithArgs(sqlmock.AnyArg(), companyID, userID, "Pro", int64(9900), true, now, ends).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	plan, err := service.Start(context.Background(), companyID, userID, &StartRequest{
		Name:     "Pro",
		Price:    9900,
		StartsAt: now,
		EndsAt:   ends,
	})
	require.NoError(t, err)
	assert.True(t, plan.IsActive)
	assert.Equal(t, companyID, plan.CompanyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartValidation(t *testing.T) {
	service, _ := newMockService(t)
	ctx := context.Background()
	now := time.Now()

	cases := []*StartRequest{
		{},
		{Name: "Pro", Price: -1, StartsAt: now, EndsAt: now.Add(time.Hour)},
		{Name: "Pro", EndsAt: now.Add(time.Hour)},
		{Name: "Pro", StartsAt: now, EndsAt: now},
	}
	for i, req := range cases {
		_, err := service.Start(ctx, uuid.New(), uuid.New(), req)
		assert.ErrorIs(t, err, pagination.ErrValidation, "case %d", i)
	}
}

func TestExtendQueuesBehindCurrentPlan(t *testing.T) {
	service, mock := newMockService(t)
	companyID, userID := uuid.New(), uuid.New()
	now := time.Now()
	currentEnds := now.AddDate(0, 1, 0)
	extensionEnds := now.AddDate(0, 2, 0)

	current := &Plan{
		ID: uuid.New(), CompanyID: companyID, CreatedBy: userID,
		Name: "Pro", Price: 9900, IsActive: true,
		StartsAt: now, EndsAt: currentEnds, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY ends_at DESC LIMIT 1")).
		WithArgs(companyID).
		WillReturnRows(planRows(current))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pricing_plans")).
		WithArgs(sqlmock.AnyArg(), companyID, userID, "Pro", int64(9900), true, currentEnds, extensionEnds).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	plan, err := service.Extend(context.Background(), companyID, userID, &ExtendRequest{
		Name:   "Pro",
		Price:  9900,
		EndsAt: extensionEnds,
	})
	require.NoError(t, err)

	// The extension picks up exactly where the current plan stops.
	assert.Equal(t, currentEnds, plan.StartsAt)
	assert.Equal(t, extensionEnds, plan.EndsAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendWithoutActivePlan(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY ends_at DESC LIMIT 1")).
		WillReturnError(sql.ErrNoRows)

	_, err := service.Extend(context.Background(), uuid.New(), uuid.New(), &ExtendRequest{
		Name:   "Pro",
		EndsAt: time.Now().AddDate(0, 1, 0),
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendCannotShortenChain(t *testing.T) {
	service, mock := newMockService(t)
	companyID := uuid.New()
	now := time.Now()
	currentEnds := now.AddDate(0, 2, 0)

	current := &Plan{
		ID: uuid.New(), CompanyID: companyID, CreatedBy: uuid.New(),
		Name: "Pro", IsActive: true,
		StartsAt: now, EndsAt: currentEnds, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY ends_at DESC LIMIT 1")).
		WithArgs(companyID).
		WillReturnRows(planRows(current))

	_, err := service.Extend(context.Background(), companyID, uuid.New(), &ExtendRequest{
		Name:   "Pro",
		EndsAt: now.AddDate(0, 1, 0),
	})
	assert.ErrorIs(t, err, pagination.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel(t *testing.T) {
	service, mock := newMockService(t)
	companyID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pricing_plans SET is_active = FALSE")).
		WithArgs(companyID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, service.Cancel(context.Background(), companyID))

	// Nothing active to cancel.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pricing_plans SET is_active = FALSE")).
		WithArgs(companyID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, service.Cancel(context.Background(), companyID), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireLapsed(t *testing.T) {
	service, mock := newMockService(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("WHERE is_active AND ends_at <= $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	expired, err := service.ExpireLapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentAt(t *testing.T) {
	now := time.Now()
	plan := &Plan{IsActive: true, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}

	assert.True(t, plan.CurrentAt(now))
	assert.False(t, plan.CurrentAt(now.Add(2*time.Hour)))

	queued := &Plan{IsActive: true, StartsAt: now.Add(time.Hour), EndsAt: now.Add(2*time.Hour)}
	assert.False(t, queued.CurrentAt(now))

	plan.IsActive = false
	assert.False(t, plan.CurrentAt(now))
}
