package companies

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbase/memberbase/pkg/pagination"
	"github.com/memberbase/memberbase/pkg/rbac"
)

func newMockService(t *testing.T, maxPerOwner int64) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, rbac.NewStore(db), nil, maxPerOwner), mock
}

func companyRows(companies ...*Company) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "name", "slug", "description", "phone", "email",
		"status", "logo_key", "created_at", "updated_at",
	})
	for _, c := range companies {
		rows.AddRow(c.ID, c.OwnerID, c.Name, c.Slug, c.Description, c.Phone,
			c.Email, string(c.Status), c.LogoKey, c.CreatedAt, c.UpdatedAt)
	}
	return rows
}

func expectOwnerCount(mock sqlmock.Sqlmock, ownerID uuid.UUID, count int64) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM companies WHERE owner_id = $1")).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestCreate(t *testing.T) {
	service, mock := newMockService(t, 5)
	ownerID := uuid.New()
	now := time.Now()

	expectOwnerCount(mock, ownerID, 2)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO companies")).
		WithArgs(sqlmock.AnyArg(), ownerID, "Acme Fitness", "acme-fitness", "", "", "", "active").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO roles")).
		WithArgs(sqlmock.AnyArg(), ownerID, sqlmock.AnyArg(), "owner").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	company, err := service.Create(context.Background(), ownerID, &CreateRequest{Name: "Acme Fitness"})
	require.NoError(t, err)
	assert.Equal(t, "acme-fitness", company.Slug)
	assert.Equal(t, StatusActive, company.Status)
	assert.Equal(t, ownerID, company.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateQuotaExceeded(t *testing.T) {
	service, mock := newMockService(t, 5)
	ownerID := uuid.New()

	// Already at the cap: the insert never happens.
	expectOwnerCount(mock, ownerID, 5)

	_, err := service.Create(context.Background(), ownerID, &CreateRequest{Name: "One Too Many"})
	require.Error(t, err)
	assert.True(t, rbac.IsQuotaExceeded(err))
	assert.NotErrorIs(t, err, rbac.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvalidRequest(t *testing.T) {
	service, _ := newMockService(t, 5)

	_, err := service.Create(context.Background(), uuid.New(), &CreateRequest{})
	assert.ErrorIs(t, err, pagination.ErrValidation)
}

func TestCreateSlugTaken(t *testing.T) {
	service, mock := newMockService(t, 5)
	ownerID := uuid.New()

	expectOwnerCount(mock, ownerID, 0)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO companies")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := service.Create(context.Background(), ownerID, &CreateRequest{Name: "Acme"})
	assert.ErrorIs(t, err, ErrSlugTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	service, mock := newMockService(t, 5)
	company := &Company{ID: uuid.New(), OwnerID: uuid.New(), Name: "Acme", Slug: "acme", Status: StatusActive}

	mock.ExpectQuery(regexp.QuoteMeta("FROM companies WHERE id = $1")).
		WithArgs(company.ID).
		WillReturnRows(companyRows(company))

	got, err := service.Get(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Slug)

	mock.ExpectQuery(regexp.QuoteMeta("FROM companies WHERE id = $1")).
		WillReturnError(sql.ErrNoRows)
	_, err = service.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	service, mock := newMockService(t, 5)
	company := &Company{ID: uuid.New(), OwnerID: uuid.New(), Name: "Renamed", Slug: "acme", Status: StatusActive}
	name := "Renamed"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE companies SET")).
		WithArgs(company.ID, "Renamed", nil, nil, nil, nil).
		WillReturnRows(companyRows(company))

	got, err := service.Update(context.Background(), company.ID, &UpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	service, mock := newMockService(t, 5)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM companies WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roles WHERE domain = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, service.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotFound(t *testing.T) {
	service, mock := newMockService(t, 5)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM companies WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, service.Delete(context.Background(), id), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUser(t *testing.T) {
	service, mock := newMockService(t, 5)
	userID := uuid.New()
	company := &Company{ID: uuid.New(), OwnerID: userID, Name: "Acme", Slug: "acme", Status: StatusActive}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT domain FROM roles WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"domain"}).AddRow(company.ID))
	mock.ExpectQuery(regexp.QuoteMeta("FROM companies WHERE id = ANY($1)")).
		WillReturnRows(companyRows(company))

	got, err := service.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, company.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUserNoRoles(t *testing.T) {
	service, mock := newMockService(t, 5)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT domain FROM roles WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"domain"}))

	got, err := service.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPaginated(t *testing.T) {
	service, mock := newMockService(t, 5)
	ownerID := uuid.New()
	company := &Company{ID: uuid.New(), OwnerID: ownerID, Name: "Acme", Slug: "acme", Status: StatusActive}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $1 ORDER BY created_at DESC NULLS LAST, id DESC LIMIT 25")).
		WithArgs(ownerID).
		WillReturnRows(companyRows(company))

	got, err := service.Find(context.Background(), pagination.Query{
		Filter: pagination.Filter{"ownerId": ownerID},
		Limit:  25,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
