package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/facilitydesk/internal/models"
)

func newActivityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestActivityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newActivityRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(1, 1))

	from := models.StatusNew
	to := models.StatusAssigned
	desc := "Status changed from NEW to ASSIGNED"
	entry := &models.Activity{
		RequestID:   "req-1",
		UserID:      "user-1",
		Action:      string(to),
		Description: &desc,
		FromStatus:  &from,
		ToStatus:    &to,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListByRequest(t *testing.T) {
	db, mock, cleanup := newActivityRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "request_id", "user_id", "action", "description", "from_status", "to_status", "created_at"}).
		AddRow("a-1", "req-1", "user-1", "Created", "Request created", nil, "NEW", now.Add(-time.Hour)).
		AddRow("a-2", "req-1", "user-2", "ASSIGNED", "Status changed from NEW to ASSIGNED", "NEW", "ASSIGNED", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, request_id, user_id, action, description, from_status, to_status, created_at FROM activities WHERE request_id = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("req-1").
		WillReturnRows(rows)

	entries, err := repo.ListByRequest(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Created", entries[0].Action)
	require.NotNil(t, entries[1].FromStatus)
	assert.Equal(t, models.StatusNew, *entries[1].FromStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryRecent(t *testing.T) {
	db, mock, cleanup := newActivityRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "request_id", "user_id", "action", "description", "from_status", "to_status", "created_at", "user_name", "request_ref", "request_title", "service_type"}).
		AddRow("a-9", "req-7", "user-3", "COMPLETED", "Status changed from IN_PROGRESS to COMPLETED", "IN_PROGRESS", "COMPLETED", now, "Asha Rao", "REQ-2026-0007", "AC servicing", "Maintenance")
	mock.ExpectQuery("SELECT a.id, a.request_id, a.user_id").
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].UserName)
	assert.Equal(t, "Asha Rao", *entries[0].UserName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
