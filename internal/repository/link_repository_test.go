package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/facilitydesk/internal/models"
)

func newLinkRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLinkRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()
	repo := NewLinkRepository(db)

	mock.ExpectExec("INSERT INTO request_links").WillReturnResult(sqlmock.NewResult(1, 1))

	link := &models.RequestLink{RequestID: "req-1", Token: "tok", LinkType: "QR"}
	require.NoError(t, repo.Create(context.Background(), link))
	assert.NotEmpty(t, link.ID)
	assert.False(t, link.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryFindByToken(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()
	repo := NewLinkRepository(db)

	now := time.Now()
	expires := now.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "request_id", "token", "link_type", "location_id", "phone_number", "expires_at", "is_used", "created_at"}).
		AddRow("l-1", "req-1", "tok", "QR", nil, nil, expires, false, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, request_id, token, link_type, location_id, phone_number, expires_at, is_used, created_at FROM request_links WHERE token = $1 LIMIT 1")).
		WithArgs("tok").
		WillReturnRows(rows)

	link, err := repo.FindByToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "req-1", link.RequestID)
	assert.False(t, link.IsUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryFindByTokenMissing(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()
	repo := NewLinkRepository(db)

	mock.ExpectQuery("SELECT id, request_id, token").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryMarkUsedWinsRace(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()
	repo := NewLinkRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_links SET is_used = TRUE WHERE id = $1 AND is_used = FALSE")).
		WithArgs("l-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	used, err := repo.MarkUsed(context.Background(), "l-1")
	require.NoError(t, err)
	assert.True(t, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryMarkUsedAlreadyConsumed(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()
	repo := NewLinkRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_links SET is_used = TRUE WHERE id = $1 AND is_used = FALSE")).
		WithArgs("l-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	used, err := repo.MarkUsed(context.Background(), "l-1")
	require.NoError(t, err)
	assert.False(t, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}
