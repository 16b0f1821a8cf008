package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/session/domain"
)

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestPostgres_GetByID(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	cols := []string{"id", "user_id", "company_id", "refresh_jti", "refresh_token_hash", "expires_at", "revoked_at", "last_seen_at", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM auth_sessions WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("s1", 3, 1, "jti-1", "hash-1", now.Add(time.Hour), nil, now, now))

	s, err := repo.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.UserID)
	assert.Equal(t, int64(1), s.TenantID)
	assert.Equal(t, "jti-1", s.RefreshJti)
	assert.Nil(t, s.RevokedAt)
	require.NotNil(t, s.LastSeenAt)
	assert.True(t, s.Active(now))
}

func TestPostgres_GetByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM auth_sessions").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO auth_sessions").
		WithArgs("s1", int64(3), int64(1), "jti", "hash", now.Add(time.Hour), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.AuthSession{
		ID: "s1", UserID: 3, TenantID: 1, RefreshJti: "jti", RefreshTokenHash: "hash",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	})
	require.NoError(t, err)
}

func TestPostgres_Revoke(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE auth_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL")).
		WithArgs("s1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND revoked_at IS NULL")).
		WithArgs(int64(3), at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Revoke(context.Background(), "s1", at))
	require.NoError(t, repo.RevokeAllByUser(context.Background(), 3, at))
}

func TestPostgres_UpdateRefreshToken(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("UPDATE auth_sessions SET refresh_jti").
		WithArgs("s1", "jti-2", "hash-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE auth_sessions SET refresh_jti").
		WithArgs("gone", "jti-2", "hash-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateRefreshToken(context.Background(), "s1", "jti-2", "hash-2"))
	err := repo.UpdateRefreshToken(context.Background(), "gone", "jti-2", "hash-2")
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
}

func TestAuthSession_Active(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Minute)
	assert.False(t, (&domain.AuthSession{ExpiresAt: now.Add(-time.Second)}).Active(now))
	assert.False(t, (&domain.AuthSession{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}).Active(now))
	assert.True(t, (&domain.AuthSession{ExpiresAt: now.Add(time.Hour)}).Active(now))
	var none *domain.AuthSession
	assert.False(t, none.Active(now))
}
