package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/session/domain"
)

// PostgresRepository stores auth sessions in the auth_sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id. A missing row is storeerr.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuthSession, error) {
	var (
		s                 domain.AuthSession
		revoked, lastSeen sql.NullTime
		jti, refreshHash  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, company_id, refresh_jti, refresh_token_hash, expires_at, revoked_at, last_seen_at, created_at
		FROM auth_sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.TenantID, &jti, &refreshHash, &s.ExpiresAt, &revoked, &lastSeen, &s.CreatedAt)
	if err != nil {
		return nil, storeerr.FromSQL("get auth session", err)
	}
	s.RefreshJti = jti.String
	s.RefreshTokenHash = refreshHash.String
	s.RevokedAt = nullTimeToPtr(revoked)
	s.LastSeenAt = nullTimeToPtr(lastSeen)
	return &s, nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.AuthSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (id, user_id, company_id, refresh_jti, refresh_token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.TenantID, nullString(s.RefreshJti), nullString(s.RefreshTokenHash), s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return storeerr.FromSQL("create auth session", err)
	}
	return nil
}

// Revoke marks the session as revoked. Revoking an already revoked session keeps the first timestamp.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	if err != nil {
		return storeerr.FromSQL("revoke auth session", err)
	}
	return nil
}

// RevokeAllByUser revokes every active session of the user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`, userID, at)
	if err != nil {
		return storeerr.FromSQL("revoke user auth sessions", err)
	}
	return nil
}

// UpdateLastSeen sets the session's last-seen timestamp.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE auth_sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return storeerr.FromSQL("touch auth session", err)
	}
	return nil
}

// UpdateRefreshToken stores the jti and hash of the rotated refresh token.
func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, id, jti, refreshTokenHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET refresh_jti = $2, refresh_token_hash = $3 WHERE id = $1`,
		id, nullString(jti), nullString(refreshTokenHash))
	if err != nil {
		return storeerr.FromSQL("rotate refresh token", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storeerr.FromSQL("rotate refresh token", sql.ErrNoRows)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
