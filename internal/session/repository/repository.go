package repository

import (
	"context"
	"time"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/session/domain"
)

// Repository defines persistence for auth sessions.
type Repository interface {
	// GetByID returns the session, or storeerr.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.AuthSession, error)
	Create(ctx context.Context, s *domain.AuthSession) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID int64, at time.Time) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	UpdateRefreshToken(ctx context.Context, id, jti, refreshTokenHash string) error
}
