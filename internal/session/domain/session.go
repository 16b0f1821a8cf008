package domain

import "time"

// AuthSession is a server-side sign-in issued by the self-hosted auth provider.
// Its refresh token is bound to the row by jti and hash so a replayed token is detected.
type AuthSession struct {
	ID               string
	UserID           int64
	TenantID         int64
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	LastSeenAt       *time.Time
	RefreshJti       string
	RefreshTokenHash string
	CreatedAt        time.Time
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *AuthSession) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
