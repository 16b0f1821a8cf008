// Package auth defines the contract between the session manager and an external auth service.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned by SignInWithPassword when the email/password pair is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSession is returned when an operation needs a signed-in session and there is none.
	ErrNoSession = errors.New("no auth session")
)

// Session is an authenticated session issued by the auth service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
}

// Expired reports whether the access token is past its expiry, with leeway subtracted.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	return s == nil || !now.Add(leeway).Before(s.ExpiresAt)
}

// EventKind names an auth state change.
type EventKind string

const (
	SignedIn       EventKind = "signed_in"
	SignedOut      EventKind = "signed_out"
	TokenRefreshed EventKind = "token_refreshed"
)

// Event is delivered to OnAuthStateChange listeners. Session is nil for SignedOut.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Provider is an auth service the session manager can sign in against.
type Provider interface {
	// GetSession returns the current session, or (nil, nil) when signed out.
	GetSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers fn for auth events and returns a func that unregisters it.
	OnAuthStateChange(fn func(Event)) (unsubscribe func())
	// SignInWithPassword verifies the credentials and stores the new session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignOut ends the current session. The local session is dropped even when the remote call fails.
	SignOut(ctx context.Context) error
}
