package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/auth"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	identityrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/repository"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/localstore"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/security"
	sessiondomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/session/domain"
)

// Sentinel errors for the auth service.
var (
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse   = errors.New("refresh token reuse detected; all sessions revoked")
)

// CredentialRepo is the minimal credential repository needed by the auth service.
type CredentialRepo interface {
	GetCredential(ctx context.Context, email string) (*identityrepo.Credential, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// SessionRepo is the minimal auth session repository needed by the auth service.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.AuthSession, error)
	Create(ctx context.Context, s *sessiondomain.AuthSession) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID int64, at time.Time) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	UpdateRefreshToken(ctx context.Context, id, jti, refreshTokenHash string) error
}

// AuthService is the self-hosted auth provider: password sign-in against users.password_hash,
// JWT access and refresh tokens, and rotation-checked sessions in auth_sessions.
// The signed-in token pair is kept in the local store between runs.
type AuthService struct {
	creds    CredentialRepo
	sessions SessionRepo
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	store    localstore.Store
	log      *zap.Logger
	now      func() time.Time

	mu  sync.Mutex // serializes refresh and sign-out on the stored session
	hub auth.Hub
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	creds CredentialRepo,
	sessions SessionRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	store localstore.Store,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		creds:    creds,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		store:    store,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnAuthStateChange registers fn for auth events.
func (s *AuthService) OnAuthStateChange(fn func(auth.Event)) func() {
	return s.hub.Subscribe(fn)
}

// SignInWithPassword verifies email and password, opens an auth session and persists its tokens.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, auth.ErrInvalidCredentials
	}
	cred, err := s.creds.GetCredential(ctx, email)
	if errors.Is(err, storeerr.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !cred.IsActive || cred.PasswordHash == "" {
		return nil, auth.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(cred.PasswordHash, []byte(password)); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	now := s.now()
	sessionID := uuid.New().String()
	refreshToken, jti, refreshExp, err := s.tokens.IssueRefresh(sessionID, cred.UserID)
	if err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(sessionID, cred.UserID, cred.TenantID, cred.Email)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, &sessiondomain.AuthSession{
		ID:               sessionID,
		UserID:           cred.UserID,
		TenantID:         cred.TenantID,
		ExpiresAt:        refreshExp,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		CreatedAt:        now,
	}); err != nil {
		return nil, err
	}
	if err := s.creds.TouchLastLogin(ctx, cred.UserID, now); err != nil {
		s.log.Warn("record last login failed", zap.Int64("user_id", cred.UserID), zap.Error(err))
	}

	sess := &auth.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
		UserID:       strconv.FormatInt(cred.UserID, 10),
		Email:        domain.NormalizeEmail(cred.Email),
	}
	if err := auth.SaveSession(ctx, s.store, sess); err != nil {
		return nil, err
	}
	s.hub.Publish(auth.Event{Kind: auth.SignedIn, Session: sess})
	return sess, nil
}

// GetSession returns the stored session if its server-side row is still active, rotating the
// token pair when the access token has expired. A revoked, expired or replayed session is
// cleared locally and reported as signed out.
func (s *AuthService) GetSession(ctx context.Context) (*auth.Session, error) {
	sess, ev, err := s.currentSession(ctx)
	if ev != nil {
		s.hub.Publish(*ev)
	}
	return sess, err
}

func (s *AuthService) currentSession(ctx context.Context) (*auth.Session, *auth.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := auth.LoadSession(ctx, s.store)
	if err != nil || sess == nil {
		return nil, nil, err
	}
	signedOut := &auth.Event{Kind: auth.SignedOut}

	if claims, err := s.tokens.ValidateAccess(sess.AccessToken); err == nil {
		row, err := s.sessions.GetByID(ctx, claims.SessionID)
		if errors.Is(err, storeerr.ErrNotFound) {
			return nil, signedOut, auth.ClearSession(ctx, s.store)
		}
		if err != nil {
			return nil, nil, err
		}
		if !row.Active(s.now()) {
			return nil, signedOut, auth.ClearSession(ctx, s.store)
		}
		if row.TenantID != claims.TenantID {
			s.log.Warn("access token company does not match its session", zap.String("session_id", row.ID),
				zap.Int64("token_company_id", claims.TenantID), zap.Int64("session_company_id", row.TenantID))
			return nil, signedOut, auth.ClearSession(ctx, s.store)
		}
		return sess, nil, nil
	}

	refreshed, err := s.refresh(ctx, sess)
	if errors.Is(err, ErrInvalidRefreshToken) || errors.Is(err, ErrRefreshTokenReuse) {
		s.log.Info("stored session ended", zap.String("email", sess.Email), zap.Error(err))
		return nil, signedOut, auth.ClearSession(ctx, s.store)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := auth.SaveSession(ctx, s.store, refreshed); err != nil {
		return nil, nil, err
	}
	return refreshed, &auth.Event{Kind: auth.TokenRefreshed, Session: refreshed}, nil
}

// refresh validates the refresh token against its session row, rotates it and issues a new access token.
// Presenting a refresh token that was already rotated revokes every session of the user.
func (s *AuthService) refresh(ctx context.Context, sess *auth.Session) (*auth.Session, error) {
	if sess.RefreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.ValidateRefresh(sess.RefreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	row, err := s.sessions.GetByID(ctx, claims.SessionID)
	if errors.Is(err, storeerr.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !row.Active(now) {
		return nil, ErrInvalidRefreshToken
	}
	if row.RefreshJti != claims.ID {
		if err := s.sessions.RevokeAllByUser(ctx, row.UserID, now); err != nil {
			s.log.Error("revoke sessions after refresh reuse failed", zap.Int64("user_id", row.UserID), zap.Error(err))
		}
		return nil, ErrRefreshTokenReuse
	}
	if row.RefreshTokenHash != "" && !security.RefreshTokenHashEqual(sess.RefreshToken, row.RefreshTokenHash) {
		return nil, ErrInvalidRefreshToken
	}

	_ = s.sessions.UpdateLastSeen(ctx, row.ID, now)
	newRefresh, newJti, _, err := s.tokens.IssueRefresh(row.ID, row.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateRefreshToken(ctx, row.ID, newJti, security.HashRefreshToken(newRefresh)); err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(row.ID, row.UserID, row.TenantID, sess.Email)
	if err != nil {
		return nil, err
	}
	return &auth.Session{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    accessExp,
		UserID:       sess.UserID,
		Email:        sess.Email,
	}, nil
}

// SignOut revokes the stored session's row and clears the local copy. The local copy is
// cleared and SignedOut published even when the revoke fails; that error is returned.
func (s *AuthService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	sess, err := auth.LoadSession(ctx, s.store)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var revokeErr error
	if sess != nil {
		if claims, err := s.tokens.ValidateRefresh(sess.RefreshToken); err == nil {
			revokeErr = s.sessions.Revoke(ctx, claims.SessionID, s.now())
			if revokeErr != nil {
				s.log.Warn("revoke auth session failed", zap.String("email", sess.Email), zap.Error(revokeErr))
			}
		}
	}
	clearErr := auth.ClearSession(ctx, s.store)
	s.mu.Unlock()

	if clearErr != nil {
		return clearErr
	}
	s.hub.Publish(auth.Event{Kind: auth.SignedOut})
	return revokeErr
}
