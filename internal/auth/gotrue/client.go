// Package gotrue is an auth.Provider backed by a hosted GoTrue-compatible auth API
// (the /auth/v1 endpoints of a Supabase project).
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/auth"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/localstore"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/security"
)

// refreshLeeway refreshes the access token slightly before it expires.
const refreshLeeway = 30 * time.Second

// Client signs in against the auth API and keeps the token pair in a local store.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	store      localstore.Store
	log        *zap.Logger
	now        func() time.Time

	mu  sync.Mutex // serializes refreshes
	hub auth.Hub
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a Client for the project at baseURL.
func New(baseURL, apiKey string, store localstore.Store, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetSession returns the stored session, refreshing it first when the access token has expired.
// A refresh token the server rejects ends the session: it is cleared and (nil, nil) is returned.
func (c *Client) GetSession(ctx context.Context) (*auth.Session, error) {
	s, ev, err := c.currentSession(ctx)
	if ev != nil {
		c.hub.Publish(*ev)
	}
	return s, err
}

// currentSession does the work of GetSession under the lock and returns the event to publish
// once the lock is released, so listeners may call back into the client.
func (c *Client) currentSession(ctx context.Context) (*auth.Session, *auth.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := auth.LoadSession(ctx, c.store)
	if err != nil || s == nil {
		return nil, nil, err
	}
	if !s.Expired(c.now(), refreshLeeway) {
		return s, nil, nil
	}
	signedOut := &auth.Event{Kind: auth.SignedOut}
	if s.RefreshToken == "" {
		return nil, signedOut, auth.ClearSession(ctx, c.store)
	}

	refreshed, err := c.grant(ctx, "refresh_token", map[string]string{"refresh_token": s.RefreshToken})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			c.log.Info("refresh token rejected; signing out", zap.String("email", s.Email), zap.Error(err))
			return nil, signedOut, auth.ClearSession(ctx, c.store)
		}
		return nil, nil, err
	}
	if err := auth.SaveSession(ctx, c.store, refreshed); err != nil {
		return nil, nil, err
	}
	return refreshed, &auth.Event{Kind: auth.TokenRefreshed, Session: refreshed}, nil
}

// AccessToken returns the current access token, or "" when signed out. It lets the PostgREST
// client send requests as the signed-in user.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	s, err := c.GetSession(ctx)
	if err != nil || s == nil {
		return "", err
	}
	return s.AccessToken, nil
}

// OnAuthStateChange registers fn for auth events.
func (c *Client) OnAuthStateChange(fn func(auth.Event)) func() {
	return c.hub.Subscribe(fn)
}

// SignInWithPassword exchanges email and password for a session and persists it.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	s, err := c.grant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil, fmt.Errorf("%w: %s", auth.ErrInvalidCredentials, apiErr.Message)
		}
		return nil, err
	}
	if err := auth.SaveSession(ctx, c.store, s); err != nil {
		return nil, err
	}
	c.hub.Publish(auth.Event{Kind: auth.SignedIn, Session: s})
	return s, nil
}

// SignOut revokes the session server-side and clears it locally. The local session is
// cleared and SignedOut published even when the server call fails; that error is returned.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s, err := auth.LoadSession(ctx, c.store)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	var remoteErr error
	if s != nil {
		remoteErr = c.post(ctx, "/auth/v1/logout", s.AccessToken, nil, nil)
		if remoteErr != nil {
			c.log.Warn("remote sign-out failed", zap.String("email", s.Email), zap.Error(remoteErr))
		}
	}
	clearErr := auth.ClearSession(ctx, c.store)
	c.mu.Unlock()

	if clearErr != nil {
		return clearErr
	}
	c.hub.Publish(auth.Event{Kind: auth.SignedOut})
	return remoteErr
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (c *Client) grant(ctx context.Context, grantType string, body map[string]string) (*auth.Session, error) {
	var tr tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type="+grantType, "", body, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("gotrue: %s grant returned no access token", grantType)
	}
	return &auth.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    c.expiry(tr),
		UserID:       tr.User.ID,
		Email:        strings.ToLower(tr.User.Email),
	}, nil
}

// expiry prefers the server's expires_at, then the token's own exp claim, then expires_in.
func (c *Client) expiry(tr tokenResponse) time.Time {
	if tr.ExpiresAt > 0 {
		return time.Unix(tr.ExpiresAt, 0).UTC()
	}
	if exp, err := security.UnverifiedExpiry(tr.AccessToken); err == nil {
		return exp.UTC()
	}
	return c.now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
}

func (c *Client) post(ctx context.Context, path, bearer string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gotrue: build request: %w", err)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("gotrue %s: %w", path, ctxErr)
		}
		return fmt.Errorf("gotrue %s: %w: %w", path, storeerr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gotrue: decode %s response: %w", path, err)
	}
	return nil
}

// Error is a failed auth API response. Older servers use error/error_description, newer ones
// error_code/msg.
type Error struct {
	Status      int    `json:"-"`
	Code        string `json:"error_code"`
	Msg         string `json:"msg"`
	ErrorName   string `json:"error"`
	Description string `json:"error_description"`
	Message     string `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("gotrue: %s (status %d)", e.Message, e.Status)
}

// Unwrap reports server-side failures as unavailable.
func (e *Error) Unwrap() error {
	if e.Status >= 500 {
		return storeerr.ErrUnavailable
	}
	return nil
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(b, e)
	switch {
	case e.Msg != "":
		e.Message = e.Msg
	case e.Description != "":
		e.Message = e.Description
	case e.ErrorName != "":
		e.Message = e.ErrorName
	default:
		e.Message = strings.TrimSpace(string(b))
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
