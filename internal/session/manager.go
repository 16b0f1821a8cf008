// Package session resolves who is signed in and in which tenant, either through the auth
// provider or through a locally persisted demo login, and tells subscribers when that changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/auth"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/localstore"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/telemetry"
)

// ErrMalformedSession is logged when the persisted demo record cannot be restored or does not
// belong to an enabled demo account; the record is deleted.
var ErrMalformedSession = errors.New("malformed demo session record")

// MemberLookup finds a member and its tenant by email.
type MemberLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
}

// DemoConfig controls the demo login path.
type DemoConfig struct {
	Enabled  bool
	Accounts []string // lower-cased emails
	Password string
}

// Deps are the Manager's collaborators. Provider may be nil when only demo logins are possible.
type Deps struct {
	Provider   auth.Provider
	Members    MemberLookup
	Store      localstore.Store
	Demo       DemoConfig
	Logger     *zap.Logger
	Instrument *telemetry.Instrument
}

// State is a snapshot of the current identity.
type State struct {
	Identity      *domain.Identity
	Tenant        *domain.Tenant
	Authenticated bool
	Loading       bool
}

// Manager owns the current identity. It is safe for concurrent use; listeners are called
// outside the lock.
type Manager struct {
	provider auth.Provider
	members  MemberLookup
	store    localstore.Store
	demo     DemoConfig
	log      *zap.Logger
	inst     *telemetry.Instrument

	mu        sync.Mutex
	identity  *domain.Identity
	loading   bool
	listeners map[int]func(State)
	nextID    int

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// New returns a Manager. Call Start to resolve the initial identity.
func New(d Deps) *Manager {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		provider:  d.Provider,
		members:   d.Members,
		store:     d.Store,
		demo:      d.Demo,
		log:       log.Named("session"),
		inst:      d.Instrument,
		listeners: map[int]func(State){},
	}
}

// Start subscribes to provider events and resolves the initial identity. Events received after
// Start trigger a fresh resolution under ctx until Close is called.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel == nil {
		m.ctx, m.cancel = context.WithCancel(ctx)
		if m.provider != nil {
			m.unsubscribe = m.provider.OnAuthStateChange(m.onAuthEvent)
		}
	}
	ctx = m.ctx
	m.mu.Unlock()

	m.Resolve(ctx)
}

// Close stops reacting to provider events.
func (m *Manager) Close() {
	m.mu.Lock()
	unsub, cancel := m.unsubscribe, m.cancel
	m.unsubscribe, m.cancel = nil, nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) onAuthEvent(e auth.Event) {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if e.Kind == auth.SignedOut && m.hasDemoRecord(ctx) {
		m.log.Debug("ignoring signed_out while a demo session exists")
		return
	}
	m.log.Debug("auth state changed", zap.String("event", string(e.Kind)))
	m.Resolve(ctx)
}

// Resolve determines the current identity: a persisted demo record wins without contacting the
// store; otherwise the provider's session is mapped to a member by email. Failures are logged
// and leave the manager ready.
func (m *Manager) Resolve(ctx context.Context) {
	var err error
	ctx, end := m.inst.Start(ctx, "session.resolve")
	defer end(&err)

	m.setLoading(true)
	defer m.setLoading(false)

	id, err := m.loadDemo(ctx)
	switch {
	case err == nil && id != nil:
		m.setIdentity(id)
		return
	case errors.Is(err, ErrMalformedSession):
		m.log.Warn("dropping demo session record", zap.Error(err))
		if delErr := m.store.Delete(ctx, localstore.KeyDemoSession); delErr != nil {
			m.log.Warn("delete demo session record failed", zap.Error(delErr))
		}
		err = nil
	case err != nil:
		m.log.Warn("read demo session record failed", zap.Error(err))
		err = nil
	}

	if m.provider == nil {
		m.setIdentity(nil)
		return
	}
	sess, err := m.provider.GetSession(ctx)
	if err != nil {
		m.log.Error("get auth session failed", zap.Error(err))
		return
	}
	if sess == nil {
		m.setIdentity(nil)
		return
	}
	id, err = m.members.GetByEmail(ctx, domain.NormalizeEmail(sess.Email))
	if err != nil {
		m.log.Error("member lookup for auth session failed", zap.String("email", sess.Email), zap.Error(err))
		m.setIdentity(nil)
		return
	}
	m.setIdentity(id)
}

// Login signs in. Allow-listed demo accounts with the demo password are looked up directly and
// persisted locally; everyone else goes through the provider. It reports success and never
// returns an error: failures are logged.
func (m *Manager) Login(ctx context.Context, email, password string) bool {
	email = domain.NormalizeEmail(email)
	var err error
	ctx, end := m.inst.Start(ctx, "session.login", attribute.Bool("demo", m.isDemo(email, password)))
	defer end(&err)

	if m.isDemo(email, password) {
		err = m.demoLogin(ctx, email)
		if err != nil {
			m.log.Warn("demo login failed", zap.String("email", email), zap.Error(err))
			return false
		}
		return true
	}

	if m.provider == nil {
		err = auth.ErrInvalidCredentials
		return false
	}
	sess, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.log.Info("sign in failed", zap.String("email", email), zap.Error(err))
		return false
	}
	id, err := m.members.GetByEmail(ctx, domain.NormalizeEmail(sess.Email))
	if err != nil {
		m.log.Error("member lookup after sign in failed", zap.String("email", sess.Email), zap.Error(err))
		return false
	}
	m.setIdentity(id)
	m.log.Info("signed in", zap.Int64("user_id", id.ID), zap.Int64("tenant_id", id.TenantID))
	return true
}

func (m *Manager) isDemo(email, password string) bool {
	return m.demo.Enabled && password == m.demo.Password && slices.Contains(m.demo.Accounts, email)
}

func (m *Manager) demoLogin(ctx context.Context, email string) error {
	id, err := m.members.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, localstore.KeyDemoSession, raw); err != nil {
		return fmt.Errorf("persist demo session: %w", err)
	}
	m.setIdentity(id)
	m.log.Info("demo login", zap.Int64("user_id", id.ID), zap.Int64("tenant_id", id.TenantID))
	return nil
}

// Logout drops the demo record, signs out of the provider and clears the identity. The identity
// is cleared even when either step fails.
func (m *Manager) Logout(ctx context.Context) {
	var err error
	ctx, end := m.inst.Start(ctx, "session.logout")
	defer end(&err)

	if delErr := m.deleteDemoRecord(ctx); delErr != nil {
		m.log.Error("delete demo session record failed; it will be restored on the next resolve",
			zap.Error(delErr))
		err = delErr
	}
	if m.provider != nil {
		if signOutErr := m.provider.SignOut(ctx); signOutErr != nil {
			m.log.Warn("sign out failed", zap.Error(signOutErr))
			err = signOutErr
		}
	}
	m.setIdentity(nil)
}

// deleteDemoRecord removes the persisted demo record, trying twice.
func (m *Manager) deleteDemoRecord(ctx context.Context) error {
	err := m.store.Delete(ctx, localstore.KeyDemoSession)
	if err == nil {
		return nil
	}
	m.log.Warn("delete demo session record failed, retrying", zap.Error(err))
	return m.store.Delete(ctx, localstore.KeyDemoSession)
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Subscribe registers fn to be called with the new state whenever the identity or the loading
// flag changes. It returns a func that unregisters fn.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) stateLocked() State {
	st := State{Identity: m.identity, Authenticated: m.identity != nil, Loading: m.loading}
	if m.identity != nil {
		st.Tenant = m.identity.Tenant
	}
	return st
}

func (m *Manager) setIdentity(id *domain.Identity) {
	m.mu.Lock()
	m.identity = id
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.mu.Lock()
	st := m.stateLocked()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// loadDemo returns the persisted demo identity, (nil, nil) when there is none, or an error
// wrapping ErrMalformedSession when the record cannot be used.
func (m *Manager) loadDemo(ctx context.Context) (*domain.Identity, error) {
	raw, err := m.store.Get(ctx, localstore.KeyDemoSession)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if id.ID == 0 || id.TenantID == 0 || id.Email == "" {
		return nil, fmt.Errorf("%w: missing id, tenant or email", ErrMalformedSession)
	}
	if !m.demo.Enabled {
		return nil, fmt.Errorf("%w: demo logins are disabled", ErrMalformedSession)
	}
	if !slices.Contains(m.demo.Accounts, domain.NormalizeEmail(id.Email)) {
		return nil, fmt.Errorf("%w: %s is not a demo account", ErrMalformedSession, id.Email)
	}
	return &id, nil
}

func (m *Manager) hasDemoRecord(ctx context.Context) bool {
	id, err := m.loadDemo(ctx)
	return err == nil && id != nil
}
