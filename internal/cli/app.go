// Package cli implements the salesctl commands on top of the session manager and the tenant data gateway.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/backend"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/config"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/gateway"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/logger"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/session"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/telemetry"
	otelsetup "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/telemetry/otel"
)

const serviceName = "salesctl"

var errNotSignedIn = errors.New("not signed in; run `salesctl login` first")

// App is the state shared by every command. Backend and Session are built on first use unless
// already set.
type App struct {
	Out     io.Writer
	Log     *zap.Logger
	Backend *backend.Backend
	Session *session.Manager
	Now     func() time.Time

	closers []func() error
}

// New returns an App that loads its configuration from the environment on first use.
func New(out io.Writer) *App {
	return &App{Out: out, Now: time.Now}
}

// setup loads config and opens telemetry, the local store, the backend and the session manager.
func (a *App) setup(ctx context.Context) error {
	if a.Session != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	a.closers = append(a.closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return providers.Shutdown(sctx)
	})

	lc := logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, ServiceName: serviceName}
	if providers.Exporting {
		lc.LoggerProvider = providers.LoggerProvider
	}
	a.Log = logger.New(lc)
	a.closers = append(a.closers, func() error { _ = a.Log.Sync(); return nil })

	store, closeStore, err := backend.OpenLocalStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("local store: %w", err)
	}
	a.closers = append(a.closers, closeStore)

	var opts []backend.Option
	if providers.Exporting {
		opts = append(opts, backend.WithAuditLogExport(providers.LoggerProvider))
	}
	b, err := backend.Open(ctx, cfg, store, a.Log, opts...)
	if err != nil {
		return err
	}
	a.Backend = b
	a.closers = append(a.closers, b.Close)

	a.Session = session.New(session.Deps{
		Provider: b.Provider,
		Members:  b.Members,
		Store:    store,
		Demo: session.DemoConfig{
			Enabled:  cfg.DemoEnabled,
			Accounts: cfg.DemoAccountList(),
			Password: cfg.DemoPassword,
		},
		Logger:     a.Log,
		Instrument: telemetry.NewInstrument("salesteam/session"),
	})
	a.closers = append(a.closers, func() error { a.Session.Close(); return nil })
	return nil
}

func (a *App) logger() *zap.Logger {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	return a.Log
}

// Close releases everything setup opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openGateway builds a gateway scoped to the signed-in member and loads the mirrors.
func (a *App) openGateway(ctx context.Context) (*gateway.Gateway, error) {
	st := a.Session.State()
	if !st.Authenticated {
		return nil, errNotSignedIn
	}
	deps := gateway.Deps{
		Members:    a.Backend.Members,
		Sales:      a.Backend.Sales,
		Posts:      a.Backend.Posts,
		Messages:   a.Backend.Messages,
		Policy:     a.Backend.Policy,
		Hasher:     a.Backend.Hasher,
		Logger:     a.logger(),
		Instrument: telemetry.NewInstrument("salesteam/gateway"),
	}
	if a.Backend.Audit != nil {
		deps.Audit = a.Backend.Audit
	}
	g, err := gateway.New(gateway.Scope{TenantID: st.Identity.TenantID, Actor: st.Identity}, deps)
	if err != nil {
		return nil, err
	}
	if err := g.LoadAll(ctx); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// withGateway resolves the session, opens a loaded gateway for it and runs fn.
func (a *App) withGateway(ctx context.Context, fn func(ctx context.Context, g *gateway.Gateway) error) error {
	if _, err := a.resolve(ctx); err != nil {
		return err
	}
	g, err := a.openGateway(ctx)
	if err != nil {
		return err
	}
	defer g.Close()
	return fn(ctx, g)
}

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02/01/2006")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
