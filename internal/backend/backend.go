// Package backend opens the configured store driver and returns everything the session manager
// and the gateway need: the four tenant repositories, the auth provider, and the audit sinks.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/producer"
	auditrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/repository"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/auth"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/auth/gotrue"
	blogrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/repository"
	chatrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/repository"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/config"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/db"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/health"
	identityrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/repository"
	identityservice "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/service"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/localstore"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/postgrest"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/policy/engine"
	salerepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/repository"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/security"
	sessionrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/session/repository"
)

// Backend bundles the opened store. Close releases it.
type Backend struct {
	Driver   string
	Members  identityrepo.Repository
	Sales    salerepo.Repository
	Posts    blogrepo.Repository
	Messages chatrepo.Repository
	AuditLog auditrepo.Repository
	Provider auth.Provider
	Audit    *audit.Logger
	Policy   *engine.OPAEvaluator
	// Hasher is set only when the store manages credentials (postgres).
	Hasher *security.Hasher
	// Pinger is nil for the rest driver.
	Pinger health.Pinger

	closers []func() error
}

// Option configures Open.
type Option func(*options)

type options struct {
	logProvider *sdklog.LoggerProvider
}

// WithAuditLogExport also publishes every audit entry as an OpenTelemetry log record through lp.
func WithAuditLogExport(lp *sdklog.LoggerProvider) Option {
	return func(o *options) { o.logProvider = lp }
}

// Open validates cfg for its driver and opens the store. store keeps the provider's token pair.
func Open(ctx context.Context, cfg *config.Config, store localstore.Store, log *zap.Logger, opts ...Option) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop()
	}
	policy, err := engine.NewOPAEvaluator(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	var b *Backend
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		b, err = openPostgres(ctx, cfg, store, log)
	case config.StoreDriverREST:
		b, err = openREST(cfg, store, log)
	default:
		return nil, fmt.Errorf("backend: unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	b.Driver = cfg.StoreDriver
	b.Policy = policy

	// Nil producers must not reach the logger as non-nil Producers.
	var sinks []audit.Producer
	if p := producer.NewKafkaProducer(cfg.KafkaBrokerList(), cfg.AuditKafkaTopic); p != nil {
		sinks = append(sinks, p)
		log.Info("audit kafka producer enabled", zap.Strings("brokers", cfg.KafkaBrokerList()),
			zap.String("topic", cfg.AuditKafkaTopic))
	}
	if p := producer.NewOTelProducer(o.logProvider); p != nil {
		sinks = append(sinks, p)
		log.Info("audit otel log export enabled")
	}
	b.Audit = audit.NewLogger(b.AuditLog, audit.JoinProducers(sinks...), log)
	b.closers = append([]func() error{b.Audit.Close}, b.closers...)
	return b, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, store localstore.Store, log *zap.Logger) (*Backend, error) {
	// Access tokens carry the member's company_id. AuthService signs out a stored session whose
	// token company_id differs from its auth_sessions row.
	tokens, err := security.LoadTokenProvider(cfg.JWTPrivateKey, cfg.JWTPublicKey,
		cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		return nil, fmt.Errorf("jwt keys: %w", err)
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.HTTPTimeout())
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	members := identityrepo.NewPostgresRepository(conn)
	hasher := security.NewHasher(cfg.BcryptCost)
	provider := identityservice.NewAuthService(
		members,
		sessionrepo.NewPostgresRepository(conn),
		hasher,
		tokens,
		store,
		log.Named("auth"),
	)
	return &Backend{
		Members:  members,
		Sales:    salerepo.NewPostgresRepository(conn),
		Posts:    blogrepo.NewPostgresRepository(conn),
		Messages: chatrepo.NewPostgresRepository(conn),
		AuditLog: auditrepo.NewPostgresRepository(conn),
		Provider: provider,
		Hasher:   hasher,
		Pinger:   conn,
		closers:  []func() error{conn.Close},
	}, nil
}

func openREST(cfg *config.Config, store localstore.Store, log *zap.Logger) (*Backend, error) {
	provider := gotrue.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, store, cfg.HTTPTimeout(),
		gotrue.WithLogger(log.Named("auth")))
	client := postgrest.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.HTTPTimeout(),
		postgrest.WithTokenSource(provider))
	return &Backend{
		Members:  identityrepo.NewRESTRepository(client),
		Sales:    salerepo.NewRESTRepository(client),
		Posts:    blogrepo.NewRESTRepository(client),
		Messages: chatrepo.NewRESTRepository(client),
		AuditLog: auditrepo.NewRESTRepository(client),
		Provider: provider,
	}, nil
}

// Close flushes the audit sinks and closes the store. Safe to call on a nil Backend.
func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// OpenLocalStore returns the configured local store and a func that releases it.
func OpenLocalStore(ctx context.Context, cfg *config.Config) (localstore.Store, func() error, error) {
	switch strings.ToLower(cfg.LocalStore) {
	case config.LocalStoreRedis:
		s, err := localstore.NewRedisStore(ctx, localstore.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := localstore.NewFileStore(cfg.LocalStoreDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}
