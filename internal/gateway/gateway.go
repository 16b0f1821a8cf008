// Package gateway is the tenant data gateway: it reads and writes the four tenant collections
// (sales, posts, messages, members) through scoped repositories and keeps a local mirror of each.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit"
	blogdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/domain"
	blogrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/repository"
	chatdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/domain"
	chatrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/repository"
	identitydomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	identityrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/repository"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/rbac"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/policy/engine"
	saledomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
	salerepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/repository"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/security"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/telemetry"
)

var (
	// ErrScope is returned by New when the actor is not a member of the scoped tenant.
	ErrScope = errors.New("actor does not belong to tenant")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("gateway closed")
)

// Table names recorded in the audit trail.
const (
	tableSales    = "sales"
	tablePosts    = "blog_posts"
	tableMessages = "chat_messages"
	tableUsers    = "users"
)

// Scope is the tenant and acting member every request is issued for.
type Scope struct {
	TenantID int64
	Actor    *identitydomain.Identity
}

// Deps holds the collaborators of a Gateway. Audit, Hasher, Logger and Instrument are optional.
type Deps struct {
	Members  identityrepo.Repository
	Sales    salerepo.Repository
	Posts    blogrepo.Repository
	Messages chatrepo.Repository
	Policy   engine.Evaluator

	Audit audit.AuditLogger
	// Hasher hashes NewMember.Password before insert; without it passwords are not stored.
	Hasher     *security.Hasher
	Logger     *zap.Logger
	Instrument *telemetry.Instrument
}

// Gateway serves one tenant scope. It is safe for concurrent use.
type Gateway struct {
	scope    Scope
	members  identityrepo.Repository
	sales    salerepo.Repository
	posts    blogrepo.Repository
	messages chatrepo.Repository
	policy   engine.Evaluator
	audit    audit.AuditLogger
	hasher   *security.Hasher
	log      *zap.Logger
	inst     *telemetry.Instrument

	base   context.Context
	cancel context.CancelFunc

	saleMirror    mirror[saledomain.Sale]
	postMirror    mirror[blogdomain.Post]
	messageMirror mirror[chatdomain.Message]
	memberMirror  mirror[identitydomain.Member]

	loadMu  sync.Mutex
	stateMu sync.RWMutex
	loading bool
}

// New returns a Gateway for scope. The mirrors start empty; call LoadAll to fill them.
func New(scope Scope, deps Deps) (*Gateway, error) {
	if scope.Actor == nil || scope.TenantID == 0 || scope.Actor.TenantID != scope.TenantID {
		return nil, ErrScope
	}
	if deps.Members == nil || deps.Sales == nil || deps.Posts == nil || deps.Messages == nil {
		return nil, errors.New("gateway: all four repositories are required")
	}
	if deps.Policy == nil {
		return nil, errors.New("gateway: policy evaluator is required")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		scope:    scope,
		members:  deps.Members,
		sales:    deps.Sales,
		posts:    deps.Posts,
		messages: deps.Messages,
		policy:   deps.Policy,
		audit:    deps.Audit,
		hasher:   deps.Hasher,
		log: log.Named("gateway").With(
			zap.Int64("tenant_id", scope.TenantID), zap.Int64("user_id", scope.Actor.ID)),
		inst:   deps.Instrument,
		base:   base,
		cancel: cancel,
	}
	g.saleMirror.replace(nil)
	g.postMirror.replace(nil)
	g.messageMirror.replace(nil)
	g.memberMirror.replace(nil)
	return g, nil
}

// Scope returns the tenant scope the gateway serves.
func (g *Gateway) Scope() Scope { return g.scope }

// Close cancels every outstanding request issued by the gateway. Later calls fail with ErrClosed.
func (g *Gateway) Close() {
	g.cancel()
}

// bind derives a request context that is also cancelled by Close.
func (g *Gateway) bind(ctx context.Context) (context.Context, func(), error) {
	if g.base.Err() != nil {
		return nil, nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(g.base, cancel)
	return ctx, func() { stop(); cancel() }, nil
}

func (g *Gateway) start(ctx context.Context, op string) (context.Context, func(*error)) {
	return g.inst.Start(ctx, "gateway."+op,
		attribute.Int64("tenant_id", g.scope.TenantID), attribute.Int64("user_id", g.scope.Actor.ID))
}

// Sales returns a copy of the sales mirror, newest sale first.
func (g *Gateway) Sales() []saledomain.Sale { return g.saleMirror.snapshot() }

// Posts returns a copy of the posts mirror, newest first.
func (g *Gateway) Posts() []blogdomain.Post { return g.postMirror.snapshot() }

// Messages returns a copy of the messages mirror in chronological order.
func (g *Gateway) Messages() []chatdomain.Message { return g.messageMirror.snapshot() }

// Members returns a copy of the roster mirror.
func (g *Gateway) Members() []identitydomain.Member { return g.memberMirror.snapshot() }

// Loading reports whether a LoadAll is in flight.
func (g *Gateway) Loading() bool {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.loading
}

func (g *Gateway) setLoading(v bool) {
	g.stateMu.Lock()
	g.loading = v
	g.stateMu.Unlock()
}

// LoadAll reads the four collections concurrently and replaces the mirrors. A failed read is
// logged and leaves that collection empty. It returns once all four reads have settled.
func (g *Gateway) LoadAll(ctx context.Context) (err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	ctx, end := g.start(ctx, "load_all")
	defer end(&err)

	g.loadMu.Lock()
	defer g.loadMu.Unlock()
	g.setLoading(true)
	defer g.setLoading(false)

	tenant := g.scope.TenantID
	owner := rbac.SalesOwnerFilter(ctx, g.policy, g.scope.Actor)

	var (
		sales    []saledomain.Sale
		posts    []blogdomain.Post
		messages []chatdomain.Message
		members  []identitydomain.Member
	)
	var eg errgroup.Group
	eg.Go(func() error {
		sales = readOrEmpty(g.log, "sales", func() ([]saledomain.Sale, error) {
			return g.sales.List(ctx, tenant, owner)
		})
		return nil
	})
	eg.Go(func() error {
		posts = readOrEmpty(g.log, "posts", func() ([]blogdomain.Post, error) {
			return g.posts.List(ctx, tenant)
		})
		return nil
	})
	eg.Go(func() error {
		messages = readOrEmpty(g.log, "messages", func() ([]chatdomain.Message, error) {
			return g.messages.List(ctx, tenant)
		})
		return nil
	})
	eg.Go(func() error {
		members = readOrEmpty(g.log, "members", func() ([]identitydomain.Member, error) {
			return g.members.ListByTenant(ctx, tenant)
		})
		return nil
	})
	_ = eg.Wait()

	g.saleMirror.replace(sales)
	g.postMirror.replace(posts)
	g.messageMirror.replace(messages)
	g.memberMirror.replace(members)
	g.log.Debug("mirrors loaded",
		zap.Int("sales", len(sales)), zap.Int("posts", len(posts)),
		zap.Int("messages", len(messages)), zap.Int("members", len(members)))
	return ctx.Err()
}

// Refresh reloads every mirror.
func (g *Gateway) Refresh(ctx context.Context) error {
	return g.LoadAll(ctx)
}

func readOrEmpty[T any](log *zap.Logger, collection string, read func() ([]T, error)) []T {
	items, err := read()
	if err != nil {
		log.Warn("load collection failed", zap.String("collection", collection), zap.Error(err))
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

func (g *Gateway) record(ctx context.Context, action, table string, id int64, values any) {
	if g.audit == nil {
		return
	}
	g.audit.LogEvent(ctx, audit.Event{
		TenantID:  g.scope.TenantID,
		UserID:    g.scope.Actor.ID,
		Action:    action,
		Table:     table,
		RecordID:  id,
		NewValues: values,
	})
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
