package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
)

type mockAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]domain.AuditLog, error) {
	return nil, nil
}

type mockProducer struct {
	mu      sync.Mutex
	emitted []*domain.AuditLog
	err     error
	closed  bool
}

func (p *mockProducer) Emit(ctx context.Context, a *domain.AuditLog) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.emitted = append(p.emitted, a)
	return nil
}

func (p *mockProducer) Close() error {
	p.closed = true
	return nil
}

func TestLogger_LogEvent(t *testing.T) {
	repo := &mockAuditRepo{}
	prod := &mockProducer{}
	l := NewLogger(repo, prod, nil)
	l.now = func() time.Time { return time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC) }

	l.LogEvent(context.Background(), Event{
		TenantID: 1, UserID: 2, Action: domain.ActionCreate, Table: "sales", RecordID: 10,
		NewValues: map[string]any{"product_name": "Plano Pro"},
	})
	require.NoError(t, l.Close())

	require.Len(t, repo.entries, 1)
	e := repo.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, int64(1), e.TenantID)
	assert.Equal(t, "sales", e.Table)
	assert.JSONEq(t, `{"product_name":"Plano Pro"}`, string(e.NewValues))
	assert.Equal(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), e.CreatedAt)

	require.Len(t, prod.emitted, 1)
	assert.Equal(t, e.ID, prod.emitted[0].ID)
	assert.True(t, prod.closed)
}

func TestLogger_FailuresAreLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	prod := &mockProducer{err: errors.New("broker down")}
	l := NewLogger(repo, prod, zap.New(core))

	l.LogEvent(context.Background(), Event{TenantID: 1, Action: domain.ActionDelete, Table: "blog_posts", RecordID: 3})
	require.NoError(t, l.Close())

	assert.Equal(t, 1, logs.FilterMessage("write audit log failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("publish audit log failed").Len())
}

func TestLogger_UnmarshalableValuesStillRecorded(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewLogger(repo, nil, nil)
	l.LogEvent(context.Background(), Event{TenantID: 1, Action: domain.ActionUpdate, Table: "users", NewValues: make(chan int)})
	require.Len(t, repo.entries, 1)
	assert.Nil(t, repo.entries[0].NewValues)
}

func TestLogger_CanceledContextStillPublishes(t *testing.T) {
	prod := &mockProducer{}
	l := NewLogger(nil, prod, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.LogEvent(ctx, Event{TenantID: 1, Action: domain.ActionMarkRead, Table: "chat_messages", RecordID: 5})
	require.NoError(t, l.Close())
	assert.Len(t, prod.emitted, 1)
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.LogEvent(context.Background(), Event{})
	assert.NoError(t, l.Close())
}

func TestJoinProducers(t *testing.T) {
	assert.Nil(t, JoinProducers())
	assert.Nil(t, JoinProducers(nil, nil))

	only := &mockProducer{}
	assert.Same(t, only, JoinProducers(nil, only))

	failing := &mockProducer{err: errors.New("broker down")}
	ok := &mockProducer{}
	joined := JoinProducers(failing, ok)
	entry := &domain.AuditLog{ID: "a-1", TenantID: 1}

	err := joined.Emit(context.Background(), entry)
	assert.ErrorContains(t, err, "broker down")
	require.Len(t, ok.emitted, 1, "a failing producer must not stop the others")
	assert.Same(t, entry, ok.emitted[0])

	require.NoError(t, joined.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}
