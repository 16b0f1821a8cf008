// Package audit records tenant data mutations. Recording is best-effort: failures are logged
// and never reach the caller.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
	auditrepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/repository"
)

// emitTimeout is the max time allowed for a single async publish. Close waits at most this long.
const emitTimeout = 5 * time.Second

// Event describes one mutation. NewValues is marshaled to JSON when non-nil.
type Event struct {
	TenantID  int64
	UserID    int64
	Action    string
	Table     string
	RecordID  int64
	NewValues any
}

// AuditLogger writes a single audit event. Used by the gateway after each confirmed mutation.
type AuditLogger interface {
	LogEvent(ctx context.Context, e Event)
}

// Producer publishes audit logs to a message broker.
type Producer interface {
	Emit(ctx context.Context, a *domain.AuditLog) error
	Close() error
}

// JoinProducers returns a Producer that publishes to each of ps in turn. Nil entries are
// skipped; it returns nil when none remain.
func JoinProducers(ps ...Producer) Producer {
	var live multiProducer
	for _, p := range ps {
		if p != nil {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return live
}

type multiProducer []Producer

func (m multiProducer) Emit(ctx context.Context, a *domain.AuditLog) error {
	var errs []error
	for _, p := range m {
		if err := p.Emit(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiProducer) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logger implements AuditLogger: it writes to the repository synchronously and publishes to the
// producer in the background.
type Logger struct {
	repo     auditrepo.Repository
	producer Producer
	log      *zap.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewLogger returns a Logger. repo and producer may each be nil to skip that sink.
func NewLogger(repo auditrepo.Repository, producer Producer, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, producer: producer, log: log.Named("audit"), now: time.Now}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, e Event) {
	if l == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		TenantID:  e.TenantID,
		UserID:    e.UserID,
		Action:    e.Action,
		Table:     e.Table,
		RecordID:  e.RecordID,
		CreatedAt: l.now().UTC(),
	}
	if e.NewValues != nil {
		raw, err := json.Marshal(e.NewValues)
		if err != nil {
			l.log.Warn("marshal audit values failed", zap.String("table", e.Table), zap.Error(err))
		} else {
			entry.NewValues = raw
		}
	}
	fields := []zap.Field{
		zap.String("action", e.Action), zap.String("table", e.Table),
		zap.Int64("tenant_id", e.TenantID), zap.Int64("record_id", e.RecordID),
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil {
			l.log.Warn("write audit log failed", append(fields, zap.Error(err))...)
		}
	}
	if l.producer != nil {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			// Publishing outlives the caller's cancellation.
			emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
			defer cancel()
			if err := l.producer.Emit(emitCtx, entry); err != nil {
				l.log.Warn("publish audit log failed", append(fields, zap.Error(err))...)
			}
		}()
	}
	l.log.Debug("audit", fields...)
}

// Close waits for in-flight publishes and closes the producer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.wg.Wait()
	if l.producer != nil {
		return l.producer.Close()
	}
	return nil
}
