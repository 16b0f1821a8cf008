package producer

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
)

// LoggerName is the instrumentation scope audit records are emitted under.
const LoggerName = "salesteam.audit"

// OTelProducer emits audit logs as OpenTelemetry log records through a LoggerProvider, so they
// reach the OTLP collector alongside the application logs.
type OTelProducer struct {
	logger otellog.Logger
}

// NewOTelProducer returns a producer writing to provider. It returns nil when provider is nil,
// and a nil producer is a valid no-op.
func NewOTelProducer(provider *sdklog.LoggerProvider) *OTelProducer {
	if provider == nil {
		return nil
	}
	return &OTelProducer{logger: provider.Logger(LoggerName)}
}

// Emit converts the entry to a log record. The body carries the changed values when present.
func (p *OTelProducer) Emit(ctx context.Context, a *domain.AuditLog) error {
	if p == nil || a == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetTimestamp(a.CreatedAt)
	rec.SetObservedTimestamp(a.CreatedAt)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetSeverityText("INFO")
	if len(a.NewValues) > 0 {
		rec.SetBody(otellog.StringValue(string(a.NewValues)))
	} else {
		rec.SetBody(otellog.StringValue(a.Action + " " + a.Table))
	}
	rec.AddAttributes(
		otellog.String("audit_id", a.ID),
		otellog.Int64("company_id", a.TenantID),
		otellog.String("action", a.Action),
		otellog.String("table_name", a.Table),
	)
	if a.UserID != 0 {
		rec.AddAttributes(otellog.Int64("user_id", a.UserID))
	}
	if a.RecordID != 0 {
		rec.AddAttributes(otellog.Int64("record_id", a.RecordID))
	}
	p.logger.Emit(ctx, rec)
	return nil
}

// Close is a no-op; the LoggerProvider is flushed and shut down by its owner.
func (p *OTelProducer) Close() error { return nil }
