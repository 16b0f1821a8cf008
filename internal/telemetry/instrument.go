// Package telemetry wraps core operations in OpenTelemetry spans and outcome counters.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument records one span, one counter increment and one duration sample per operation.
// It resolves providers through the otel globals, so it is a no-op until SetGlobal is called.
type Instrument struct {
	tracer   trace.Tracer
	ops      metric.Int64Counter
	duration metric.Float64Histogram
}

// NewInstrument returns an Instrument for the given instrumentation scope (e.g. "salesteam/gateway").
func NewInstrument(scope string) *Instrument {
	meter := otel.Meter(scope)
	ops, _ := meter.Int64Counter("salesteam.operations",
		metric.WithDescription("Core operations by name and outcome"))
	duration, _ := meter.Float64Histogram("salesteam.operation.duration",
		metric.WithDescription("Core operation latency"), metric.WithUnit("ms"))
	return &Instrument{tracer: otel.Tracer(scope), ops: ops, duration: duration}
}

// Start opens a span named op. Call the returned func with a pointer to the operation's error
// (usually a named return) to close the span and record the outcome.
func (i *Instrument) Start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	if i == nil {
		return ctx, func(*error) {}
	}
	start := time.Now()
	ctx, span := i.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		outcome := "ok"
		if errp != nil && *errp != nil {
			outcome = "error"
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
		set := metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", outcome))
		if i.ops != nil {
			i.ops.Add(ctx, 1, set)
		}
		if i.duration != nil {
			i.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, set)
		}
	}
}
