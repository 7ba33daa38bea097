package shm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/srediag/shmregion/pkg/shm"

const (
	resultCreated  = "created"
	resultAttached = "attached"
	resultAbsent   = "absent"
	resultFailed   = "failed"
)

type telemetry struct {
	tracer  trace.Tracer
	opens   metric.Int64Counter
	metrics *Metrics
}

func newTelemetry(config *Config) *telemetry {
	tracer := config.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}
	meter := config.Meter
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	opens, err := meter.Int64Counter("shmregion.open",
		metric.WithDescription("Open calls by result."),
		metric.WithUnit("{call}"))
	if err != nil {
		internalLogger.Warnf("shmregion.open counter: %v", err)
		opens = metricnoop.Int64Counter{}
	}
	return &telemetry{tracer: tracer, opens: opens, metrics: config.Metrics}
}

func (t *telemetry) startOpen(ctx context.Context, config *Config) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "shm.Open", trace.WithAttributes(
		attribute.String("shm.link", config.LinkPath()),
		attribute.String("shm.policy", config.Policy.String()),
		attribute.Int("shm.capacity", config.Capacity),
	))
}

func (t *telemetry) endOpen(ctx context.Context, span trace.Span, h *Handle, err error) {
	result := resultAbsent
	switch {
	case err != nil:
		result = resultFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case h.Present():
		result = resultAttached
		if h.region.origin == OriginCreated {
			result = resultCreated
		}
		span.SetAttributes(attribute.String("shm.id", h.region.ID()))
	}
	span.SetAttributes(attribute.String("shm.result", result))
	span.End()
	t.opens.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	t.metrics.opened(result)
}

func (t *telemetry) release(r *Region, err error) {
	_, span := t.tracer.Start(context.Background(), "shm.Release",
		trace.WithAttributes(attribute.String("shm.id", r.ID())))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	t.metrics.released()
}
