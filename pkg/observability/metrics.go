package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Metric names exported by the signing service.
const (
	MetricOperations    = "riskmate.signing.operations"
	MetricFailures      = "riskmate.signing.failures"
	MetricDuration      = "riskmate.signing.duration"
	MetricInflight      = "riskmate.signing.inflight"
	MetricVerifications = "riskmate.signing.verifications"
	MetricSignatures    = "riskmate.signing.signatures"
)

type instruments struct {
	operations    metric.Int64Counter
	failures      metric.Int64Counter
	duration      metric.Float64Histogram
	inflight      metric.Int64UpDownCounter
	verifications metric.Int64Counter
	signatures    metric.Int64Counter
}

func newInstruments(m metric.Meter) (*instruments, error) {
	var (
		in  instruments
		err error
	)
	if in.operations, err = m.Int64Counter(MetricOperations, metric.WithDescription("Signing operations started")); err != nil {
		return nil, err
	}
	if in.failures, err = m.Int64Counter(MetricFailures, metric.WithDescription("Signing operations that returned an error")); err != nil {
		return nil, err
	}
	if in.duration, err = m.Float64Histogram(MetricDuration,
		metric.WithDescription("Signing operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	); err != nil {
		return nil, err
	}
	if in.inflight, err = m.Int64UpDownCounter(MetricInflight, metric.WithDescription("Signing operations in progress")); err != nil {
		return nil, err
	}
	if in.verifications, err = m.Int64Counter(MetricVerifications, metric.WithDescription("Signature verifications by outcome")); err != nil {
		return nil, err
	}
	if in.signatures, err = m.Int64Counter(MetricSignatures, metric.WithDescription("Signature records created")); err != nil {
		return nil, err
	}
	return &in, nil
}

// RecordVerification counts one verification outcome ("valid", "tampered", "legacy_scheme").
func (p *Provider) RecordVerification(ctx context.Context, outcome string) {
	if p == nil || p.inst == nil {
		return
	}
	p.inst.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSignature counts a persisted signature record.
func (p *Provider) RecordSignature(ctx context.Context, role, scheme string) {
	if p == nil || p.inst == nil {
		return
	}
	p.inst.signatures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.String("scheme", scheme),
	))
}

// TrackOperation starts a span and the operation metrics. The returned func ends both
// and must be called exactly once with the operation's error.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := p.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	if p == nil || p.inst == nil {
		return ctx, func(err error) { finish(span, err) }
	}

	start := time.Now()
	// Only the operation name is a metric attribute; run and signature IDs stay on the span.
	opt := metric.WithAttributes(attribute.String("operation", name))
	p.inst.operations.Add(ctx, 1, opt)
	p.inst.inflight.Add(ctx, 1, opt)

	return ctx, func(err error) {
		p.inst.inflight.Add(ctx, -1, opt)
		p.inst.duration.Record(ctx, time.Since(start).Seconds(), opt)
		if err != nil {
			p.inst.failures.Add(ctx, 1, opt)
		}
		finish(span, err)
	}
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
