package upgrade

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/cogniteev/easy-upgrade/internal/upgrade"

type instruments struct {
	upgraded metric.Int64Counter
	failed   metric.Int64Counter
	duration metric.Float64Histogram
}

// meters resolves instruments against the global meter provider, which
// forwards to the SDK provider once telemetry is set up.
//
//nolint:gochecknoglobals // Instruments are created once per process.
var meters = sync.OnceValue(func() instruments {
	meter := otel.Meter(instrumentationName)

	upgraded, err := meter.Int64Counter("easy_upgrade.releases.upgraded",
		metric.WithDescription("Releases upgraded successfully"))
	if err != nil {
		upgraded = noop.Int64Counter{}
	}

	failed, err := meter.Int64Counter("easy_upgrade.releases.failed",
		metric.WithDescription("Release pipelines that failed"))
	if err != nil {
		failed = noop.Int64Counter{}
	}

	duration, err := meter.Float64Histogram("easy_upgrade.pipeline.duration",
		metric.WithDescription("Duration of release pipelines"),
		metric.WithUnit("s"))
	if err != nil {
		duration = noop.Float64Histogram{}
	}

	return instruments{upgraded: upgraded, failed: failed, duration: duration}
})

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func releaseAttributes(r *Release) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("easy_upgrade.provider", r.provider),
		attribute.String("easy_upgrade.release", r.name),
	}
}

// recordPipeline reports the outcome of one pipeline run.
func recordPipeline(ctx context.Context, r *Release, started time.Time, err error) {
	m := meters()
	attrs := metric.WithAttributes(releaseAttributes(r)...)

	m.duration.Record(ctx, time.Since(started).Seconds(), attrs)

	if err != nil {
		m.failed.Add(ctx, 1, attrs)

		return
	}

	m.upgraded.Add(ctx, 1, attrs)
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
