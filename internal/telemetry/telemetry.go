package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"

	"github.com/cogniteev/easy-upgrade/internal/logger"
	"github.com/cogniteev/easy-upgrade/internal/version"
)

// EndpointEnv is the standard variable holding the collector address.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// defaultExportInterval is short because a CLI run rarely lasts a full minute.
const defaultExportInterval = 10 * time.Second

// Options configure the exporters.
type Options struct {
	// Endpoint is the collector host:port. Empty disables telemetry.
	Endpoint string
	// Insecure disables TLS towards the collector.
	Insecure bool
	// ExportInterval is the metric export period, defaultExportInterval when zero.
	ExportInterval time.Duration
}

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(ctx context.Context) error

// Setup installs global tracer and meter providers exporting to opts.Endpoint.
// The returned function must be called before exit so pending data is flushed.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if opts.Endpoint == "" {
		logger.Debug(ctx, "Telemetry disabled, no OTLP endpoint")

		return func(context.Context) error { return nil }, nil
	}

	if opts.ExportInterval <= 0 {
		opts.ExportInterval = defaultExportInterval
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(version.Name),
		semconv.ServiceVersion(version.Short()),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	dialOption := grpc.WithUserAgent(version.UserAgent())

	traceOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithDialOption(dialOption),
	}
	metricOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(opts.Endpoint),
		otlpmetricgrpc.WithDialOption(dialOption),
	}

	if opts.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)

		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(opts.ExportInterval))),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	logger.InfoKV(ctx, "Telemetry enabled", "endpoint", opts.Endpoint, "insecure", opts.Insecure)

	return func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}, nil
}
