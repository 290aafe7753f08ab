// Package telemetry installs OpenTelemetry tracer and meter providers that
// export over OTLP/gRPC. Without an endpoint nothing is installed and the
// global providers stay no-op.
package telemetry
