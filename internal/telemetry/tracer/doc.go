// Package tracer provides span tracing for sirius-server's RPC handlers.
//
// It exposes an OpenTelemetry-shaped Span/Provider API:
//
//   - otel.go: Provider/Span, backed today by structured log output
//
// Swapping in a real OTLP or Jaeger exporter only touches otel.go, since
// every call site already speaks the narrow Span interface it exports.
package tracer
