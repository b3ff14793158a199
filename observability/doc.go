// Package observability wires OpenTelemetry tracing and metrics.
//
// Metrics carries the instruments recorded by the cache, the offline queue,
// the repository and the HTTP server. All Record methods accept a nil
// receiver, so packages take a *Metrics option without checking it.
//
//	m, _ := observability.NewMetrics(otel.Meter(observability.MeterName))
//	m.RecordCacheLookup(ctx, observability.LookupHit)
//
// Component installs OTLP/HTTP exporters when observability.enabled is set.
package observability
