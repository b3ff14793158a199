package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/artcache/logger"
)

// MeterName is the instrumentation scope for artcache instruments.
const MeterName = "github.com/kbukum/artcache"

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The caller shuts it down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Cache lookup outcomes.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupExpired = "expired"
	LookupCorrupt = "corrupt"
	LookupError   = "error"
)

// Metrics holds the instruments for the cache, the offline queue, the
// repository and the HTTP surface. A nil *Metrics records nothing.
type Metrics struct {
	cacheLookups    metric.Int64Counter
	cacheWrites     metric.Int64Counter
	queuePending    metric.Int64UpDownCounter
	queueEnqueued   metric.Int64Counter
	queueReplayed   metric.Int64Counter
	fetchTotal      metric.Int64Counter
	fetchDuration   metric.Float64Histogram
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.cacheLookups, err = meter.Int64Counter("artcache.cache.lookups",
		metric.WithDescription("Cache reads by outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating artcache.cache.lookups counter: %w", err)
	}
	if m.cacheWrites, err = meter.Int64Counter("artcache.cache.writes",
		metric.WithDescription("Cache writes by status"),
	); err != nil {
		return nil, fmt.Errorf("creating artcache.cache.writes counter: %w", err)
	}
	if m.queuePending, err = meter.Int64UpDownCounter("artcache.queue.pending",
		metric.WithDescription("Requests waiting in the offline queue"),
	); err != nil {
		return nil, fmt.Errorf("creating artcache.queue.pending gauge: %w", err)
	}
	if m.queueEnqueued, err = meter.Int64Counter("artcache.queue.enqueued",
		metric.WithDescription("Requests added to the offline queue"),
	); err != nil {
		return nil, fmt.Errorf("creating artcache.queue.enqueued counter: %w", err)
	}
	if m.queueReplayed, err = meter.Int64Counter("artcache.queue.replayed",
		metric.WithDescription("Queued request replays by outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating artcache.queue.replayed counter: %w", err)
	}
	if m.fetchTotal, err = meter.Int64Counter("artcache.repository.fetches",
		metric.WithDescription("Repository results by kind"),
	); err != nil {
		return nil, fmt.Errorf("creating artcache.repository.fetches counter: %w", err)
	}
	if m.fetchDuration, err = meter.Float64Histogram("artcache.repository.fetch.duration",
		metric.WithDescription("Repository fetch latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating artcache.repository.fetch.duration histogram: %w", err)
	}
	if m.requestTotal, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.requests counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.duration histogram: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("http.server.active",
		metric.WithDescription("Number of in-flight HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.active gauge: %w", err)
	}
	return &m, nil
}

// RecordCacheLookup counts a cache read with one of the Lookup* outcomes.
func (m *Metrics) RecordCacheLookup(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCacheWrite counts a cache write.
func (m *Metrics) RecordCacheWrite(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.cacheWrites.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, status(err))))
}

// RecordEnqueue counts a request entering the offline queue.
func (m *Metrics) RecordEnqueue(ctx context.Context) {
	if m == nil {
		return
	}
	m.queueEnqueued.Add(ctx, 1)
	m.queuePending.Add(ctx, 1)
}

// RecordQueueRemoved lowers the pending gauge after a drain or clear.
func (m *Metrics) RecordQueueRemoved(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.queuePending.Add(ctx, -int64(n))
}

// RecordReplay counts one replay attempt; outcome is "succeeded", "retried"
// or "dropped".
func (m *Metrics) RecordReplay(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.queueReplayed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordFetch records a repository result.
func (m *Metrics) RecordFetch(ctx context.Context, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResultKind, kind)))
	m.fetchDuration.Record(ctx, duration.Seconds())
}

// RecordRequestStart increments the active request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements active requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("code", code),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("route", route),
	))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
