package observability

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/artcache/component"
	"github.com/kbukum/artcache/logger"
)

// Component owns the tracer and meter providers. Metrics is usable before
// Start: instruments are created on the global delegating meter, which
// forwards to the SDK provider once it is installed.
type Component struct {
	cfg     Config
	service string
	version string
	env     string
	log     *logger.Logger

	metrics *Metrics
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
}

// NewComponent builds the instruments on the global meter.
func NewComponent(cfg Config, service, version, env string, log *logger.Logger) (*Component, error) {
	cfg.ApplyDefaults()
	m, err := NewMetrics(otel.Meter(MeterName))
	if err != nil {
		return nil, err
	}
	return &Component{
		cfg: cfg, service: service, version: version, env: env,
		log:     log.WithComponent("observability"),
		metrics: m,
	}, nil
}

// Metrics returns the shared instruments.
func (c *Component) Metrics() *Metrics { return c.metrics }

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "observability" }

// Start installs exporting providers when enabled.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Debug("telemetry export disabled")
		return nil
	}
	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName: c.service, ServiceVersion: c.version, Environment: c.env,
		Endpoint: c.cfg.Endpoint, Insecure: c.cfg.Insecure, SampleRate: c.cfg.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("observability start: %w", err)
	}
	mp, err := InitMeter(ctx, &MeterConfig{
		ServiceName: c.service, ServiceVersion: c.version, Environment: c.env,
		Endpoint: c.cfg.Endpoint, Insecure: c.cfg.Insecure, Interval: c.cfg.MetricInterval,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("observability start: %w", err)
	}
	c.tp, c.mp = tp, mp
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
	}
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
	}
	c.tp, c.mp = nil, nil
	return stderrors.Join(errs...)
}

// Health is always healthy; export failures are reported by the SDK.
func (c *Component) Health(_ context.Context) component.Health {
	msg := "export disabled"
	if c.cfg.Enabled {
		msg = "exporting to " + c.cfg.Endpoint
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: msg}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp=%s sample=%.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: "OpenTelemetry", Type: "telemetry", Details: details}
}
