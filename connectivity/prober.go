package connectivity

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/kbukum/artcache/logger"
)

// CheckFunc reports whether the catalog is reachable right now.
type CheckFunc func(ctx context.Context) bool

// DialCheck returns a CheckFunc that opens and closes a TCP connection to
// addr (host:port).
func DialCheck(addr string, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

// ProberConfig configures periodic reachability checks.
type ProberConfig struct {
	// Enabled turns the prober on. When off, state only changes through
	// explicit Observe calls (e.g. the HTTP API).
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Address  string        `yaml:"address" mapstructure:"address" validate:"omitempty,hostname_port"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills zero values.
func (c *ProberConfig) ApplyDefaults() {
	if c.Address == "" {
		c.Address = "api.artic.edu:443"
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
}

// Prober samples reachability on an interval and feeds the Monitor.
type Prober struct {
	monitor  *Monitor
	check    CheckFunc
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger
}

// NewProber creates a Prober. check is bounded by timeout on each call.
func NewProber(monitor *Monitor, check CheckFunc, interval, timeout time.Duration, log *logger.Logger) *Prober {
	if log == nil {
		log = logger.Nop()
	}
	return &Prober{
		monitor:  monitor,
		check:    check,
		interval: interval,
		timeout:  timeout,
		log:      log.WithComponent("prober"),
	}
}

// NewProberFromConfig builds a Prober that dials cfg.Address.
func NewProberFromConfig(monitor *Monitor, cfg ProberConfig, log *logger.Logger) *Prober {
	cfg.ApplyDefaults()
	return NewProber(monitor, DialCheck(cfg.Address, cfg.Timeout), cfg.Interval, cfg.Timeout, log)
}

// ProbeOnce runs one check and applies it. It returns the sampled value.
func (p *Prober) ProbeOnce(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ok := p.check(checkCtx)
	if ctx.Err() != nil {
		return ok
	}
	p.log.Log("reachability sampled", logger.CategoryNetwork, logger.LevelDebug,
		logger.Fields("reachable", ok))
	p.monitor.Observe(ok)
	return ok
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("prober: interval must be positive")
	}
	p.ProbeOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.ProbeOnce(ctx)
		}
	}
}
