package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/artcache/component"
	"github.com/kbukum/artcache/logger"
)

// Component wraps Storage for lifecycle management.
type Component struct {
	storage     Storage
	cfg         Config
	providerCfg any
	log         *logger.Logger
}

// NewComponent creates a storage component.
func NewComponent(cfg Config, providerCfg any, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		providerCfg: providerCfg,
		log:         log.WithComponent("storage"),
	}
}

// Storage returns the underlying Storage, or nil if not started.
func (c *Component) Storage() Storage {
	return c.storage
}

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start opens the backend and pings it when supported.
func (c *Component) Start(ctx context.Context) error {
	s, err := New(c.cfg, c.providerCfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	if p, ok := s.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			if cl, ok := s.(Closer); ok {
				_ = cl.Close()
			}
			return fmt.Errorf("storage start: %w", err)
		}
	}
	c.storage = s
	return nil
}

// Stop releases backend resources.
func (c *Component) Stop(_ context.Context) error {
	if cl, ok := c.storage.(Closer); ok {
		if err := cl.Close(); err != nil {
			return fmt.Errorf("storage stop: %w", err)
		}
	}
	c.storage = nil
	return nil
}

// Health probes the backend.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.storage == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "storage not initialized",
		}
	}

	var err error
	if p, ok := c.storage.(Pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = c.storage.Exists(ctx, ".health")
	}
	if err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("health probe failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s", c.cfg.Provider)
	if c.cfg.Provider == ProviderLocal {
		details += " path=" + c.cfg.BasePath
	}
	if d, ok := c.providerCfg.(interface{ Describe() string }); ok {
		details += " " + d.Describe()
	}
	return component.Description{
		Name:    "Cache Storage",
		Type:    "storage",
		Details: details,
	}
}
