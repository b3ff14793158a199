package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/artcache/component"
	"github.com/kbukum/artcache/logger"
)

// Component runs a Hub under the component lifecycle.
type Component struct {
	hub  *Hub
	path string

	mu      sync.Mutex
	wg      sync.WaitGroup
	started bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a component around a fresh Hub served at path.
func NewComponent(path string, log *logger.Logger, opts ...HubOption) *Component {
	return &Component{hub: NewHub(log, opts...), path: path}
}

// Hub returns the managed hub.
func (c *Component) Hub() *Hub { return c.hub }

// Name implements component.Component.
func (c *Component) Name() string { return "event-stream" }

// Start runs the hub's delivery loop.
func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop closes every stream and waits for the loop to exit.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

// Health is degraded once the hub has been stopped.
func (c *Component) Health(context.Context) component.Health {
	select {
	case <-c.hub.Done():
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: "stopped"}
	default:
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Event Stream",
		Type:    "sse",
		Details: "GET " + c.path,
	}
}
