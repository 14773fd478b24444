package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/gostream/component"
	"github.com/kbukum/gostream/pipeline"
)

// Component runs a Hub and forwards a pipeline bus to it while started.
type Component struct {
	hub  *Hub
	bus  *pipeline.Bus
	path string

	mu      sync.Mutex
	wg      sync.WaitGroup
	stopFwd func()
	running bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent wraps hub. When bus is non-nil its run events are forwarded
// to the hub between Start and Stop.
func NewComponent(hub *Hub, bus *pipeline.Bus, path string) *Component {
	return &Component{hub: hub, bus: bus, path: path}
}

// Hub returns the underlying hub.
func (c *Component) Hub() *Hub { return c.hub }

// Name returns the component name.
func (c *Component) Name() string { return "sse" }

// Start launches the hub loop and the bus forwarder.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("sse hub already running")
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	if c.bus != nil {
		c.stopFwd = ForwardRuns(c.bus, c.hub)
	}
	c.running = true
	return nil
}

// Stop detaches the forwarder, stops the hub and waits for Run to return.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}

	if c.stopFwd != nil {
		c.stopFwd()
		c.stopFwd = nil
	}
	c.hub.Stop()
	c.wg.Wait()
	c.running = false
	return nil
}

// Health reports the number of connected clients.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "hub not running"}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "SSE Hub",
		Type:    "sse",
		Details: fmt.Sprintf("path=%s", c.path),
	}
}
