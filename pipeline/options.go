package pipeline

import (
	"github.com/kbukum/gostream/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the link sizing. Unset fields take defaults.
func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// WithName names the pipeline in logs, metrics and events.
func WithName(name string) Option {
	return func(c *Controller) { c.name = name }
}

// WithLogger sets the logger runs derive their logger from.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics sets the instruments runs record to. By default runs record
// to the global meter provider.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithEvents publishes run lifecycle events on bus.
func WithEvents(bus *Bus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithCallback registers fn to receive the result exactly once, on the
// run's goroutine, after the run reached its terminal state.
func WithCallback(fn func(Result)) Option {
	return func(c *Controller) { c.callbacks = append(c.callbacks, fn) }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(c *Controller) { c.runID = id }
}
