package main

import (
	"time"

	"github.com/kbukum/gostream/catalog"
	"github.com/kbukum/gostream/config"
	"github.com/kbukum/gostream/observability"
	"github.com/kbukum/gostream/pipeline"
	"github.com/kbukum/gostream/server"
	"github.com/kbukum/gostream/sse"
	"github.com/kbukum/gostream/validation"
	"github.com/kbukum/gostream/version"
)

// Config is the streamd configuration, read from config.yml, .env and
// STREAMD_* environment variables.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Pipeline      pipeline.Config      `yaml:"pipeline" mapstructure:"pipeline"`
	Catalog       catalog.Config       `yaml:"catalog" mapstructure:"catalog"`
	Events        EventsConfig         `yaml:"events" mapstructure:"events"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// EventsConfig controls the run event stream.
type EventsConfig struct {
	Path      string        `yaml:"path" mapstructure:"path"`
	KeepAlive time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "streamd"
	}
	if c.Version == "" {
		c.Version = version.Get().String()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Catalog.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Events.Path == "" {
		c.Events.Path = "/runs/events"
	}
	if c.Events.KeepAlive <= 0 {
		c.Events.KeepAlive = sse.DefaultKeepAlive
	}
}

// Validate checks every section and reports all failures together.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return validation.New().
		Merge("pipeline", c.Pipeline.Validate()).
		Merge("catalog", validation.Validate(c.Catalog)).
		Merge("observability", validation.Validate(c.Observability)).
		Err()
}
