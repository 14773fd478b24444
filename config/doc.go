// Package config loads service configuration from a YAML file, an optional
// .env file and environment variables.
//
// Service configs embed ServiceConfig and are filled by LoadConfig:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Server server.Config `yaml:"server" mapstructure:"server"`
//	}
//
//	var cfg Config
//	err := config.LoadConfig("streamd", &cfg)
//
// Environment variables prefixed with the upper-cased service name override
// file values, with underscores mapped to nesting (STREAMD_SERVER_PORT sets
// server.port). Files are read through an afero.Fs so tests can run against
// an in-memory filesystem.
package config
