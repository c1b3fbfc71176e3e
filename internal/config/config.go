// Package config provides configuration types for sekisho.
//
// Configuration is read from an optional sekisho.yaml, overridden by
// SEKISHO_* environment variables and then by command-line flags. Durations
// are kept as strings in the file format ("30s", "5m") and parsed on use.
package config

import "time"

// Defaults.
const (
	DefaultBaseURL      = "http://127.0.0.1:8000"
	DefaultTimeout      = "30s"
	DefaultProbeTimeout = "5s"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultOutputFormat = "text"
	DefaultColor        = "auto"
)

// Config is the top-level configuration.
type Config struct {
	// API configures the decision service endpoint.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Log configures diagnostic logging on stderr.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Output configures how results are written to stdout.
	Output OutputConfig `yaml:"output" mapstructure:"output"`

	// Metrics configures the optional Prometheus listener of the console.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Trace configures span export.
	Trace TraceConfig `yaml:"trace" mapstructure:"trace"`
}

// APIConfig configures the decision service client.
type APIConfig struct {
	// BaseURL is the service origin, e.g. "http://127.0.0.1:8000".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,http_origin"`
	// Timeout is the deadline for submit and execute calls (e.g., "30s").
	// Default: "30s".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`
	// ProbeTimeout is the deadline for connectivity probes.
	// Default: "5s".
	ProbeTimeout string `yaml:"probe_timeout" mapstructure:"probe_timeout" validate:"omitempty,duration"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	// Format is text or json. Default: text.
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// OutputConfig configures rendering.
type OutputConfig struct {
	// Format is text, json or yaml. Default: text.
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=text json yaml"`
	// Color is auto, always or never. Default: auto.
	Color string `yaml:"color" mapstructure:"color" validate:"omitempty,oneof=auto always never"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	// Addr is the host:port to serve /metrics on. Empty disables it.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,listen_addr"`
}

// TraceConfig configures tracing.
type TraceConfig struct {
	// Enabled exports spans to stderr.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == "" {
		c.API.Timeout = DefaultTimeout
	}
	if c.API.ProbeTimeout == "" {
		c.API.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Output.Format == "" {
		c.Output.Format = DefaultOutputFormat
	}
	if c.Output.Color == "" {
		c.Output.Color = DefaultColor
	}
}

// TimeoutDuration returns the parsed call deadline, or the default when unset
// or invalid.
func (c APIConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(c.Timeout, DefaultTimeout)
}

// ProbeTimeoutDuration returns the parsed probe deadline, or the default when
// unset or invalid.
func (c APIConfig) ProbeTimeoutDuration() time.Duration {
	return parseDurationOr(c.ProbeTimeout, DefaultProbeTimeout)
}

func parseDurationOr(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}
