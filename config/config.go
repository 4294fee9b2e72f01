package config

import (
	"time"

	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/validation"
)

// Config is the full rxkit configuration tree.
type Config struct {
	Base          BaseConfig          `yaml:"base" mapstructure:"base"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Stream        StreamConfig        `yaml:"stream" mapstructure:"stream"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	SSE           SSEConfig           `yaml:"sse" mapstructure:"sse"`
}

// StreamConfig tunes operators that need timing.
type StreamConfig struct {
	// ThrottleQuiet is the default quiet period for throttled views.
	ThrottleQuiet time.Duration `yaml:"throttle_quiet" mapstructure:"throttle_quiet" validate:"gt=0"`
	// AwaitTimeout bounds blocking conversions such as Await and ToSlice.
	AwaitTimeout time.Duration `yaml:"await_timeout" mapstructure:"await_timeout" validate:"gt=0"`
}

// ObservabilityConfig controls OpenTelemetry export.
type ObservabilityConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gt=0"`
}

// SSEConfig controls the live view server.
type SSEConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	KeepAlive    time.Duration `yaml:"keep_alive" mapstructure:"keep_alive" validate:"gt=0"`
	ClientBuffer int           `yaml:"client_buffer" mapstructure:"client_buffer" validate:"gt=0,lte=65536"`
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	c.Base.ApplyDefaults()
	if c.Base.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()

	if c.Stream.ThrottleQuiet == 0 {
		c.Stream.ThrottleQuiet = 250 * time.Millisecond
	}
	if c.Stream.AwaitTimeout == 0 {
		c.Stream.AwaitTimeout = 30 * time.Second
	}

	if c.Observability.Endpoint == "" {
		c.Observability.Endpoint = "localhost:4318"
	}
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1
	}
	if c.Observability.MetricInterval == 0 {
		c.Observability.MetricInterval = 15 * time.Second
	}

	if c.SSE.Addr == "" {
		c.SSE.Addr = ":8080"
	}
	if c.SSE.KeepAlive == 0 {
		c.SSE.KeepAlive = 15 * time.Second
	}
	if c.SSE.ClientBuffer == 0 {
		c.SSE.ClientBuffer = 64
	}
}

// Validate checks the whole tree and reports every problem at once.
func (c *Config) Validate() error {
	v := validation.New()
	v.Merge("base", c.Base.Validate())
	if err := c.Logging.Validate(); err != nil {
		v.AddError("logging", err.Error())
	}
	v.Merge("stream", validation.Validate(c.Stream))
	v.Merge("observability", validation.Validate(c.Observability))
	v.Merge("sse", validation.Validate(c.SSE))
	v.Custom(!c.Observability.Enabled || c.Observability.Endpoint != "",
		"observability.endpoint", "is required when observability is enabled")
	v.Custom(!c.SSE.Enabled || c.SSE.Addr != "", "sse.addr", "is required when sse is enabled")
	return v.Validate()
}
