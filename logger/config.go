package logger

import (
	stderrors "errors"
	"slices"

	"github.com/rs/zerolog"

	rxerrors "github.com/kbukum/rxkit/errors"
)

var (
	formats = []string{FormatJSON, FormatConsole, FormatPretty}
	outputs = []string{"stdout", "stderr", "discard"}
)

// Config is the logging section of the rxkit config.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults selects info level console output on stderr. Timestamps
// are always on.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

// Validate accepts any level zerolog can parse. Every invalid field is
// reported.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.Level); err != nil || c.Level == "" {
		errs = append(errs, rxerrors.InvalidInput("level", "unknown log level "+c.Level))
	}
	if !slices.Contains(formats, c.Format) {
		errs = append(errs, rxerrors.InvalidInput("format", "unknown log format "+c.Format))
	}
	if !slices.Contains(outputs, c.Output) {
		errs = append(errs, rxerrors.InvalidInput("output", "unknown log output "+c.Output))
	}
	return stderrors.Join(errs...)
}
