package config

import "github.com/kbukum/rxkit/validation"

// Deployment environments accepted in base.environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Environments lists the accepted values of base.environment.
var Environments = []string{EnvDevelopment, EnvStaging, EnvProduction}

// BaseConfig identifies the running process. Name and Version label logs,
// spans and metrics; Environment becomes the deployment.environment
// resource attribute.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults selects development, which also turns on debug logging.
func (c *BaseConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Environment == EnvDevelopment {
		c.Debug = true
	}
}

// Validate reports every problem as an INVALID_INPUT AppError keyed by
// field name.
func (c *BaseConfig) Validate() error {
	return validation.New().
		Required("name", c.Name).
		OneOf("environment", c.Environment, Environments).
		Validate()
}
