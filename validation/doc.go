// Package validation checks configuration and input values for rxkit.
//
// Struct tag validation covers configuration trees loaded by the config
// package; field names in messages use the mapstructure key, so errors
// read like the YAML a user wrote.
//
//	type StreamConfig struct {
//	    ThrottleQuiet time.Duration `mapstructure:"throttle_quiet" validate:"gt=0"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects errors for rules tags cannot express:
//
//	v := validation.New()
//	v.Custom(!cfg.Enabled || cfg.Addr != "", "sse.addr", "is required when sse is enabled")
//	err := v.Validate()
package validation
