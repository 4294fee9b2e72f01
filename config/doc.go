// Package config loads rxkit configuration.
//
// It uses Viper to read a YAML file and environment variables, with an
// optional .env file loaded through godotenv first. Environment variables
// prefixed with RXKIT_ override file values using underscore-separated
// paths (e.g. RXKIT_STREAM_THROTTLE_QUIET=500ms).
//
// # Usage
//
//	cfg, err := config.Load("rxreplay", config.WithConfigFile("replay.yml"))
package config
