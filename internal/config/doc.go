// Package config loads runtime configuration from multiple sources (YAML files,
// a .env file, environment variables, CLI flags) with precedence: CLI flags >
// YAML config > Environment variables > Defaults. Physical landmarks and
// timing are compile-time constants and are not configurable here.
package config
