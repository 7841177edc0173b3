// Package config loads and validates the Pulse engine configuration
// from environment variables, with optional YAML-based alert thresholds
// that can be hot-reloaded at runtime.
package config
