// Package config defines the application configuration structure and loads
// it from environment variables (TUTOR_ prefix) and an optional YAML file,
// with struct-tag validation on the result.
package config
