// Package config provides configuration loading and validation for the
// emotion audio service. It handles YAML-based configuration with per-section
// Validate methods and duration helpers for time-valued fields.
package config
