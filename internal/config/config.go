package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Capture  CaptureConfig  `yaml:"capture"`
	Analysis AnalysisConfig `yaml:"analysis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CaptureConfig contains microphone capture and chunking parameters
type CaptureConfig struct {
	ChunkInterval float64 `yaml:"chunk_interval"`  // seconds
	SettleDelayMs int     `yaml:"settle_delay_ms"` // milliseconds
	MinChunkBytes int     `yaml:"min_chunk_bytes"`
	SampleRate    int     `yaml:"sample_rate"`
}

// AnalysisConfig contains emotion analysis backend configuration
type AnalysisConfig struct {
	Endpoint          string  `yaml:"endpoint"`
	APIKey            string  `yaml:"api_key"`
	Timeout           int     `yaml:"timeout"`             // seconds
	CoolDown          float64 `yaml:"cool_down"`           // seconds
	RescheduleDelayMs int     `yaml:"reschedule_delay_ms"` // milliseconds
	FlushThreshold    int     `yaml:"flush_threshold"`
	EndSessionTimeout int     `yaml:"end_session_timeout"` // seconds
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (cc *CaptureConfig) Validate() error {
	if cc.ChunkInterval <= 0 {
		return fmt.Errorf("chunk_interval must be positive, got %f", cc.ChunkInterval)
	}

	if cc.SettleDelayMs < 0 {
		return fmt.Errorf("settle_delay_ms cannot be negative, got %d", cc.SettleDelayMs)
	}

	if cc.MinChunkBytes < 44 {
		return fmt.Errorf("min_chunk_bytes must be at least the WAV header size of 44, got %d", cc.MinChunkBytes)
	}

	if cc.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for the analysis backend, got %d", cc.SampleRate)
	}

	return nil
}

// Validate validates analysis configuration
func (a *AnalysisConfig) Validate() error {
	if a.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if a.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", a.Timeout)
	}

	if a.CoolDown < 0 {
		return fmt.Errorf("cool_down cannot be negative, got %f", a.CoolDown)
	}

	if a.RescheduleDelayMs < 0 {
		return fmt.Errorf("reschedule_delay_ms cannot be negative, got %d", a.RescheduleDelayMs)
	}

	if a.FlushThreshold < 1 {
		return fmt.Errorf("flush_threshold must be at least 1, got %d", a.FlushThreshold)
	}

	if a.EndSessionTimeout < 1 {
		return fmt.Errorf("end_session_timeout must be at least 1 second, got %d", a.EndSessionTimeout)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetChunkIntervalDuration returns the chunk interval as a time.Duration
func (cc *CaptureConfig) GetChunkIntervalDuration() time.Duration {
	return time.Duration(cc.ChunkInterval * float64(time.Second))
}

// GetSettleDelayDuration returns the boundary settle delay as a time.Duration
func (cc *CaptureConfig) GetSettleDelayDuration() time.Duration {
	return time.Duration(cc.SettleDelayMs) * time.Millisecond
}

// GetTimeoutDuration returns the analysis request timeout as a time.Duration
func (a *AnalysisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// GetCoolDownDuration returns the inter-request cool-down as a time.Duration
func (a *AnalysisConfig) GetCoolDownDuration() time.Duration {
	return time.Duration(a.CoolDown * float64(time.Second))
}

// GetRescheduleDelayDuration returns the undersized-chunk reschedule delay
// as a time.Duration
func (a *AnalysisConfig) GetRescheduleDelayDuration() time.Duration {
	return time.Duration(a.RescheduleDelayMs) * time.Millisecond
}

// GetEndSessionTimeoutDuration returns the end-session notification timeout
// as a time.Duration
func (a *AnalysisConfig) GetEndSessionTimeoutDuration() time.Duration {
	return time.Duration(a.EndSessionTimeout) * time.Second
}
