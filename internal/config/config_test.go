package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Capture: CaptureConfig{
			ChunkInterval: 30.0,
			SettleDelayMs: 100,
			MinChunkBytes: 10000,
			SampleRate:    16000,
		},
		Analysis: AnalysisConfig{
			Endpoint:          "https://api.example.com",
			APIKey:            "test-key",
			Timeout:           30,
			CoolDown:          5.0,
			RescheduleDelayMs: 100,
			FlushThreshold:    5,
			EndSessionTimeout: 5,
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "127.0.0.1",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid chunk interval",
			mutate: func(c *Config) {
				c.Capture.ChunkInterval = 0
			},
			expectError: true,
			errorMsg:    "chunk_interval must be positive",
		},
		{
			name: "invalid sample rate",
			mutate: func(c *Config) {
				c.Capture.SampleRate = 44100
			},
			expectError: true,
			errorMsg:    "sample_rate must be 16000 Hz",
		},
		{
			name: "min chunk below header size",
			mutate: func(c *Config) {
				c.Capture.MinChunkBytes = 20
			},
			expectError: true,
			errorMsg:    "min_chunk_bytes must be at least",
		},
		{
			name: "empty analysis endpoint",
			mutate: func(c *Config) {
				c.Analysis.Endpoint = ""
			},
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name: "invalid flush threshold",
			mutate: func(c *Config) {
				c.Analysis.FlushThreshold = 0
			},
			expectError: true,
			errorMsg:    "flush_threshold must be at least 1",
		},
		{
			name: "invalid http port",
			mutate: func(c *Config) {
				c.HTTP.Port = 70000
			},
			expectError: true,
			errorMsg:    "http port must be between 1 and 65535",
		},
		{
			name: "http disabled skips port check",
			mutate: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
capture:
  chunk_interval: 30.0
  settle_delay_ms: 100
  min_chunk_bytes: 10000
  sample_rate: 16000
analysis:
  endpoint: "https://api.example.com"
  api_key: "test-key"
  timeout: 30
  cool_down: 5.0
  reschedule_delay_ms: 100
  flush_threshold: 5
  end_session_timeout: 5
http:
  port: 8080
  address: "127.0.0.1"
  enabled: true
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
capture:
  chunk_interval: 30.0
  min_chunk_bytes: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
capture:
  chunk_interval: 30.0
`,
			expectError: true,
			errorMsg:    "min_chunk_bytes must be at least",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	capture := CaptureConfig{
		ChunkInterval: 30.0,
		SettleDelayMs: 100,
	}

	if capture.GetChunkIntervalDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", capture.GetChunkIntervalDuration())
	}

	if capture.GetSettleDelayDuration() != 100*time.Millisecond {
		t.Errorf("Expected 100 milliseconds, got %v", capture.GetSettleDelayDuration())
	}

	analysis := AnalysisConfig{
		Timeout:           30,
		CoolDown:          5.0,
		RescheduleDelayMs: 100,
		EndSessionTimeout: 5,
	}

	if analysis.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", analysis.GetTimeoutDuration())
	}

	if analysis.GetCoolDownDuration() != 5*time.Second {
		t.Errorf("Expected 5 seconds, got %v", analysis.GetCoolDownDuration())
	}

	if analysis.GetRescheduleDelayDuration() != 100*time.Millisecond {
		t.Errorf("Expected 100 milliseconds, got %v", analysis.GetRescheduleDelayDuration())
	}

	if analysis.GetEndSessionTimeoutDuration() != 5*time.Second {
		t.Errorf("Expected 5 seconds, got %v", analysis.GetEndSessionTimeoutDuration())
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{
			name: "valid json to stdout",
			config: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			valid: true,
		},
		{
			name: "valid text to stderr",
			config: LoggingConfig{
				Level:  "debug",
				Format: "text",
				Output: "stderr",
			},
			valid: true,
		},
		{
			name: "invalid log level",
			config: LoggingConfig{
				Level:  "trace",
				Format: "json",
				Output: "stdout",
			},
			valid: false,
		},
		{
			name: "invalid format",
			config: LoggingConfig{
				Level:  "info",
				Format: "xml",
				Output: "stdout",
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > len(substr) && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
