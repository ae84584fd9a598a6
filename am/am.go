package am

import (
	"fmt"
	"time"
)

// Config represents the qntx-astro configuration
type Config struct {
	Advisory AdvisoryConfig `mapstructure:"advisory" toml:"advisory" json:"advisory" yaml:"advisory"`
	Classify ClassifyConfig `mapstructure:"classify" toml:"classify" json:"classify" yaml:"classify"`
	Catalog  CatalogConfig  `mapstructure:"catalog" toml:"catalog" json:"catalog" yaml:"catalog"`
	Database DatabaseConfig `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" toml:"server" json:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// AdvisoryConfig configures the local inference endpoint used as a classification hint (Ollama)
type AdvisoryConfig struct {
	Enabled           bool    `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	BaseURL           string  `mapstructure:"base_url" toml:"base_url" json:"base_url" yaml:"base_url"` // e.g., "http://localhost:11434"
	Model             string  `mapstructure:"model" toml:"model" json:"model" yaml:"model"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"` // per batch call
	Temperature       float64 `mapstructure:"temperature" toml:"temperature" json:"temperature" yaml:"temperature"`                 // clamped to 0.3
	NumPredict        int     `mapstructure:"num_predict" toml:"num_predict" json:"num_predict" yaml:"num_predict"`
	BatchSize         int     `mapstructure:"batch_size" toml:"batch_size" json:"batch_size" yaml:"batch_size"` // 1..4
	RetryDelayMS      int     `mapstructure:"retry_delay_ms" toml:"retry_delay_ms" json:"retry_delay_ms" yaml:"retry_delay_ms"`
	Concurrency       int     `mapstructure:"concurrency" toml:"concurrency" json:"concurrency" yaml:"concurrency"` // concurrent batches
	RequestsPerMinute int     `mapstructure:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute" yaml:"requests_per_minute"`
	HealthTTLSeconds  int     `mapstructure:"health_ttl_seconds" toml:"health_ttl_seconds" json:"health_ttl_seconds" yaml:"health_ttl_seconds"`
	SampleValues      int     `mapstructure:"sample_values" toml:"sample_values" json:"sample_values" yaml:"sample_values"` // 1..3
}

// ClassifyConfig holds the merge thresholds
type ClassifyConfig struct {
	HighConfidence   float64 `mapstructure:"high_confidence" toml:"high_confidence" json:"high_confidence" yaml:"high_confidence"`
	MediumConfidence float64 `mapstructure:"medium_confidence" toml:"medium_confidence" json:"medium_confidence" yaml:"medium_confidence"`
}

// CatalogConfig lists extra domain dictionaries (TOML files or directories)
type CatalogConfig struct {
	Paths []string `mapstructure:"paths" toml:"paths" json:"paths" yaml:"paths"`
	Watch bool     `mapstructure:"watch" toml:"watch" json:"watch" yaml:"watch"` // reload dictionaries on change (serve only)
}

// DatabaseConfig configures the SQLite audit database
type DatabaseConfig struct {
	Path  string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
	Audit bool   `mapstructure:"audit" toml:"audit" json:"audit" yaml:"audit"` // persist audit entries and schemas
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host                string `mapstructure:"host" toml:"host" json:"host" yaml:"host"`
	Port                int    `mapstructure:"port" toml:"port" json:"port" yaml:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds" toml:"read_timeout_seconds" json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" toml:"write_timeout_seconds" json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
	Level string `mapstructure:"level" toml:"level" json:"level" yaml:"level"`
}

// Timeout returns the per-batch advisory timeout
func (a AdvisoryConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RetryDelay returns the pause before the corrective retry
func (a AdvisoryConfig) RetryDelay() time.Duration {
	return time.Duration(a.RetryDelayMS) * time.Millisecond
}

// HealthTTL returns how long a health check answer is reused
func (a AdvisoryConfig) HealthTTL() time.Duration {
	return time.Duration(a.HealthTTLSeconds) * time.Second
}

// Address returns host:port for the HTTP listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ReadTimeout returns the server read timeout
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
