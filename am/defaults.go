package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values shared with Validate and the CLI
const (
	DefaultServerPort   = 8787
	DefaultDatabasePath = "qntx-astro.db"
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultModel        = "llama3.2:3b"

	// EnvPrefix is prepended to every environment override (QNTX_ASTRO_ADVISORY_MODEL, ...)
	EnvPrefix = "QNTX_ASTRO"

	// MaxBatchSize mirrors the advisory gateway's hard limit
	MaxBatchSize = 4
	// MaxSampleValues mirrors the advisory prompt's sample limit
	MaxSampleValues = 3
	// MaxTemperature mirrors the advisory client's clamp
	MaxTemperature = 0.3
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Advisory (Ollama) defaults
	v.SetDefault("advisory.enabled", true)
	v.SetDefault("advisory.base_url", DefaultOllamaURL)
	v.SetDefault("advisory.model", DefaultModel)
	v.SetDefault("advisory.timeout_seconds", 30)
	v.SetDefault("advisory.temperature", 0.1)
	v.SetDefault("advisory.num_predict", 512)
	v.SetDefault("advisory.batch_size", MaxBatchSize)
	v.SetDefault("advisory.retry_delay_ms", 500)
	v.SetDefault("advisory.concurrency", 1) // one local endpoint; batches run sequentially
	v.SetDefault("advisory.requests_per_minute", 60)
	v.SetDefault("advisory.health_ttl_seconds", 60)
	v.SetDefault("advisory.sample_values", MaxSampleValues)

	// Merge thresholds
	v.SetDefault("classify.high_confidence", 0.7)
	v.SetDefault("classify.medium_confidence", 0.4)

	// Domain dictionaries
	v.SetDefault("catalog.paths", []string{})
	v.SetDefault("catalog.watch", false)

	// Database defaults
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.audit", true)

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 120) // advisory batches can be slow

	// Logging
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// BindSensitiveEnvVars explicitly binds configuration that deployments
// usually set from the environment
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH")
	v.BindEnv("advisory.enabled", EnvPrefix+"_ADVISORY_ENABLED")
	v.BindEnv("advisory.base_url", EnvPrefix+"_ADVISORY_BASE_URL", "OLLAMA_HOST")
	v.BindEnv("advisory.model", EnvPrefix+"_ADVISORY_MODEL")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Advisory: {Enabled: %t, Model: %s}, Database: %s, Server: %s}",
		c.Advisory.Enabled, c.Advisory.Model, c.Database.Path, c.Server.Address())
}
