package am

import (
	"net/url"
	"strings"

	"github.com/teranos/qntx-astro/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Advisory settings only matter when the service is enabled
	if c.Advisory.Enabled {
		if c.Advisory.BaseURL == "" {
			return errors.New("advisory.base_url cannot be empty when enabled")
		}
		if u, err := url.Parse(c.Advisory.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.WithHintf(
				errors.Newf("advisory.base_url is not an absolute URL: %q", c.Advisory.BaseURL),
				"use a value such as %s", DefaultOllamaURL)
		}
		if c.Advisory.Model == "" {
			return errors.New("advisory.model cannot be empty when enabled")
		}
		if c.Advisory.TimeoutSeconds <= 0 {
			return errors.Newf("advisory.timeout_seconds must be > 0, got %d", c.Advisory.TimeoutSeconds)
		}
	}

	if c.Advisory.Temperature < 0 || c.Advisory.Temperature > MaxTemperature {
		return errors.Newf("advisory.temperature must be within [0, %.1f], got %g", MaxTemperature, c.Advisory.Temperature)
	}
	if c.Advisory.NumPredict <= 0 {
		return errors.Newf("advisory.num_predict must be > 0, got %d", c.Advisory.NumPredict)
	}
	if c.Advisory.BatchSize < 1 || c.Advisory.BatchSize > MaxBatchSize {
		return errors.Newf("advisory.batch_size must be within [1, %d], got %d", MaxBatchSize, c.Advisory.BatchSize)
	}
	if c.Advisory.SampleValues < 1 || c.Advisory.SampleValues > MaxSampleValues {
		return errors.Newf("advisory.sample_values must be within [1, %d], got %d", MaxSampleValues, c.Advisory.SampleValues)
	}
	if c.Advisory.RetryDelayMS < 0 {
		return errors.Newf("advisory.retry_delay_ms must be >= 0, got %d", c.Advisory.RetryDelayMS)
	}
	if c.Advisory.Concurrency < 1 {
		return errors.Newf("advisory.concurrency must be >= 1, got %d", c.Advisory.Concurrency)
	}
	// 0 = unlimited
	if c.Advisory.RequestsPerMinute < 0 {
		return errors.Newf("advisory.requests_per_minute must be >= 0, got %d", c.Advisory.RequestsPerMinute)
	}
	if c.Advisory.HealthTTLSeconds < 0 {
		return errors.Newf("advisory.health_ttl_seconds must be >= 0, got %d", c.Advisory.HealthTTLSeconds)
	}

	high, medium := c.Classify.HighConfidence, c.Classify.MediumConfidence
	if !(0 < medium && medium < high && high <= 1) {
		return errors.Newf("classify thresholds must satisfy 0 < medium_confidence < high_confidence <= 1, got medium=%g high=%g", medium, high)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be within [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSeconds < 0 || c.Server.WriteTimeoutSeconds < 0 {
		return errors.New("server timeouts must be >= 0")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.Newf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	return nil
}
