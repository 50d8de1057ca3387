// Package config loads process-level configuration and validates
// inbound scenario parameters against a JSON Schema before they reach
// the engine, per spec.md §6's Configuration section and §10.3.
//
// Grounded on integration_tests/framework/runner.go's struct-tag-driven
// gopkg.in/yaml.v3 decoding for the process config, and on
// registry/service.go's validatePayloadJSONAgainstSchema for the
// jsonschema/v6 compile-and-validate shape, retargeted from tool
// payload schemas to scenario parameters.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the top-level process configuration document.
type AppConfig struct {
	Mongo      MongoConfig      `yaml:"mongo"`
	Redis      RedisConfig      `yaml:"redis"`
	WorkerPool WorkerPoolConfig `yaml:"workerPool"`
	Breakers   BreakersConfig   `yaml:"breakers"`
	MLAdvisory MLAdvisoryConfig `yaml:"mlAdvisory"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// MongoConfig configures the repository's database connection.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// RedisConfig configures the bus idempotency store and Pulse streams.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// WorkerPoolConfig mirrors spec.md §6's "Worker pool: maxConcurrency
// (default = cores), itemTimeoutMs (default 30000)".
type WorkerPoolConfig struct {
	MaxConcurrency int `yaml:"maxConcurrency"`
	ItemTimeoutMs  int `yaml:"itemTimeoutMs"`
}

// TaskTimeout returns ItemTimeoutMs as a time.Duration, defaulting to
// internal/workerpool.DefaultTaskTimeout's value (30s) when unset.
func (w WorkerPoolConfig) TaskTimeout() time.Duration {
	if w.ItemTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(w.ItemTimeoutMs) * time.Millisecond
}

// BreakerConfig is one named circuit breaker's tunables, mirroring
// spec.md §6's "Circuit breaker per endpoint:
// {timeout, errorThresholdPct, resetTimeout, volumeThreshold}".
type BreakerConfig struct {
	TimeoutMs         int     `yaml:"timeoutMs"`
	ErrorThresholdPct float64 `yaml:"errorThresholdPct"`
	ResetTimeoutMs    int     `yaml:"resetTimeoutMs"`
	VolumeThreshold   int     `yaml:"volumeThreshold"`
}

// BreakersConfig maps a breaker name (e.g. "ml.select-algorithm",
// "stock-client") to its tunables. A name absent from the map uses
// internal/breaker.Config's own defaults.
type BreakersConfig map[string]BreakerConfig

// MLAdvisoryConfig selects and configures the ML advisory provider.
type MLAdvisoryConfig struct {
	Provider     string `yaml:"provider"` // "anthropic" | "openai" | "bedrock"
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"maxTokens"`
	APIKeyEnvVar string `yaml:"apiKeyEnvVar"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses an AppConfig from the YAML file at path.
func Load(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}
