package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	Sandbox   SandboxConfig
	Fetch     FetchConfig
	RateLimit RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// SandboxConfig holds script execution limits.
type SandboxConfig struct {
	Timeout         time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	MaxScriptLength int           `envconfig:"SANDBOX_MAX_SCRIPT_LENGTH" default:"50000"`
	PoolSize        int           `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
}

// FetchConfig holds remote page fetch configuration.
type FetchConfig struct {
	Timeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	MaxBodyBytes int64         `envconfig:"FETCH_MAX_BODY_BYTES" default:"10485760"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Sandbox: SandboxConfig{
			Timeout:         5 * time.Second,
			MaxScriptLength: 50000,
			PoolSize:        4,
		},
		Fetch: FetchConfig{
			Timeout:      10 * time.Second,
			MaxBodyBytes: 10 * 1024 * 1024,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
