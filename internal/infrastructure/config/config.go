package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration.
type Config struct {
	Embed   EmbedConfig
	Tools   ToolsConfig
	Logging LogConfig
	Server  ServerConfig
	Launch  LaunchConfig
}

// EmbedConfig holds window acquisition and termination timing.
type EmbedConfig struct {
	// MaxWait bounds both window acquisition and graceful termination.
	MaxWait          time.Duration `envconfig:"EMBED_MAX_WAIT" default:"2s"`
	ResizeGrace      time.Duration `envconfig:"EMBED_RESIZE_GRACE" default:"3s"`
	KillWait         time.Duration `envconfig:"EMBED_KILL_WAIT" default:"1s"`
	PlaceholderTitle string        `envconfig:"EMBED_PLACEHOLDER_TITLE" default:"Default IME"`
}

// ToolsConfig locates the external tool catalog.
type ToolsConfig struct {
	Path    string `envconfig:"TOOLS_PATH" default:"tools"`
	Pattern string `envconfig:"TOOLS_PATTERN" default:"**/*.{yaml,yml,toml,json}"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// ServerConfig holds the local status API, which also serves /metrics.
// An empty Addr disables it.
type ServerConfig struct {
	Addr         string   `envconfig:"SERVER_ADDR" default:""`
	AllowOrigins []string `envconfig:"SERVER_ALLOW_ORIGINS" default:"http://localhost"`
	RateLimit    int      `envconfig:"SERVER_RATE_LIMIT" default:"20"`
	RateBurst    int      `envconfig:"SERVER_RATE_BURST" default:"40"`
}

// LaunchConfig configures the per-tool launch breaker.
type LaunchConfig struct {
	BreakerFailures int           `envconfig:"LAUNCH_BREAKER_FAILURES" default:"3"`
	BreakerCooldown time.Duration `envconfig:"LAUNCH_BREAKER_COOLDOWN" default:"30s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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
		Embed: EmbedConfig{
			MaxWait:          2 * time.Second,
			ResizeGrace:      3 * time.Second,
			KillWait:         time.Second,
			PlaceholderTitle: "Default IME",
		},
		Tools: ToolsConfig{
			Path:    "tools",
			Pattern: "**/*.{yaml,yml,toml,json}",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Server: ServerConfig{
			AllowOrigins: []string{"http://localhost"},
			RateLimit:    20,
			RateBurst:    40,
		},
		Launch: LaunchConfig{
			BreakerFailures: 3,
			BreakerCooldown: 30 * time.Second,
		},
	}
}

// Validate rejects timing values the embedding core cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Embed.MaxWait <= 0 {
		errs = append(errs, errors.New("EMBED_MAX_WAIT must be positive"))
	}
	if c.Embed.ResizeGrace < 0 {
		errs = append(errs, errors.New("EMBED_RESIZE_GRACE must not be negative"))
	}
	if c.Embed.KillWait <= 0 {
		errs = append(errs, errors.New("EMBED_KILL_WAIT must be positive"))
	}
	if c.Launch.BreakerFailures < 1 {
		errs = append(errs, errors.New("LAUNCH_BREAKER_FAILURES must be at least 1"))
	}
	if c.Server.RateLimit < 1 || c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("SERVER_RATE_LIMIT and SERVER_RATE_BURST must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
