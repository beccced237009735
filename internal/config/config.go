// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config holds the worry service settings. Precedence: defaults, then the
// YAML file, then environment variables.
type Config struct {
	Port           int    `yaml:"port" env:"PORT"`
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`
	RedisAddr      string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword  string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	AllowedOrigins string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	RateLimitRPS   int    `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int    `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Port:           8080,
		AllowedOrigins: "*",
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		LogLevel:       "info",
	}
}

// Load reads the YAML file at path when it exists (an empty path or a missing
// file is not an error) and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Config file is optional.
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decode env: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("rate_limit_rps must be positive")
	}
	return cfg, nil
}

// Origins splits the allowed origins list.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
