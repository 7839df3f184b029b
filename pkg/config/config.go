// Package config provides configuration management for the
// go-federation entity process. It supports loading configuration
// from YAML files and environment variables, per SPEC_FULL.md §2.2.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration structure: server
// identity, logging, federation-specific tuning, and security.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Federation FederationConfig `yaml:"federation"`
	Security   SecurityConfig   `yaml:"security"`
}

// ServerConfig contains HTTP server and entity identity settings.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	EntityName string `yaml:"entity_name"`
	BaseURL    string `yaml:"base_url"`
}

// LoggingConfig contains logging configuration settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// FederationConfig tunes the Trust Chain Resolver's behavior.
type FederationConfig struct {
	MaxHops            int           `yaml:"max_hops"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
	TrustAnchors       []string      `yaml:"trust_anchors"`
	StatementTTL       time.Duration `yaml:"statement_ttl"`
	RequiredTrustMarks []string      `yaml:"required_trust_marks"`
	RedisAddr          string        `yaml:"redis_addr"`
}

// SecurityConfig contains security-related configuration settings.
type SecurityConfig struct {
	RateLimitRPS   int      `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	EnableCORS     bool     `yaml:"enable_cors"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       "6001",
			EntityName: "entity",
			BaseURL:    "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Federation: FederationConfig{
			MaxHops:            10,
			FetchTimeout:       10 * time.Second,
			TrustAnchors:       []string{},
			StatementTTL:       24 * time.Hour,
			RequiredTrustMarks: []string{},
			RedisAddr:          "",
		},
		Security: SecurityConfig{
			RateLimitRPS:   100,
			RateLimitBurst: 200,
			EnableCORS:     false,
			AllowedOrigins: []string{},
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies
// environment variable overrides. It returns the merged configuration
// or an error if loading fails.
//
// Environment variables override configuration file values using the
// GF_ prefix:
//   - GF_HOST, GF_PORT, GF_ENTITY_NAME, GF_ENTITY_ID for server settings
//   - GF_LOG_LEVEL, GF_LOG_FORMAT, GF_LOG_OUTPUT for logging
//   - GF_MAX_HOPS, GF_FETCH_TIMEOUT, GF_TRUST_ANCHORS, GF_STATEMENT_TTL,
//     GF_REQUIRED_TRUST_MARKS, GF_REDIS_ADDR for federation settings
//   - GF_RATE_LIMIT_RPS, GF_RATE_LIMIT_BURST for security settings
//
// If configPath is empty, only default values and environment
// variables are used.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := validateConfigPath(configPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}

		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// validateConfigPath rejects empty paths and anything that isn't a
// plain file, so a misconfigured directory or device path fails fast
// with a clear message rather than a confusing read error.
func validateConfigPath(path string) error {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return fmt.Errorf("cannot stat config path %q: %w", clean, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %q is a directory, not a file", clean)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables take precedence over config
// file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GF_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GF_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("GF_ENTITY_NAME"); v != "" {
		cfg.Server.EntityName = v
	}
	if v := os.Getenv("GF_ENTITY_ID"); v != "" {
		cfg.Server.BaseURL = v
	}

	if v := os.Getenv("GF_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GF_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("GF_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}

	if v := os.Getenv("GF_MAX_HOPS"); v != "" {
		if hops, err := strconv.Atoi(v); err == nil {
			cfg.Federation.MaxHops = hops
		}
	}
	if v := os.Getenv("GF_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Federation.FetchTimeout = d
		}
	}
	if v := os.Getenv("GF_TRUST_ANCHORS"); v != "" {
		cfg.Federation.TrustAnchors = strings.Split(v, ",")
	}
	if v := os.Getenv("GF_STATEMENT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Federation.StatementTTL = d
		}
	}
	if v := os.Getenv("GF_REQUIRED_TRUST_MARKS"); v != "" {
		cfg.Federation.RequiredTrustMarks = strings.Split(v, ",")
	}
	if v := os.Getenv("GF_REDIS_ADDR"); v != "" {
		cfg.Federation.RedisAddr = v
	}

	if v := os.Getenv("GF_RATE_LIMIT_RPS"); v != "" {
		if rps, err := strconv.Atoi(v); err == nil {
			cfg.Security.RateLimitRPS = rps
		}
	}
	if v := os.Getenv("GF_RATE_LIMIT_BURST"); v != "" {
		if burst, err := strconv.Atoi(v); err == nil {
			cfg.Security.RateLimitBurst = burst
		}
	}
	if v := os.Getenv("GF_ENABLE_CORS"); v != "" {
		cfg.Security.EnableCORS = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("GF_ALLOWED_ORIGINS"); v != "" {
		cfg.Security.AllowedOrigins = strings.Split(v, ",")
	}
}

// Validate checks if the configuration is valid. It returns an error
// if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.EntityName == "" {
		return fmt.Errorf("server entity_name cannot be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "fatal": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Federation.MaxHops <= 0 {
		return fmt.Errorf("federation max_hops must be positive")
	}
	if c.Federation.FetchTimeout <= 0 {
		return fmt.Errorf("federation fetch_timeout must be positive")
	}
	if c.Federation.StatementTTL <= 0 {
		return fmt.Errorf("federation statement_ttl must be positive")
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}
	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}
