package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Default host = %v, want %v", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != "6001" {
		t.Errorf("Default port = %v, want %v", cfg.Server.Port, "6001")
	}
	if cfg.Server.EntityName != "entity" {
		t.Errorf("Default entity name = %v, want %v", cfg.Server.EntityName, "entity")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Default log level = %v, want %v", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Default log format = %v, want %v", cfg.Logging.Format, "text")
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Default log output = %v, want %v", cfg.Logging.Output, "stdout")
	}

	if cfg.Federation.MaxHops != 10 {
		t.Errorf("Default max hops = %v, want %v", cfg.Federation.MaxHops, 10)
	}
	if cfg.Federation.FetchTimeout != 10*time.Second {
		t.Errorf("Default fetch timeout = %v, want %v", cfg.Federation.FetchTimeout, 10*time.Second)
	}
	if cfg.Federation.StatementTTL != 24*time.Hour {
		t.Errorf("Default statement TTL = %v, want %v", cfg.Federation.StatementTTL, 24*time.Hour)
	}

	if cfg.Security.RateLimitRPS != 100 {
		t.Errorf("Default rate limit = %v, want %v", cfg.Security.RateLimitRPS, 100)
	}
	if cfg.Security.EnableCORS {
		t.Error("Default CORS should be disabled")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "0.0.0.0"
  port: "8080"
  entity_name: "alpha"
  base_url: "https://alpha.example.com"

logging:
  level: "debug"
  format: "json"
  output: "/var/log/go-federation.log"

federation:
  max_hops: 5
  fetch_timeout: "20s"
  statement_ttl: "12h"
  trust_anchors:
    - "https://anchor.example.com"

security:
  rate_limit_rps: 200
  rate_limit_burst: 400
  enable_cors: true
  allowed_origins:
    - "https://example.com"
    - "https://test.com"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %v, want %v", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %v, want %v", cfg.Server.Port, "8080")
	}
	if cfg.Server.EntityName != "alpha" {
		t.Errorf("EntityName = %v, want %v", cfg.Server.EntityName, "alpha")
	}
	if cfg.Server.BaseURL != "https://alpha.example.com" {
		t.Errorf("BaseURL = %v, want %v", cfg.Server.BaseURL, "https://alpha.example.com")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Log level = %v, want %v", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Log format = %v, want %v", cfg.Logging.Format, "json")
	}
	if cfg.Logging.Output != "/var/log/go-federation.log" {
		t.Errorf("Log output = %v, want %v", cfg.Logging.Output, "/var/log/go-federation.log")
	}

	if cfg.Federation.MaxHops != 5 {
		t.Errorf("MaxHops = %v, want %v", cfg.Federation.MaxHops, 5)
	}
	if cfg.Federation.FetchTimeout != 20*time.Second {
		t.Errorf("FetchTimeout = %v, want %v", cfg.Federation.FetchTimeout, 20*time.Second)
	}
	if cfg.Federation.StatementTTL != 12*time.Hour {
		t.Errorf("StatementTTL = %v, want %v", cfg.Federation.StatementTTL, 12*time.Hour)
	}
	if len(cfg.Federation.TrustAnchors) != 1 {
		t.Errorf("TrustAnchors count = %v, want %v", len(cfg.Federation.TrustAnchors), 1)
	}

	if cfg.Security.RateLimitRPS != 200 {
		t.Errorf("Rate limit RPS = %v, want %v", cfg.Security.RateLimitRPS, 200)
	}
	if cfg.Security.RateLimitBurst != 400 {
		t.Errorf("Rate limit burst = %v, want %v", cfg.Security.RateLimitBurst, 400)
	}
	if !cfg.Security.EnableCORS {
		t.Error("CORS should be enabled")
	}
	if len(cfg.Security.AllowedOrigins) != 2 {
		t.Errorf("Allowed origins count = %v, want %v", len(cfg.Security.AllowedOrigins), 2)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	os.Setenv("GF_HOST", "192.168.1.1")
	os.Setenv("GF_PORT", "9000")
	os.Setenv("GF_ENTITY_NAME", "beta")
	os.Setenv("GF_ENTITY_ID", "https://beta.example.com")
	os.Setenv("GF_LOG_LEVEL", "warn")
	os.Setenv("GF_LOG_FORMAT", "json")
	os.Setenv("GF_LOG_OUTPUT", "stderr")
	os.Setenv("GF_RATE_LIMIT_RPS", "500")
	os.Setenv("GF_ENABLE_CORS", "true")

	defer func() {
		os.Unsetenv("GF_HOST")
		os.Unsetenv("GF_PORT")
		os.Unsetenv("GF_ENTITY_NAME")
		os.Unsetenv("GF_ENTITY_ID")
		os.Unsetenv("GF_LOG_LEVEL")
		os.Unsetenv("GF_LOG_FORMAT")
		os.Unsetenv("GF_LOG_OUTPUT")
		os.Unsetenv("GF_RATE_LIMIT_RPS")
		os.Unsetenv("GF_ENABLE_CORS")
	}()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Host != "192.168.1.1" {
		t.Errorf("Host = %v, want %v", cfg.Server.Host, "192.168.1.1")
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("Port = %v, want %v", cfg.Server.Port, "9000")
	}
	if cfg.Server.EntityName != "beta" {
		t.Errorf("EntityName = %v, want %v", cfg.Server.EntityName, "beta")
	}
	if cfg.Server.BaseURL != "https://beta.example.com" {
		t.Errorf("BaseURL = %v, want %v", cfg.Server.BaseURL, "https://beta.example.com")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Log level = %v, want %v", cfg.Logging.Level, "warn")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Log format = %v, want %v", cfg.Logging.Format, "json")
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Log output = %v, want %v", cfg.Logging.Output, "stderr")
	}
	if cfg.Security.RateLimitRPS != 500 {
		t.Errorf("Rate limit RPS = %v, want %v", cfg.Security.RateLimitRPS, 500)
	}
	if !cfg.Security.EnableCORS {
		t.Error("CORS should be enabled")
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Error("LoadConfig() should fail with nonexistent file")
	}
}

func TestLoadConfigDirectoryPath(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := LoadConfig(tmpDir)
	if err == nil {
		t.Error("LoadConfig() should fail when given a directory")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("LoadConfig() should fail with invalid YAML")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "Valid default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "Empty port",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "", EntityName: "e"},
				Logging:    LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 10, FetchTimeout: 10 * time.Second, StatementTTL: time.Hour},
				Security:   SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 200},
			},
			wantErr: true,
		},
		{
			name: "Empty entity name",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "6001", EntityName: ""},
				Logging:    LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 10, FetchTimeout: 10 * time.Second, StatementTTL: time.Hour},
				Security:   SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 200},
			},
			wantErr: true,
		},
		{
			name: "Invalid log level",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "6001", EntityName: "e"},
				Logging:    LoggingConfig{Level: "invalid", Format: "text", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 10, FetchTimeout: 10 * time.Second, StatementTTL: time.Hour},
				Security:   SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 200},
			},
			wantErr: true,
		},
		{
			name: "Invalid log format",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "6001", EntityName: "e"},
				Logging:    LoggingConfig{Level: "info", Format: "invalid", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 10, FetchTimeout: 10 * time.Second, StatementTTL: time.Hour},
				Security:   SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 200},
			},
			wantErr: true,
		},
		{
			name: "Non-positive max hops",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "6001", EntityName: "e"},
				Logging:    LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 0, FetchTimeout: 10 * time.Second, StatementTTL: time.Hour},
				Security:   SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 200},
			},
			wantErr: true,
		},
		{
			name: "Negative fetch timeout",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "6001", EntityName: "e"},
				Logging:    LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 10, FetchTimeout: -1 * time.Second, StatementTTL: time.Hour},
				Security:   SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 200},
			},
			wantErr: true,
		},
		{
			name: "Non-positive statement TTL",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "6001", EntityName: "e"},
				Logging:    LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 10, FetchTimeout: 10 * time.Second, StatementTTL: 0},
				Security:   SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 200},
			},
			wantErr: true,
		},
		{
			name: "Non-positive rate limit",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "6001", EntityName: "e"},
				Logging:    LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 10, FetchTimeout: 10 * time.Second, StatementTTL: time.Hour},
				Security:   SecurityConfig{RateLimitRPS: 0, RateLimitBurst: 200},
			},
			wantErr: true,
		},
		{
			name: "Non-positive rate limit burst",
			config: &Config{
				Server:     ServerConfig{Host: "127.0.0.1", Port: "6001", EntityName: "e"},
				Logging:    LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
				Federation: FederationConfig{MaxHops: 10, FetchTimeout: 10 * time.Second, StatementTTL: time.Hour},
				Security:   SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverridesWithFederationAndSecurityConfig(t *testing.T) {
	os.Setenv("GF_MAX_HOPS", "3")
	os.Setenv("GF_FETCH_TIMEOUT", "5s")
	os.Setenv("GF_STATEMENT_TTL", "2h")
	os.Setenv("GF_TRUST_ANCHORS", "https://a1.example.com,https://a2.example.com")
	os.Setenv("GF_ALLOWED_ORIGINS", "https://app1.com,https://app2.com")
	os.Setenv("GF_RATE_LIMIT_BURST", "999")

	defer func() {
		os.Unsetenv("GF_MAX_HOPS")
		os.Unsetenv("GF_FETCH_TIMEOUT")
		os.Unsetenv("GF_STATEMENT_TTL")
		os.Unsetenv("GF_TRUST_ANCHORS")
		os.Unsetenv("GF_ALLOWED_ORIGINS")
		os.Unsetenv("GF_RATE_LIMIT_BURST")
	}()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Federation.MaxHops != 3 {
		t.Errorf("MaxHops = %v, want %v", cfg.Federation.MaxHops, 3)
	}
	if cfg.Federation.FetchTimeout != 5*time.Second {
		t.Errorf("FetchTimeout = %v, want %v", cfg.Federation.FetchTimeout, 5*time.Second)
	}
	if cfg.Federation.StatementTTL != 2*time.Hour {
		t.Errorf("StatementTTL = %v, want %v", cfg.Federation.StatementTTL, 2*time.Hour)
	}
	if len(cfg.Federation.TrustAnchors) != 2 {
		t.Errorf("TrustAnchors count = %v, want %v", len(cfg.Federation.TrustAnchors), 2)
	}
	if len(cfg.Security.AllowedOrigins) != 2 {
		t.Errorf("Allowed origins count = %v, want %v", len(cfg.Security.AllowedOrigins), 2)
	}
	if cfg.Security.RateLimitBurst != 999 {
		t.Errorf("RateLimitBurst = %v, want %v", cfg.Security.RateLimitBurst, 999)
	}
}
