package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	envPlatformToken = "WIREBOT_PLATFORM_TOKEN"
	envLogsDir       = "WIREBOT_LOGS_DIR"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Platform  PlatformConfig  `json:"platform"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
	Reconnect ReconnectConfig `json:"reconnect"`
	Logs      LogsConfig      `json:"logs,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// PlatformConfig holds the chat-platform endpoints and credentials.
type PlatformConfig struct {
	Token      string `json:"token"`
	GatewayURL string `json:"gateway_url"`
	APIURL     string `json:"api_url"`
}

// HeartbeatConfig controls the connection liveness probe.
type HeartbeatConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
	MaxMissed       int `json:"max_missed"`
}

// ReconnectConfig controls bounded redial after transport loss.
type ReconnectConfig struct {
	Enabled         bool `json:"enabled"`
	MaxAttempts     int  `json:"max_attempts"`
	BaseWaitSeconds int  `json:"base_wait_seconds"`
	MaxWaitSeconds  int  `json:"max_wait_seconds"`
}

// LogsConfig controls the per-run log file location.
type LogsConfig struct {
	Dir string `json:"dir,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// Defaults applied when the corresponding config.json fields are absent.
const (
	DefaultGatewayURL     = "wss://gateway.wirebot.dev/ws"
	DefaultAPIURL         = "https://api.wirebot.dev"
	DefaultHeartbeatSecs  = 30
	DefaultMaxMissed      = 5
	DefaultReconnectTries = 5
	DefaultReconnectBase  = 2
	DefaultReconnectMax   = 60
	DefaultLogsDir        = "logs"
)

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse unmarshals raw config content, fills defaults, and applies env overrides.
func Parse(content []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Validate rejects configurations the runtime cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Platform.Token) == "" {
		return fmt.Errorf("platform.token is required (or set %s)", envPlatformToken)
	}
	if strings.TrimSpace(c.Platform.GatewayURL) == "" {
		return fmt.Errorf("platform.gateway_url is required")
	}

	return nil
}

// applyDefaults fills zero-valued settings with runtime defaults.
func applyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if strings.TrimSpace(cfg.Platform.GatewayURL) == "" {
		cfg.Platform.GatewayURL = DefaultGatewayURL
	}
	if strings.TrimSpace(cfg.Platform.APIURL) == "" {
		cfg.Platform.APIURL = DefaultAPIURL
	}
	if cfg.Heartbeat.IntervalSeconds <= 0 {
		cfg.Heartbeat.IntervalSeconds = DefaultHeartbeatSecs
	}
	if cfg.Heartbeat.MaxMissed <= 0 {
		cfg.Heartbeat.MaxMissed = DefaultMaxMissed
	}
	if cfg.Reconnect.MaxAttempts <= 0 {
		cfg.Reconnect.MaxAttempts = DefaultReconnectTries
	}
	if cfg.Reconnect.BaseWaitSeconds <= 0 {
		cfg.Reconnect.BaseWaitSeconds = DefaultReconnectBase
	}
	if cfg.Reconnect.MaxWaitSeconds <= 0 {
		cfg.Reconnect.MaxWaitSeconds = DefaultReconnectMax
	}
	if strings.TrimSpace(cfg.Logs.Dir) == "" {
		cfg.Logs.Dir = DefaultLogsDir
	}
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envPlatformToken)); token != "" {
		cfg.Platform.Token = token
	}

	if dir := strings.TrimSpace(os.Getenv(envLogsDir)); dir != "" {
		cfg.Logs.Dir = dir
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is WIREBOT_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("WIREBOT_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("WIREBOT_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
