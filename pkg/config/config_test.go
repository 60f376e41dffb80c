package config

import (
	"testing"
)

func TestParseAppliesDefaults(t *testing.T) {
	t.Setenv("WIREBOT_PLATFORM_TOKEN", "")
	t.Setenv("WIREBOT_LOGS_DIR", "")

	cfg, err := Parse([]byte(`{"platform":{"token":"abc"}}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if cfg.Platform.Token != "abc" {
		t.Fatalf("token = %q, want %q", cfg.Platform.Token, "abc")
	}
	if cfg.Platform.GatewayURL != DefaultGatewayURL {
		t.Fatalf("gateway_url = %q, want default", cfg.Platform.GatewayURL)
	}
	if cfg.Heartbeat.IntervalSeconds != DefaultHeartbeatSecs {
		t.Fatalf("heartbeat interval = %d, want %d", cfg.Heartbeat.IntervalSeconds, DefaultHeartbeatSecs)
	}
	if cfg.Heartbeat.MaxMissed != DefaultMaxMissed {
		t.Fatalf("max_missed = %d, want %d", cfg.Heartbeat.MaxMissed, DefaultMaxMissed)
	}
	if cfg.Logs.Dir != DefaultLogsDir {
		t.Fatalf("logs.dir = %q, want %q", cfg.Logs.Dir, DefaultLogsDir)
	}
}

func TestParseKeepsExplicitValues(t *testing.T) {
	t.Setenv("WIREBOT_PLATFORM_TOKEN", "")
	t.Setenv("WIREBOT_LOGS_DIR", "")

	raw := `{
		"platform": {"token": "abc", "gateway_url": "wss://example.test/ws"},
		"heartbeat": {"interval_seconds": 10, "max_missed": 3},
		"reconnect": {"enabled": true, "max_attempts": 2}
	}`

	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if cfg.Platform.GatewayURL != "wss://example.test/ws" {
		t.Fatalf("gateway_url = %q", cfg.Platform.GatewayURL)
	}
	if cfg.Heartbeat.IntervalSeconds != 10 {
		t.Fatalf("heartbeat interval = %d, want 10", cfg.Heartbeat.IntervalSeconds)
	}
	if cfg.Heartbeat.MaxMissed != 3 {
		t.Fatalf("max_missed = %d, want 3", cfg.Heartbeat.MaxMissed)
	}
	if !cfg.Reconnect.Enabled || cfg.Reconnect.MaxAttempts != 2 {
		t.Fatalf("reconnect = %+v", cfg.Reconnect)
	}
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv("WIREBOT_PLATFORM_TOKEN", "env-token")
	t.Setenv("WIREBOT_LOGS_DIR", "env-logs")

	cfg, err := Parse([]byte(`{"platform":{"token":"file-token"}}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if cfg.Platform.Token != "env-token" {
		t.Fatalf("token = %q, want env override", cfg.Platform.Token)
	}
	if cfg.Logs.Dir != "env-logs" {
		t.Fatalf("logs.dir = %q, want env override", cfg.Logs.Dir)
	}
}

func TestValidateRequiresToken(t *testing.T) {
	t.Setenv("WIREBOT_PLATFORM_TOKEN", "")

	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing token")
	}
}
