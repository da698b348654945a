package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("expected default port 3000, got %q", cfg.Port)
	}
	if cfg.MaxFileSize != 10_000_000 {
		t.Errorf("expected default max file size 10000000, got %d", cfg.MaxFileSize)
	}
	if cfg.RegistrationCode == "" {
		t.Error("registration code must have a default")
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected default session TTL 24h, got %s", cfg.SessionTTL)
	}
	if cfg.SessionBackend != SessionBackendMemory {
		t.Errorf("expected default session backend memory, got %q", cfg.SessionBackend)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("MAX_FILE_SIZE", "5000000")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("SESSION_SWEEP_INTERVAL_HOURS", "0.5")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("RATE_LIMIT_BURST", "5")

	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("expected port 8081, got %q", cfg.Port)
	}
	if cfg.MaxFileSize != 5_000_000 {
		t.Errorf("expected max file size 5000000, got %d", cfg.MaxFileSize)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("expected session TTL 2h, got %s", cfg.SessionTTL)
	}
	if cfg.SessionSweep != 30*time.Minute {
		t.Errorf("expected sweep interval 30m, got %s", cfg.SessionSweep)
	}
	if cfg.SessionBackend != SessionBackendRedis {
		t.Errorf("expected redis backend, got %q", cfg.SessionBackend)
	}
	if cfg.RateLimitBurst != 5 {
		t.Errorf("expected burst 5, got %d", cfg.RateLimitBurst)
	}

	t.Setenv("MAX_FILE_SIZE", "not-a-number")
	if cfg := Load(); cfg.MaxFileSize != 10_000_000 {
		t.Errorf("malformed value should fall back to default, got %d", cfg.MaxFileSize)
	}
}
