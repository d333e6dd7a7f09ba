package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"API_BASE_URL", "DESK_API_BASE_URL", "DESK_PAGE_URL", "TOKEN", "DESK_TOKEN", "VIDEO_POOL", "CLAIM_COUNT", "DESK_SESSION_DB"} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "reviewdesk" {
		t.Errorf("expected Name=reviewdesk, got %s", cfg.Name)
	}
	if got := cfg.GetRequestTimeout(); got != 10*time.Minute {
		t.Errorf("expected 10m request timeout, got %s", got)
	}
	if got := cfg.GetReconnectDelay(); got != 30*time.Second {
		t.Errorf("expected 30s reconnect delay, got %s", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://review.example.com/api"
	cfg.Review.ClaimCount = 25

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.API.BaseURL != "https://review.example.com/api" {
		t.Errorf("expected saved base url, got %s", loaded.API.BaseURL)
	}
	if loaded.Review.ClaimCount != 25 {
		t.Errorf("expected ClaimCount=25, got %d", loaded.Review.ClaimCount)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Errorf("expected default base url, got %s", cfg.API.BaseURL)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Timeout = "soon"
	cfg.Stream.ReconnectDelay = "-5s"

	if got := cfg.GetRequestTimeout(); got != 10*time.Minute {
		t.Errorf("expected fallback 10m, got %s", got)
	}
	if got := cfg.GetReconnectDelay(); got != 30*time.Second {
		t.Errorf("expected fallback 30s, got %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://host/api" }},
		{"bad timeout", func(c *Config) { c.API.Timeout = "ten minutes" }},
		{"bad reconnect", func(c *Config) { c.Stream.ReconnectDelay = "x" }},
		{"claim count zero", func(c *Config) { c.Review.ClaimCount = 0 }},
		{"claim count too large", func(c *Config) { c.Review.ClaimCount = 51 }},
		{"unknown pool", func(c *Config) { c.Review.VideoPool = "5k" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
