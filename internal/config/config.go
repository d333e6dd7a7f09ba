package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkspaceDir is the per-project directory holding config, session and logs.
const WorkspaceDir = ".desk"

// Claim limits enforced by the backend.
const (
	MinClaimCount = 1
	MaxClaimCount = 50
)

// ValidPools lists the video queue traffic pools.
var ValidPools = []string{"100k", "1m", "10m"}

// Config holds all reviewdesk configuration.
type Config struct {
	Name string `yaml:"name"`

	// Backend API
	API APIConfig `yaml:"api"`

	// Notification push channel
	Stream StreamConfig `yaml:"stream"`

	// Local credential storage
	Session SessionConfig `yaml:"session"`

	// Review workflow defaults
	Review ReviewConfig `yaml:"review"`

	Usage UsageConfig `yaml:"usage"`

	UI UIConfig `yaml:"ui"`

	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the HTTP client adapter.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
	PageURL string `yaml:"page_url"` // sent as X-Page-Url
	Token   string `yaml:"token,omitempty"`
}

// StreamConfig configures the SSE notification stream.
type StreamConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ReconnectDelay string `yaml:"reconnect_delay"`
}

// SessionConfig configures where credentials are persisted.
type SessionConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ReviewConfig holds reviewer-facing defaults.
type ReviewConfig struct {
	ClaimCount int    `yaml:"claim_count"`
	VideoPool  string `yaml:"video_pool"`
}

// UsageConfig configures the request usage tracker.
type UsageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UIConfig configures the review console.
type UIConfig struct {
	Theme string `yaml:"theme"` // dark, light
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "reviewdesk",

		API: APIConfig{
			BaseURL: "http://127.0.0.1:8080/api",
			Timeout: "10m",
			PageURL: "desk://cli",
		},

		Stream: StreamConfig{
			Enabled:        true,
			ReconnectDelay: "30s",
		},

		Session: SessionConfig{
			DatabasePath: filepath.Join(WorkspaceDir, "session.db"),
		},

		Review: ReviewConfig{
			ClaimCount: 10,
			VideoPool:  "100k",
		},

		Usage: UsageConfig{
			Enabled: true,
			Path:    filepath.Join(WorkspaceDir, "usage.json"),
		},

		UI: UIConfig{
			Theme: "dark",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    filepath.Join(WorkspaceDir, "logs"),
		},
	}
}

// DefaultConfigPath returns .desk/config.yaml under the working directory.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(WorkspaceDir, "config.yaml")
	}
	return filepath.Join(cwd, WorkspaceDir, "config.yaml")
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// The unprefixed names match the ones the smoke scripts have always read.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DESK_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DESK_PAGE_URL"); v != "" {
		c.API.PageURL = v
	}

	if v := os.Getenv("TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("DESK_TOKEN"); v != "" {
		c.API.Token = v
	}

	if v := os.Getenv("VIDEO_POOL"); v != "" {
		c.Review.VideoPool = v
	}
	if v := os.Getenv("CLAIM_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Review.ClaimCount = n
		}
	}

	if path := os.Getenv("DESK_SESSION_DB"); path != "" {
		c.Session.DatabasePath = path
	}
}

// GetRequestTimeout returns the HTTP request timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// GetReconnectDelay returns the fixed SSE reconnect delay.
func (c *Config) GetReconnectDelay() time.Duration {
	d, err := time.ParseDuration(c.Stream.ReconnectDelay)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api base_url: %q", c.API.BaseURL)
	}

	if _, err := time.ParseDuration(c.API.Timeout); err != nil {
		return fmt.Errorf("invalid api timeout %q: %w", c.API.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Stream.ReconnectDelay); err != nil {
		return fmt.Errorf("invalid stream reconnect_delay %q: %w", c.Stream.ReconnectDelay, err)
	}

	if c.Review.ClaimCount < MinClaimCount || c.Review.ClaimCount > MaxClaimCount {
		return fmt.Errorf("review claim_count must be between %d and %d, got %d", MinClaimCount, MaxClaimCount, c.Review.ClaimCount)
	}

	if !IsValidPool(c.Review.VideoPool) {
		return fmt.Errorf("invalid video pool: %s (valid: %v)", c.Review.VideoPool, ValidPools)
	}

	return nil
}

// IsValidPool reports whether pool names a video queue pool.
func IsValidPool(pool string) bool {
	for _, p := range ValidPools {
		if p == pool {
			return true
		}
	}
	return false
}
