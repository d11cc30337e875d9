package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultUserAgents is the pool used when BROWSER_USER_AGENTS is unset.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetch     FetchConfig
	Admission AdmissionConfig
	Breaker   BreakerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"10000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	Compression     bool          `envconfig:"HTTP_COMPRESSION" default:"false"`
}

// BrowserConfig controls how each per-request browser is launched.
type BrowserConfig struct {
	Bin          string   `envconfig:"BROWSER_BIN"`
	Headless     bool     `envconfig:"BROWSER_HEADLESS" default:"true"`
	WindowWidth  int      `envconfig:"BROWSER_WINDOW_WIDTH" default:"1366"`
	WindowHeight int      `envconfig:"BROWSER_WINDOW_HEIGHT" default:"900"`
	UserAgents   []string `envconfig:"BROWSER_USER_AGENTS"`
	ProfileFile  string   `envconfig:"BROWSER_PROFILE_FILE"`

	// ExtraFlags is only populated from a profile file.
	ExtraFlags map[string]string `ignored:"true"`
}

// FetchConfig holds the navigation and extraction timings.
type FetchConfig struct {
	NavigationTimeout     time.Duration `envconfig:"NAVIGATION_TIMEOUT" default:"45s"`
	StabilizeTimeout      time.Duration `envconfig:"STABILIZE_TIMEOUT" default:"45s"`
	SettleDelay           time.Duration `envconfig:"SETTLE_DELAY" default:"3s"`
	ChallengePollInterval time.Duration `envconfig:"CHALLENGE_POLL_INTERVAL" default:"1s"`
	Deadline              time.Duration `envconfig:"FETCH_DEADLINE" default:"120s"`
	MinContentLength      int           `envconfig:"MIN_CONTENT_LENGTH" default:"50"`
	SniffContentType      bool          `envconfig:"SNIFF_CONTENT_TYPE" default:"true"`
	AllowedHosts          []string      `envconfig:"ALLOWED_HOSTS"`
}

// AdmissionConfig bounds how many browsers may run at once.
type AdmissionConfig struct {
	MaxConcurrent int64         `envconfig:"MAX_CONCURRENT_SESSIONS" default:"0"`
	Wait          time.Duration `envconfig:"ADMISSION_WAIT" default:"30s"`
}

// BreakerConfig holds the browser launch circuit breaker settings.
type BreakerConfig struct {
	Enabled  bool          `envconfig:"LAUNCH_BREAKER_ENABLED" default:"true"`
	Failures uint32        `envconfig:"LAUNCH_BREAKER_FAILURES" default:"5"`
	Cooldown time.Duration `envconfig:"LAUNCH_BREAKER_COOLDOWN" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"20"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
}

// Load loads configuration from environment variables and applies the
// browser profile file when one is configured.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Browser.UserAgents) == 0 {
		cfg.Browser.UserAgents = append([]string(nil), DefaultUserAgents...)
	}
	if cfg.Browser.ProfileFile != "" {
		profile, err := LoadProfile(cfg.Browser.ProfileFile)
		if err != nil {
			return nil, err
		}
		profile.Apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that would make every fetch fail.
func (c *Config) Validate() error {
	switch {
	case c.Fetch.NavigationTimeout <= 0:
		return fmt.Errorf("invalid config: NAVIGATION_TIMEOUT must be positive")
	case c.Fetch.StabilizeTimeout <= 0:
		return fmt.Errorf("invalid config: STABILIZE_TIMEOUT must be positive")
	case c.Fetch.Deadline < c.Fetch.NavigationTimeout:
		return fmt.Errorf("invalid config: FETCH_DEADLINE (%s) shorter than NAVIGATION_TIMEOUT (%s)",
			c.Fetch.Deadline, c.Fetch.NavigationTimeout)
	case c.Fetch.MinContentLength < 0:
		return fmt.Errorf("invalid config: MIN_CONTENT_LENGTH must not be negative")
	case c.Admission.MaxConcurrent < 0:
		return fmt.Errorf("invalid config: MAX_CONCURRENT_SESSIONS must not be negative")
	case len(c.Browser.UserAgents) == 0:
		return fmt.Errorf("invalid config: user agent pool is empty")
	}
	return nil
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
			Port:            "10000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 15 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1366,
			WindowHeight: 900,
			UserAgents:   append([]string(nil), DefaultUserAgents...),
		},
		Fetch: FetchConfig{
			NavigationTimeout:     45 * time.Second,
			StabilizeTimeout:      45 * time.Second,
			SettleDelay:           3 * time.Second,
			ChallengePollInterval: time.Second,
			Deadline:              120 * time.Second,
			MinContentLength:      50,
			SniffContentType:      true,
		},
		Admission: AdmissionConfig{
			Wait: 30 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:  true,
			Failures: 5,
			Cooldown: 30 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}
}
