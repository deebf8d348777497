// ABOUTME: Configuration loading and parsing for profile-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/converge-cv/profile-gateway/internal/profile"
)

// Default durations applied when the corresponding fields are unset.
const (
	DefaultTTL            = 5 * time.Minute
	DefaultNegativeTTL    = 30 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// Config represents the complete profile-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`  // Serve HTTPS with Tailscale certs
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// UpstreamConfig holds upstream profile API configuration
type UpstreamConfig struct {
	// Env selects a well-known upstream: local, dev, or production.
	// Ignored when BaseURL is set explicitly.
	Env     string `yaml:"env"`
	BaseURL string `yaml:"base_url"`

	RequestTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// CacheConfig holds resolution cache TTL configuration
type CacheConfig struct {
	TTL         time.Duration `yaml:"-"`
	NegativeTTL time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TTLRaw         string `yaml:"ttl"`
	NegativeTTLRaw string `yaml:"negative_ttl"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in unset optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Cache.TTLRaw == "" {
		cfg.Cache.TTL = DefaultTTL
	}
	if cfg.Cache.NegativeTTLRaw == "" {
		cfg.Cache.NegativeTTL = DefaultNegativeTTL
	}
	if cfg.Upstream.RequestTimeoutRaw == "" {
		cfg.Upstream.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Upstream.Env == "" && cfg.Upstream.BaseURL == "" {
		cfg.Upstream.Env = profile.EnvProduction
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The HTTP address is required unless Tailscale provides the listener
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.NegativeTTL < 0 {
		return fmt.Errorf("cache.negative_ttl must not be negative")
	}

	if c.Upstream.BaseURL == "" {
		if _, err := profile.BaseURLFor(c.Upstream.Env); err != nil {
			return fmt.Errorf("upstream.env: %w", err)
		}
	}

	return nil
}

// UpstreamBaseURL returns the effective upstream base URL.
func (c *Config) UpstreamBaseURL() (string, error) {
	if c.Upstream.BaseURL != "" {
		return c.Upstream.BaseURL, nil
	}
	return profile.BaseURLFor(c.Upstream.Env)
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Cache.TTLRaw != "" {
		cfg.Cache.TTL, err = time.ParseDuration(cfg.Cache.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache.ttl %q: %w", cfg.Cache.TTLRaw, err)
		}
	}

	if cfg.Cache.NegativeTTLRaw != "" {
		cfg.Cache.NegativeTTL, err = time.ParseDuration(cfg.Cache.NegativeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache.negative_ttl %q: %w", cfg.Cache.NegativeTTLRaw, err)
		}
	}

	if cfg.Upstream.RequestTimeoutRaw != "" {
		cfg.Upstream.RequestTimeout, err = time.ParseDuration(cfg.Upstream.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing upstream.request_timeout %q: %w", cfg.Upstream.RequestTimeoutRaw, err)
		}
	}

	return nil
}
