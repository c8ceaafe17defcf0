// ABOUTME: Configuration loading and parsing for lumen-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a field (or the whole config file) is absent. The
// gateway is usually spawned by a supervisor with no config at all.
const (
	DefaultIdleTimeout       = 120 * time.Second
	DefaultSweepInterval     = 30 * time.Second
	DefaultReadyProbeTimeout = 5 * time.Second
	DefaultMaxContentChars   = 10_000
)

// Config represents the complete lumen-gateway configuration
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Catalog CatalogConfig `yaml:"catalog"`
	Session SessionConfig `yaml:"session"`
	Limits  LimitsConfig  `yaml:"limits"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig selects and configures the generation backend
type EngineConfig struct {
	// Backend is one of "mock", "gemini", "openai"
	Backend string `yaml:"backend"`
	// Model is a backend model name or a catalog entry id
	Model string `yaml:"model"`
	// APIKey is the backend credential (supports ${VAR} expansion)
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the backend endpoint (openai backend only)
	BaseURL string `yaml:"base_url"`
}

// CatalogConfig points at an optional model catalog file
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// SessionConfig holds session lifecycle timing
type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	IdleTimeoutRaw   string `yaml:"idle_timeout"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// LimitsConfig holds request processing bounds
type LimitsConfig struct {
	MaxContentChars   int           `yaml:"max_content_chars"`
	ReadyProbeTimeout time.Duration `yaml:"-"`

	ReadyProbeTimeoutRaw string `yaml:"ready_probe_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed. A missing file is not an error: the defaults
// are returned so the gateway can run without any configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
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

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment
// variable values. If the environment variable is not set, it is replaced with
// an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills zero-valued fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Engine.Backend == "" {
		c.Engine.Backend = "mock"
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = DefaultIdleTimeout
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = DefaultSweepInterval
	}
	if c.Limits.MaxContentChars == 0 {
		c.Limits.MaxContentChars = DefaultMaxContentChars
	}
	if c.Limits.ReadyProbeTimeout == 0 {
		c.Limits.ReadyProbeTimeout = DefaultReadyProbeTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all configuration fields are coherent.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case "mock", "gemini", "openai":
	default:
		return fmt.Errorf("engine.backend %q is not one of mock, gemini, openai", c.Engine.Backend)
	}

	if c.Engine.Backend == "gemini" && c.Engine.APIKey == "" {
		return fmt.Errorf("engine.api_key is required for the gemini backend")
	}

	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	if c.Session.SweepInterval < 0 {
		return fmt.Errorf("session.sweep_interval must be positive")
	}
	if c.Limits.MaxContentChars < 0 {
		return fmt.Errorf("limits.max_content_chars must be positive")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.IdleTimeoutRaw != "" {
		cfg.Session.IdleTimeout, err = time.ParseDuration(cfg.Session.IdleTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing idle_timeout %q: %w", cfg.Session.IdleTimeoutRaw, err)
		}
	}

	if cfg.Session.SweepIntervalRaw != "" {
		cfg.Session.SweepInterval, err = time.ParseDuration(cfg.Session.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing sweep_interval %q: %w", cfg.Session.SweepIntervalRaw, err)
		}
	}

	if cfg.Limits.ReadyProbeTimeoutRaw != "" {
		cfg.Limits.ReadyProbeTimeout, err = time.ParseDuration(cfg.Limits.ReadyProbeTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing ready_probe_timeout %q: %w", cfg.Limits.ReadyProbeTimeoutRaw, err)
		}
	}

	return nil
}
