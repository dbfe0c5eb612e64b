// ABOUTME: Dashboard configuration loaded from YAML with sensible defaults.
// ABOUTME: Covers the server base URL, per-stream reconnect delays, verdict precedence, and poll cadence.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full dashboard configuration. Zero values are filled in by
// defaults; Load never returns a partially-defaulted config.
type Config struct {
	// BaseURL is the Ene server root, e.g. http://127.0.0.1:8900.
	BaseURL string `yaml:"base_url"`

	// LiveRetry is the reconnect delay for the live events and graph
	// streams. SummaryRetry covers the slower prompts stream.
	LiveRetry    time.Duration `yaml:"live_retry"`
	SummaryRetry time.Duration `yaml:"summary_retry"`

	// DaemonPrecedence picks the winner when lean and rich daemon verdicts
	// disagree within one cycle: "rich_wins" or "temporal".
	DaemonPrecedence string `yaml:"daemon_precedence"`

	// PollInterval is the cadence of the thread/pending fallback polls used
	// while a stream is offline.
	PollInterval time.Duration `yaml:"poll_interval"`

	// RequestTimeout bounds every one-shot HTTP call (polls and controls).
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		BaseURL:          "http://127.0.0.1:8900",
		LiveRetry:        3 * time.Second,
		SummaryRetry:     10 * time.Second,
		DaemonPrecedence: "rich_wins",
		PollInterval:     5 * time.Second,
		RequestTimeout:   10 * time.Second,
	}
}

// Load reads a YAML config file and merges it over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.LiveRetry <= 0 || c.SummaryRetry <= 0 {
		return fmt.Errorf("retry delays must be positive")
	}
	switch c.DaemonPrecedence {
	case "rich_wins", "temporal":
	default:
		return fmt.Errorf("daemon_precedence must be rich_wins or temporal, got %q", c.DaemonPrecedence)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}
