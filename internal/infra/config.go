package infra

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration. Values come from three
// layers, each overriding the previous: built-in defaults, the YAML config
// file, and CRYPTODASH_* environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Upstream struct {
		BaseURL           string `yaml:"base_url" env:"CRYPTODASH_UPSTREAM_URL"`
		RequestTimeoutSec int    `yaml:"request_timeout_sec" env:"CRYPTODASH_REQUEST_TIMEOUT_SEC"`
		MinSpacingSec     int    `yaml:"min_spacing_sec" env:"CRYPTODASH_MIN_SPACING_SEC"`
		InterCallDelayMS  int    `yaml:"inter_call_delay_ms" env:"CRYPTODASH_INTER_CALL_DELAY_MS"`
		PerPage           int    `yaml:"per_page" env:"CRYPTODASH_PER_PAGE"`
	} `yaml:"upstream"`

	Market struct {
		QuoteCurrency     string `yaml:"quote_currency" env:"CRYPTODASH_QUOTE_CURRENCY"`
		SecondaryCurrency string `yaml:"secondary_currency" env:"CRYPTODASH_SECONDARY_CURRENCY"`
		PrimaryTTLMin     int    `yaml:"primary_ttl_min" env:"CRYPTODASH_PRIMARY_TTL_MIN"`
		BackupTTLMin      int    `yaml:"backup_ttl_min" env:"CRYPTODASH_BACKUP_TTL_MIN"`
		ChartTTLMin       int    `yaml:"chart_ttl_min" env:"CRYPTODASH_CHART_TTL_MIN"`
		ChartBackupTTLMin int    `yaml:"chart_backup_ttl_min" env:"CRYPTODASH_CHART_BACKUP_TTL_MIN"`
	} `yaml:"market"`

	Scheduler struct {
		UpdateIntervalSec int `yaml:"update_interval_sec" env:"CRYPTODASH_UPDATE_INTERVAL_SEC"`
		InitialDelaySec   int `yaml:"initial_delay_sec" env:"CRYPTODASH_INITIAL_DELAY_SEC"`
	} `yaml:"scheduler"`

	HTTP struct {
		Port int `yaml:"port" env:"CRYPTODASH_PORT"`
	} `yaml:"http"`

	Logging struct {
		Level string `yaml:"level" env:"CRYPTODASH_LOG_LEVEL"`
	} `yaml:"logging"`
}

// minUpdateInterval is the floor for the scheduler tick; anything faster risks
// tripping the upstream rate limit.
const minUpdateInterval = 120

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "cryptodash"
	cfg.App.Version = "dev"
	cfg.Upstream.BaseURL = "https://api.coingecko.com/api/v3"
	cfg.Upstream.RequestTimeoutSec = 10
	cfg.Upstream.MinSpacingSec = 3
	cfg.Upstream.InterCallDelayMS = 1000
	cfg.Upstream.PerPage = 10
	cfg.Market.QuoteCurrency = "usd"
	cfg.Market.SecondaryCurrency = "brl"
	cfg.Market.PrimaryTTLMin = 2
	cfg.Market.BackupTTLMin = 30
	cfg.Market.ChartTTLMin = 10
	cfg.Market.ChartBackupTTLMin = 60
	cfg.Scheduler.UpdateIntervalSec = 300
	cfg.Scheduler.InitialDelaySec = 10
	cfg.HTTP.Port = 8080
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads path (if it exists), applies environment overrides and
// validates the result. A missing file is not an error: the dashboard runs
// fine on defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		slog.Info("No config file found, using defaults", slog.String("path", path))
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity and clamps the scheduler interval to
// its floor rather than failing on it.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		return fmt.Errorf("invalid upstream base URL: %s", c.Upstream.BaseURL)
	}
	if c.Upstream.RequestTimeoutSec <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Upstream.MinSpacingSec <= 0 {
		return fmt.Errorf("min spacing must be positive")
	}
	if c.Upstream.PerPage <= 0 || c.Upstream.PerPage > 250 {
		return fmt.Errorf("per_page must be between 1 and 250")
	}

	if len(c.Market.QuoteCurrency) != 3 {
		return fmt.Errorf("quote currency must be a 3-letter code, got %q", c.Market.QuoteCurrency)
	}
	if len(c.Market.SecondaryCurrency) != 3 {
		return fmt.Errorf("secondary currency must be a 3-letter code, got %q", c.Market.SecondaryCurrency)
	}
	c.Market.QuoteCurrency = strings.ToLower(c.Market.QuoteCurrency)
	c.Market.SecondaryCurrency = strings.ToLower(c.Market.SecondaryCurrency)

	if c.Market.PrimaryTTLMin <= 0 || c.Market.BackupTTLMin <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Market.BackupTTLMin < c.Market.PrimaryTTLMin {
		return fmt.Errorf("backup TTL must be >= primary TTL")
	}

	if c.Scheduler.UpdateIntervalSec < minUpdateInterval {
		slog.Warn("Update interval too short, clamping to avoid upstream rate limit",
			slog.Int("configured_sec", c.Scheduler.UpdateIntervalSec),
			slog.Int("floor_sec", minUpdateInterval))
		c.Scheduler.UpdateIntervalSec = minUpdateInterval
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// Derived durations. Kept as methods so the YAML surface stays in plain
// seconds/minutes like the rest of the pack does.

func (c *Config) RequestTimeout() time.Duration { return secs(c.Upstream.RequestTimeoutSec) }
func (c *Config) MinSpacing() time.Duration     { return secs(c.Upstream.MinSpacingSec) }
func (c *Config) InterCallDelay() time.Duration {
	return time.Duration(c.Upstream.InterCallDelayMS) * time.Millisecond
}
func (c *Config) PrimaryTTL() time.Duration     { return mins(c.Market.PrimaryTTLMin) }
func (c *Config) BackupTTL() time.Duration      { return mins(c.Market.BackupTTLMin) }
func (c *Config) ChartTTL() time.Duration       { return mins(c.Market.ChartTTLMin) }
func (c *Config) ChartBackupTTL() time.Duration { return mins(c.Market.ChartBackupTTLMin) }
func (c *Config) UpdateInterval() time.Duration { return secs(c.Scheduler.UpdateIntervalSec) }
func (c *Config) InitialDelay() time.Duration   { return secs(c.Scheduler.InitialDelaySec) }

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
func mins(n int) time.Duration { return time.Duration(n) * time.Minute }
