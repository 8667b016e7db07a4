package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not fail: %v", err)
	}
	if cfg.Market.QuoteCurrency != "usd" || cfg.Market.SecondaryCurrency != "brl" {
		t.Errorf("unexpected default currencies: %s/%s", cfg.Market.QuoteCurrency, cfg.Market.SecondaryCurrency)
	}
	if cfg.Scheduler.UpdateIntervalSec != 300 {
		t.Errorf("expected default interval 300, got %d", cfg.Scheduler.UpdateIntervalSec)
	}
}

func TestLoadConfig_YamlAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
market:
  quote_currency: eur
scheduler:
  update_interval_sec: 600
http:
  port: 9090
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CRYPTODASH_PORT", "7070")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Market.QuoteCurrency != "eur" {
		t.Errorf("yaml override lost: %s", cfg.Market.QuoteCurrency)
	}
	if cfg.Scheduler.UpdateIntervalSec != 600 {
		t.Errorf("yaml interval lost: %d", cfg.Scheduler.UpdateIntervalSec)
	}
	if cfg.HTTP.Port != 7070 {
		t.Errorf("env must override yaml, got port %d", cfg.HTTP.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("clamps short interval", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Scheduler.UpdateIntervalSec = 30
		if err := cfg.Validate(); err != nil {
			t.Fatalf("short interval should clamp, not fail: %v", err)
		}
		if cfg.Scheduler.UpdateIntervalSec != 120 {
			t.Errorf("expected clamp to 120, got %d", cfg.Scheduler.UpdateIntervalSec)
		}
	})

	t.Run("normalizes currency case", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Market.QuoteCurrency = "EUR"
		if err := cfg.Validate(); err != nil {
			t.Fatal(err)
		}
		if cfg.Market.QuoteCurrency != "eur" {
			t.Errorf("expected lowercased currency, got %s", cfg.Market.QuoteCurrency)
		}
	})

	t.Run("rejects bad values", func(t *testing.T) {
		bad := []func(*Config){
			func(c *Config) { c.Upstream.BaseURL = "ftp://example.com" },
			func(c *Config) { c.Market.QuoteCurrency = "dollars" },
			func(c *Config) { c.Market.BackupTTLMin = 1 },
			func(c *Config) { c.HTTP.Port = 0 },
			func(c *Config) { c.Logging.Level = "verbose" },
			func(c *Config) { c.Upstream.PerPage = 0 },
		}
		for i, mutate := range bad {
			cfg := DefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("case %d: expected validation error", i)
			}
		}
	})
}
