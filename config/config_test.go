package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %s", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
market:
  kind: logit-buybox
  grid_size: 15
  mu: 0.5
buybox:
  cache: redis
  oracle_timeout: 2s
  redis:
    addr: redis:6379
    ttl: 1h
  sellers:
    - is_amazon: true
    - is_fba: true
experiment:
  episodes: 20
`
	if err := os.WriteFile(p, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c.Market.Kind != KindBuyBox || c.Market.GridSize != 15 || c.Market.Mu != 0.5 {
		t.Errorf("market section not applied: %+v", c.Market)
	}
	if c.Market.PriceMax != 10 || c.Market.A12 != 10 {
		t.Errorf("defaults lost: %+v", c.Market)
	}
	if c.BuyBox.OracleTimeout != 2*time.Second || c.BuyBox.Redis.TTL != time.Hour {
		t.Errorf("durations not parsed: %+v", c.BuyBox)
	}
	if len(c.BuyBox.Sellers) != 2 || !c.BuyBox.Sellers[0].IsAmazon || !c.BuyBox.Sellers[1].IsFBA {
		t.Errorf("sellers not parsed: %+v", c.BuyBox.Sellers)
	}
	if c.Experiment.Episodes != 20 || c.Experiment.Horizon != 100 {
		t.Errorf("experiment section not applied: %+v", c.Experiment)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PRICING_MARKET_KIND", "sequential")
	t.Setenv("PRICING_EPISODES", "7")
	t.Setenv("PRICING_DATABASE_DSN", "user:pass@tcp(db:3306)/pricing")
	t.Setenv("PRICING_HORIZON", "not-a-number")
	c, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c.Market.Kind != KindSequential || c.Experiment.Episodes != 7 {
		t.Errorf("env overrides not applied: %+v", c)
	}
	if c.Experiment.Horizon != 100 {
		t.Errorf("invalid override should keep the default, got %d", c.Experiment.Horizon)
	}
	if c.Database.DSN == "" {
		t.Errorf("dsn override not applied")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"unknown kind", func(c *Config) { c.Market.Kind = "cournot" }},
		{"unknown cache", func(c *Config) { c.BuyBox.Cache = "memcached" }},
		{"redis without addr", func(c *Config) { c.BuyBox.Cache = "redis"; c.BuyBox.Redis.Addr = "" }},
		{"no episodes", func(c *Config) { c.Experiment.Episodes = 0 }},
		{"no horizon", func(c *Config) { c.Experiment.Horizon = -1 }},
		{"no runs", func(c *Config) { c.Experiment.Runs = 0 }},
		{"zero temperature", func(c *Config) { c.Experiment.Temperature = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.modify(c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
