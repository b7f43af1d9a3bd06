package config

import (
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("Failed to close config: %v", err)
	}
	return tmpFile.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
global:
  log_level: "debug"
  metrics_port: 9090
  api_port: 8088
  prefs_path: "/tmp/aida_prefs.json"
  price_ttl_sec: 15
  valuation_interval_sec: 60

feed:
  symbol: "BTCUSDT"
  interval: "5"

portfolio:
  quote_currency: "USDT"
  funding_balance: 2500
  unified_balance: 7500
  holdings:
    BTC: 0.05

alerts:
  - symbol: "BTCUSDT"
    direction: "above"
    threshold: 120000
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig err: %v", err)
	}

	if cfg.Feed.Symbol != "BTCUSDT" || cfg.Feed.Interval != "5" {
		t.Fatalf("unexpected feed config: %+v", cfg.Feed)
	}
	if cfg.Global.MetricsPort != 9090 || cfg.Global.PriceTTLSec != 15 {
		t.Fatalf("unexpected global config: %+v", cfg.Global)
	}
	if cfg.Portfolio.Holdings["BTC"] != 0.05 {
		t.Fatalf("unexpected holdings: %+v", cfg.Portfolio.Holdings)
	}
	if len(cfg.Alerts) != 1 || cfg.Alerts[0].Threshold != 120000 {
		t.Fatalf("unexpected alerts: %+v", cfg.Alerts)
	}
	if GetConfig() != cfg {
		t.Fatalf("GetConfig should return loaded config")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, `
feed:
  symbol: "ETHUSDT"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig err: %v", err)
	}

	if cfg.Feed.Interval != "1" {
		t.Fatalf("default interval = %q, want 1", cfg.Feed.Interval)
	}
	if cfg.Global.PriceTTLSec != 10 || cfg.Global.ValuationIntervalSec != 30 {
		t.Fatalf("defaults not applied: %+v", cfg.Global)
	}
	if cfg.Global.PrefsPath != "prefs.json" {
		t.Fatalf("default prefs path = %q", cfg.Global.PrefsPath)
	}
	if cfg.Portfolio.QuoteCurrency != "USDT" {
		t.Fatalf("default quote = %q", cfg.Portfolio.QuoteCurrency)
	}
}

func TestLoadConfigMissingSymbol(t *testing.T) {
	path := writeTempConfig(t, `
global:
  metrics_port: 9090
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for missing feed.symbol")
	}
}

func TestLoadConfigBadInterval(t *testing.T) {
	path := writeTempConfig(t, `
feed:
  symbol: "BTCUSDT"
  interval: "7"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for invalid interval")
	}
}

func TestLoadConfigNegativeBalance(t *testing.T) {
	path := writeTempConfig(t, `
feed:
  symbol: "BTCUSDT"
portfolio:
  funding_balance: -100
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for negative balance")
	}
}

func TestLoadConfigBadAlertRule(t *testing.T) {
	path := writeTempConfig(t, `
feed:
  symbol: "BTCUSDT"
alerts:
  - symbol: "BTCUSDT"
    direction: "sideways"
    threshold: 100
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for invalid alert direction")
	}
}

func TestDurationGetters(t *testing.T) {
	path := writeTempConfig(t, `
global:
  price_ttl_sec: 20
  valuation_interval_sec: 45
  alert_cooldown_sec: 300
feed:
  symbol: "BTCUSDT"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig err: %v", err)
	}
	if cfg.GetPriceTTL().Seconds() != 20 {
		t.Fatalf("price ttl = %v", cfg.GetPriceTTL())
	}
	if cfg.GetValuationInterval().Seconds() != 45 {
		t.Fatalf("valuation interval = %v", cfg.GetValuationInterval())
	}
	if cfg.GetAlertCooldown().Seconds() != 300 {
		t.Fatalf("alert cooldown = %v", cfg.GetAlertCooldown())
	}
}
