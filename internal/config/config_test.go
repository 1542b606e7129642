package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func decimalMustParse(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parsing decimal %q: %v", s, err)
	}
	return d
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradesim.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
storage:
  sqlite_path: "/tmp/tradesim/tradesim.db"
  export_dir: "/tmp/tradesim/export"
server:
  host: "0.0.0.0"
  port: 5001
trading:
  starting_cash: "100000.00"
  platform_type: "gamified"
  rate_limit_per_min: 60
  event_buffer_size: 512
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.SQLitePath != "/tmp/tradesim/tradesim.db" {
		t.Errorf("SQLitePath = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("Port = %d, want 5001", cfg.Server.Port)
	}
	if cfg.Trading.PlatformType != "gamified" {
		t.Errorf("PlatformType = %q, want gamified", cfg.Trading.PlatformType)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Addr() != "0.0.0.0:5001" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}

	cash, err := cfg.StartingCashDecimal()
	if err != nil {
		t.Fatalf("StartingCashDecimal: %v", err)
	}
	if cash.String() != "100000" && cash.String() != "100000.00" {
		t.Errorf("StartingCashDecimal = %s, want 100000.00", cash)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 5001 {
		t.Errorf("default Port = %d, want 5001", cfg.Server.Port)
	}
	if cfg.Storage.SQLitePath != "tradesim.db" {
		t.Errorf("default SQLitePath = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Trading.PlatformType != "traditional" {
		t.Errorf("default PlatformType = %q", cfg.Trading.PlatformType)
	}
	if cfg.Trading.RateLimitPerMin != 120 {
		t.Errorf("default RateLimitPerMin = %d", cfg.Trading.RateLimitPerMin)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Level = %q", cfg.Logging.Level)
	}

	cash, err := cfg.StartingCashDecimal()
	if err != nil {
		t.Fatalf("StartingCashDecimal: %v", err)
	}
	if !cash.Equal(decimalMustParse(t, "100000.00")) {
		t.Errorf("default starting cash = %s, want 100000.00", cash)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  sqlite_path: "from-yaml.db"
trading:
  starting_cash: "100000.00"
`)

	t.Setenv("SQLITE_PATH", "from-env.db")
	t.Setenv("STARTING_CASH", "50000.00")
	t.Setenv("PORT", "8080")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.SQLitePath != "from-env.db" {
		t.Errorf("SQLitePath = %q, env override not applied", cfg.Storage.SQLitePath)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, env override not applied", cfg.Server.Port)
	}

	cash, err := cfg.StartingCashDecimal()
	if err != nil {
		t.Fatalf("StartingCashDecimal: %v", err)
	}
	if !cash.Equal(decimalMustParse(t, "50000.00")) {
		t.Errorf("starting cash = %s, want 50000.00", cash)
	}
}

func TestStartingCashInvalid(t *testing.T) {
	cfg := Default()
	cfg.Trading.StartingCash = "not-a-number"
	if _, err := cfg.StartingCashDecimal(); err == nil {
		t.Fatal("expected error for malformed starting_cash")
	}
}
