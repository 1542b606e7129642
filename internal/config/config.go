package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tradesim service.
type Config struct {
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Trading Trading `yaml:"trading"`
	Logging Logging `yaml:"logging"`
}

// Storage holds paths for data persistence and research exports.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	ExportDir  string `yaml:"export_dir"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Trading defines account and execution parameters.
type Trading struct {
	StartingCash    string `yaml:"starting_cash"`
	PlatformType    string `yaml:"platform_type"` // "gamified" or "traditional"
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	EventBufferSize int    `yaml:"event_buffer_size"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StartingCashDecimal parses Trading.StartingCash as a currency amount.
// An empty value falls back to 100000.00.
func (c *Config) StartingCashDecimal() (decimal.Decimal, error) {
	if c.Trading.StartingCash == "" {
		return decimal.New(10000000, -2), nil
	}
	d, err := decimal.NewFromString(c.Trading.StartingCash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing starting_cash %q: %w", c.Trading.StartingCash, err)
	}
	return d.Round(2), nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a usable configuration when no YAML file is present.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("EXPORT_DIR"); v != "" {
		cfg.Storage.ExportDir = v
	}

	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if v := os.Getenv("STARTING_CASH"); v != "" {
		cfg.Trading.StartingCash = v
	}
	if v := os.Getenv("PLATFORM_TYPE"); v != "" {
		cfg.Trading.PlatformType = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// applyDefaults fills in zero-valued fields that have sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "tradesim.db"
	}
	if cfg.Storage.ExportDir == "" {
		cfg.Storage.ExportDir = "export"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5001
	}
	if cfg.Trading.PlatformType == "" {
		cfg.Trading.PlatformType = "traditional"
	}
	if cfg.Trading.RateLimitPerMin == 0 {
		cfg.Trading.RateLimitPerMin = 120
	}
	if cfg.Trading.EventBufferSize == 0 {
		cfg.Trading.EventBufferSize = 1024
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
