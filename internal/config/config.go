package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/traderplus/internal/currency"
)

// Trader holds all configuration for the trader service.
type Trader struct {
	LogLevel string `yaml:"log_level"`

	// HTTP admin and preview API
	HTTP HTTPConfig `yaml:"http"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Catalog bootstrap, applied only while the catalog is empty.
	SeedPath string `yaml:"seed_path"`

	// Stock rotation period; 0 disables rotation.
	RotationInterval time.Duration `yaml:"rotation_interval"`

	Currencies []currency.Denomination `yaml:"currencies"`
	Traders    []TraderEntry           `yaml:"traders"`
}

// HTTPConfig holds the HTTP listener settings.
type HTTPConfig struct {
	BindAddress     string        `yaml:"bind_address"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.BindAddress, h.Port)
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// TraderEntry declares an NPC trader and the currency classes it accepts.
type TraderEntry struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Currencies []string `yaml:"currencies"`
}

// DefaultTrader returns Trader config with sensible defaults.
func DefaultTrader() Trader {
	return Trader{
		LogLevel: "info",
		HTTP: HTTPConfig{
			BindAddress:     "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "traderplus",
			Password: "traderplus",
			DBName:   "traderplus",
			SSLMode:  "disable",
		},
		SeedPath:         "config/catalog.yaml",
		RotationInterval: time.Hour,
		Currencies: []currency.Denomination{
			{ClassName: "MoneyRuble100", Value: 100},
			{ClassName: "MoneyRuble50", Value: 50},
			{ClassName: "MoneyRuble10", Value: 10},
			{ClassName: "MoneyRuble5", Value: 5},
			{ClassName: "MoneyRuble1", Value: 1},
		},
		Traders: []TraderEntry{
			{
				ID:         "trader_general",
				Name:       "General Goods",
				Currencies: []string{"MoneyRuble100", "MoneyRuble50", "MoneyRuble10", "MoneyRuble5", "MoneyRuble1"},
			},
		},
	}
}

// LoadTrader loads trader config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadTrader(path string) (Trader, error) {
	cfg := DefaultTrader()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Trader) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port %d out of range", c.HTTP.Port)
	}
	if c.RotationInterval < 0 {
		return errors.New("rotation_interval must not be negative")
	}

	known := make(map[string]bool, len(c.Currencies))
	for _, d := range c.Currencies {
		known[d.ClassName] = true
	}
	seen := make(map[string]bool, len(c.Traders))
	for _, t := range c.Traders {
		if t.ID == "" {
			return errors.New("trader with empty id")
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate trader %s", t.ID)
		}
		seen[t.ID] = true
		for _, cur := range t.Currencies {
			if !known[cur] {
				return fmt.Errorf("trader %s: unknown currency %s", t.ID, cur)
			}
		}
	}
	return nil
}

// SlogLevel converts LogLevel to slog.Level.
// Defaults to Info if invalid or empty.
func (c Trader) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
