package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTrader_MissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadTrader(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTrader(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadTrader_Overrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "traderplus.yaml")
	yml := `
log_level: debug
http:
  port: 9090
rotation_interval: 15m
database:
  host: db
currencies:
  - class_name: Coin
    value: 1
traders:
  - id: trader_coins
    name: Coins only
    currencies: [Coin]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := LoadTrader(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.Equal(t, 15*time.Minute, cfg.RotationInterval)
	assert.Equal(t, "postgres://traderplus:traderplus@db:5432/traderplus?sslmode=disable", cfg.Database.DSN())
	require.Len(t, cfg.Traders, 1)
	assert.Equal(t, []string{"Coin"}, cfg.Traders[0].Currencies)
}

func TestLoadTrader_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yml  string
	}{
		{"bad yaml", "http: [1"},
		{"port", "http:\n  port: 70000\n"},
		{"unknown currency", "traders:\n  - id: t\n    currencies: [Gem]\n"},
		{"duplicate trader", "traders:\n  - id: t\n  - id: t\n"},
		{"negative rotation", "rotation_interval: -1s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0o600))
			_, err := LoadTrader(path)
			assert.Error(t, err)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	} {
		assert.Equal(t, want, Trader{LogLevel: in}.SlogLevel(), in)
	}
}
