package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
account:
  currency: USD
  balance: 25000
  max_trades: 3
symbols: [EURUSD, US500]
detector:
  ema_length: 50
  gap_window: 50
  bar_limit: 500
  pip_threshold: 8
  atr_window: 14
  rsi_window: 14
runner:
  interval: 30s
  candle_count: 200
journal:
  type: csv
  trades_file: ./trades.csv
server:
  webhook_addr: ":8081"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 25000.0, cfg.Account.Balance)
	assert.Equal(t, 3, cfg.Account.MaxTrades)
	assert.Equal(t, []string{"EURUSD", "US500"}, cfg.Symbols)
	assert.Equal(t, 50, cfg.Detector.EMALength)
	assert.Equal(t, 8.0, cfg.Detector.PipThreshold)
	assert.Equal(t, "csv", cfg.Journal.Type)
	assert.Equal(t, ":8081", cfg.Server.WebhookAddr)

	interval, err := cfg.Runner.ParseInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, interval)
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
account:
  currency: USD
  balance: 5000
symbols: [GBPUSD]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Detector.EMALength)
	assert.Equal(t, "1m", cfg.Runner.Interval)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Account.Balance = 42000
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42000.0, loaded.Account.Balance)
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no balance", func(c *Config) { c.Account.Balance = 0 }},
		{"no currency", func(c *Config) { c.Account.Currency = "" }},
		{"negative max trades", func(c *Config) { c.Account.MaxTrades = -1 }},
		{"no symbols", func(c *Config) { c.Symbols = nil }},
		{"unknown symbol", func(c *Config) { c.Symbols = []string{"NOPE"} }},
		{"zero ema", func(c *Config) { c.Detector.EMALength = 0 }},
		{"zero bar limit", func(c *Config) { c.Detector.BarLimit = 0 }},
		{"bad interval", func(c *Config) { c.Runner.Interval = "soon" }},
		{"zero candle count", func(c *Config) { c.Runner.CandleCount = 0 }},
		{"bad journal type", func(c *Config) { c.Journal.Type = "parquet" }},
		{"csv without file", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }},
		{"sqlite without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }},
		{"no webhook addr", func(c *Config) { c.Server.WebhookAddr = "" }},
		{"inverted quote seed", func(c *Config) { c.Quotes = []QuoteSeed{{Symbol: "EURUSD", Bid: 1.1, Ask: 1.0}} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsAliasSymbols(t *testing.T) {
	cfg := Default()
	cfg.Symbols = []string{"US500", "USOIL"}
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile("/does/not/exist.yaml")
	assert.Error(t, err)
}
