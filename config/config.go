package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/wickbot/market"
	"github.com/rustyeddy/wickbot/signal"
)

// Config represents the complete bot configuration
type Config struct {
	Account  AccountConfig `json:"account" yaml:"account"`
	Symbols  []string      `json:"symbols" yaml:"symbols"`
	Detector signal.Config `json:"detector" yaml:"detector"`
	Runner   RunnerConfig  `json:"runner" yaml:"runner"`
	Journal  JournalConfig `json:"journal" yaml:"journal"`
	Server   ServerConfig  `json:"server" yaml:"server"`
	Quotes   []QuoteSeed   `json:"quotes,omitempty" yaml:"quotes,omitempty"`
}

// QuoteSeed sets the starting bid and ask for a symbol on the paper
// broker
type QuoteSeed struct {
	Symbol string  `json:"symbol" yaml:"symbol"`
	Bid    float64 `json:"bid" yaml:"bid"`
	Ask    float64 `json:"ask" yaml:"ask"`
}

// AccountConfig contains paper account initialization parameters
type AccountConfig struct {
	Currency  string  `json:"currency" yaml:"currency"`
	Balance   float64 `json:"balance" yaml:"balance"`
	MaxTrades int     `json:"max_trades,omitempty" yaml:"max_trades,omitempty"`
}

// RunnerConfig controls the polling evaluation loop
type RunnerConfig struct {
	Interval    string `json:"interval" yaml:"interval"` // e.g. "1m", "30s"
	CandleCount int    `json:"candle_count" yaml:"candle_count"`
}

// ParseInterval converts the interval string to time.Duration
func (r RunnerConfig) ParseInterval() (time.Duration, error) {
	if r.Interval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(r.Interval)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ServerConfig contains the listen addresses for the webhook ingress
// and the metrics endpoint
type ServerConfig struct {
	WebhookAddr string `json:"webhook_addr" yaml:"webhook_addr"`
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Account.MaxTrades < 0 {
		return fmt.Errorf("account.max_trades must not be negative")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	for _, s := range c.Symbols {
		resolved := market.ResolveSymbol(s)
		if _, ok := market.Instruments[resolved]; !ok {
			return fmt.Errorf("unknown symbol: %s", s)
		}
	}
	if c.Detector.EMALength <= 0 {
		return fmt.Errorf("detector.ema_length must be positive")
	}
	if c.Detector.GapWindow <= 0 {
		return fmt.Errorf("detector.gap_window must be positive")
	}
	if c.Detector.BarLimit <= 0 {
		return fmt.Errorf("detector.bar_limit must be positive")
	}
	if c.Detector.PipThreshold < 0 {
		return fmt.Errorf("detector.pip_threshold must not be negative")
	}
	if _, err := c.Runner.ParseInterval(); err != nil {
		return fmt.Errorf("runner.interval: %w", err)
	}
	if c.Runner.CandleCount <= 0 {
		return fmt.Errorf("runner.candle_count must be positive")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" {
			return fmt.Errorf("journal.trades_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if c.Server.WebhookAddr == "" {
		return fmt.Errorf("server.webhook_addr is required")
	}
	for _, q := range c.Quotes {
		if q.Symbol == "" {
			return fmt.Errorf("quote seed missing symbol")
		}
		if q.Bid <= 0 || q.Ask <= q.Bid {
			return fmt.Errorf("quote seed for %s: ask must be greater than bid and both positive", q.Symbol)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency: "USD",
			Balance:  10000,
		},
		Symbols:  []string{"EURUSD"},
		Detector: signal.DefaultConfig(),
		Runner: RunnerConfig{
			Interval:    "1m",
			CandleCount: 100,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./wickbot.db",
		},
		Server: ServerConfig{
			WebhookAddr: ":8080",
			MetricsAddr: ":9090",
		},
		Quotes: []QuoteSeed{
			{Symbol: "EURUSD", Bid: 1.0849, Ask: 1.0851},
		},
	}
}
