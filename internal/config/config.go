// Package config loads Vantage's runtime configuration: numeric defaults
// for max order size, per-symbol position limits, tick size, and reporting
// cadences, plus the market-data adapter's API key, with optional YAML
// file and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// PositionLimit is a per-symbol absolute position cap.
type PositionLimit struct {
	Symbol string `mapstructure:"symbol"`
	Limit  string `mapstructure:"limit"`
}

// Config is Vantage's top-level runtime configuration.
type Config struct {
	MaxOrderSize   string          `mapstructure:"max_order_size"`
	TickSize       string          `mapstructure:"tick_size"`
	PositionLimits []PositionLimit `mapstructure:"position_limits"`

	MarketData MarketDataConfig `mapstructure:"market_data"`
	Reporting  ReportingConfig  `mapstructure:"reporting"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// MarketDataConfig controls the intraday quote adapter.
type MarketDataConfig struct {
	Symbol   string        `mapstructure:"symbol"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Interval time.Duration `mapstructure:"interval"`
}

// ReportingConfig controls the read-only observer cadences.
type ReportingConfig struct {
	SpreadInterval     time.Duration `mapstructure:"spread_interval"`
	PositionInterval   time.Duration `mapstructure:"position_interval"`
	MarketDataInterval time.Duration `mapstructure:"market_data_interval"`
	MetricsInterval    time.Duration `mapstructure:"metrics_interval"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`
}

// GatewayConfig controls the TCP order-entry gateway.
type GatewayConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Workers    int    `mapstructure:"workers"`
}

// LoggingConfig controls zerolog's output level and format.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from path (if non-empty and present) layered
// over Vantage's built-in defaults, then applies VANTAGE_*-prefixed
// environment variable overrides. ALPHA_VANTAGE_API_KEY (no prefix) always
// takes precedence for the market-data key.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VANTAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		cfg.MarketData.APIKey = key
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_order_size", "1000000")
	v.SetDefault("tick_size", "0.01")
	v.SetDefault("position_limits", []map[string]string{
		{"symbol": "AAPL", "limit": "10000"},
	})

	v.SetDefault("market_data.symbol", "AAPL")
	v.SetDefault("market_data.base_url", "https://www.alphavantage.co")
	v.SetDefault("market_data.interval", 60*time.Second)

	v.SetDefault("reporting.spread_interval", 5*time.Second)
	v.SetDefault("reporting.position_interval", 10*time.Second)
	v.SetDefault("reporting.market_data_interval", 30*time.Second)
	v.SetDefault("reporting.metrics_interval", 60*time.Second)
	v.SetDefault("reporting.metrics_addr", ":9090")

	v.SetDefault("gateway.listen_addr", ":7443")
	v.SetDefault("gateway.workers", 8)

	v.SetDefault("logging.level", "info")
}

// MaxOrderSizeDecimal parses MaxOrderSize, returning the parse error on
// malformed input.
func (c *Config) MaxOrderSizeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.MaxOrderSize)
}

// TickSizeDecimal parses TickSize.
func (c *Config) TickSizeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.TickSize)
}
