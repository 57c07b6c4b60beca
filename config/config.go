package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Arbflow   ArbflowConfig   `yaml:"arbflow"`
	Data      DataConfig      `yaml:"data"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Execution ExecutionConfig `yaml:"execution"`
	Writer    WriterConfig    `yaml:"writer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ArbflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// DataConfig describes the historical data set a backtest replays.
type DataConfig struct {
	Root       string   `yaml:"root"`        // base path holding per-market tick directories and market_index.csv
	Symbols    []string `yaml:"symbols"`     // pure symbols, e.g. ["BTC", "AXS"]
	StartDate  string   `yaml:"start_date"`  // "2021-10-01"
	EndDate    string   `yaml:"end_date"`    // inclusive
	IntervalMs int64    `yaml:"interval_ms"` // bar width, e.g. 250
	RatesFile  string   `yaml:"rates_file"`  // defaults to market_index.csv under root
}

// StrategyConfig carries the signal parameters. Defaults reproduce the
// original upbit-follow strategy.
type StrategyConfig struct {
	PriceWindow       int     `yaml:"price_window"`         // quote-market window capacity
	CounterWindow     int     `yaml:"counter_window"`       // counter-market window capacity
	CounterRiseRatio  float64 `yaml:"counter_rise_ratio"`   // counter market must rise above mean by this factor
	PriceStayRatio    float64 `yaml:"price_stay_ratio"`     // quote market must stay below mean times this factor
	PremiumExitRatio  float64 `yaml:"premium_exit_ratio"`   // sell when premium exceeds entry premium times this
	HoldSeconds       int64   `yaml:"hold_seconds"`         // forced exit after this much simulated time
	OrderAmount       float64 `yaml:"order_amount"`         // quote-currency notional per entry
	OrderAmountIsFull bool    `yaml:"order_amount_is_full"` // size entries by full balance instead of a fixed amount
}

type LedgerConfig struct {
	InitialBalance float64 `yaml:"initial_balance"`
	MaxOrderCount  int     `yaml:"max_order_count"`
	LotPrecision   int32   `yaml:"lot_precision"` // decimal places of the quantity lot
}

// ExecutionConfig configures the live order-execution collaborator. Unused
// by pure backtests; the simulated ledger fills orders locally.
type ExecutionConfig struct {
	APIKey            string        `yaml:"api_key"`
	APISecret         string        `yaml:"api_secret"`
	Endpoint          string        `yaml:"endpoint"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond int           `yaml:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size"`
	PollInterval      time.Duration `yaml:"poll_interval"`
}

type WriterConfig struct {
	OutputDir  string   `yaml:"output_dir"`
	WriteBars  bool     `yaml:"write_bars"`
	WriteOrder bool     `yaml:"write_orders"`
	S3         S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// DateRange parses the configured start and end dates as midnight UTC.
func (d DataConfig) DateRange() (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", d.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", d.StartDate, err)
	}
	end, err := time.ParseInLocation("2006-01-02", d.EndDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", d.EndDate, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date %s before start_date %s", d.EndDate, d.StartDate)
	}
	return start, end, nil
}

// Interval returns the bar width as a duration.
func (d DataConfig) Interval() time.Duration {
	return time.Duration(d.IntervalMs) * time.Millisecond
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Strategy: StrategyConfig{
			PriceWindow:      10,
			CounterWindow:    9,
			CounterRiseRatio: 1.005,
			PriceStayRatio:   1.001,
			PremiumExitRatio: 1.1,
			HoldSeconds:      120,
			OrderAmount:      100000,
		},
		Ledger: LedgerConfig{
			InitialBalance: 100000,
			MaxOrderCount:  3,
			LotPrecision:   3,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Writer.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Writer.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Writer.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Writer.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Writer.S3.Bucket = strings.TrimSpace(v)
		}
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		config.Execution.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		config.Execution.APISecret = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	// A non-positive interval can never produce a valid bar sequence, so
	// this is the one fatal data error.
	if cfg.Data.IntervalMs <= 0 {
		return fmt.Errorf("data.interval_ms must be positive, got %d", cfg.Data.IntervalMs)
	}
	if len(cfg.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols must not be empty")
	}
	if _, _, err := cfg.Data.DateRange(); err != nil {
		return err
	}
	if cfg.Strategy.PriceWindow < 2 || cfg.Strategy.CounterWindow < 2 {
		return fmt.Errorf("strategy windows must hold at least 2 samples")
	}
	if cfg.Strategy.HoldSeconds <= 0 {
		return fmt.Errorf("strategy.hold_seconds must be positive")
	}
	if cfg.Ledger.MaxOrderCount <= 0 {
		return fmt.Errorf("ledger.max_order_count must be positive")
	}
	if cfg.Ledger.LotPrecision < 0 {
		return fmt.Errorf("ledger.lot_precision must not be negative")
	}
	if cfg.Writer.S3.Enabled && cfg.Writer.S3.Bucket == "" {
		return fmt.Errorf("writer.s3.bucket required when s3 upload is enabled")
	}
	return nil
}
