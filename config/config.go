package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration of the trader process.
type Config struct {
	Scanner Scanner `yaml:"scanner"`
	Trading Trading `yaml:"trading"`
	Risk    Risk    `yaml:"risk"`
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
}

// Scanner controls the candidate intake loop.
type Scanner struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	MinPrice        float64 `yaml:"min_price"`          // lower bound of the entry band
	MaxPrice        float64 `yaml:"max_price"`          // upper bound (stay below near-certainty)
	MinConfidence   float64 `yaml:"min_confidence"`     // implied win probability floor
	MaxSpread       float64 `yaml:"max_spread"`         // best ask - best bid, absolute
	MinLiquidity    float64 `yaml:"min_liquidity"`      // USDC resting in the book
	MinSecondsToEnd int     `yaml:"min_seconds_to_end"` // skip contracts about to resolve
	MaxSecondsToEnd int     `yaml:"max_seconds_to_end"` // skip slow-moving capital
}

// Trading controls position entry/exit execution.
type Trading struct {
	OrderSizeUSDC       float64 `yaml:"order_size_usdc"`
	TargetPct           float64 `yaml:"target_pct"`            // take-profit over entry
	StopPct             float64 `yaml:"stop_pct"`              // stop-loss under entry
	DeadlineSeconds     int     `yaml:"deadline_seconds"`      // forced exit horizon
	PlateauThreshold    float64 `yaml:"plateau_threshold"`     // price level arming the plateau exit
	PlateauTolerance    float64 `yaml:"plateau_tolerance"`     // max drift inside the plateau band
	PlateauSeconds      int     `yaml:"plateau_seconds"`       // how long the band must hold
	MaxExitRetries      int     `yaml:"max_exit_retries"`
	RetryBaseMillis     int     `yaml:"retry_base_millis"`
	RetryMaxMillis      int     `yaml:"retry_max_millis"`
	OrderTimeoutSeconds int     `yaml:"order_timeout_seconds"`
	ReconcileAttempts   int     `yaml:"reconcile_attempts"`    // status queries after an ambiguous timeout
	MaxConcurrentOrders int     `yaml:"max_concurrent_orders"` // in-flight network calls cap
}

// Risk controls the process-wide risk ledger.
type Risk struct {
	MaxOpenPositions     int     `yaml:"max_open_positions"`
	DailyLossLimitUSDC   float64 `yaml:"daily_loss_limit_usdc"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
}

// API holds the venue base URLs.
type API struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// Storage controls where terminal positions and breach events are persisted.
type Storage struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// Log controls logging format and level.
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config file and the .env file if present.
// Env vars override YAML for the keys that support it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval returns the scan cadence as a time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// OrderTimeout returns the per-order network timeout.
func (c *Config) OrderTimeout() time.Duration {
	return time.Duration(c.Trading.OrderTimeoutSeconds) * time.Second
}

// Validate rejects configurations the engine cannot run safely with.
// Called once at startup; the core treats the config as immutable afterwards.
func (c *Config) Validate() error {
	s, t, r := c.Scanner, c.Trading, c.Risk

	if s.MinPrice <= 0 || s.MaxPrice >= 1 || s.MinPrice >= s.MaxPrice {
		return fmt.Errorf("scanner price band [%v, %v] must satisfy 0 < min < max < 1", s.MinPrice, s.MaxPrice)
	}
	if s.MinSecondsToEnd >= s.MaxSecondsToEnd {
		return fmt.Errorf("scanner expiry window [%ds, %ds] is empty", s.MinSecondsToEnd, s.MaxSecondsToEnd)
	}
	if t.OrderSizeUSDC <= 0 {
		return fmt.Errorf("trading order_size_usdc must be positive, got %v", t.OrderSizeUSDC)
	}
	if t.TargetPct <= 0 || t.StopPct <= 0 {
		return fmt.Errorf("trading target_pct/stop_pct must be positive, got %v/%v", t.TargetPct, t.StopPct)
	}
	if r.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk max_open_positions must be positive, got %d", r.MaxOpenPositions)
	}
	if r.DailyLossLimitUSDC <= 0 {
		return fmt.Errorf("risk daily_loss_limit_usdc must be positive, got %v", r.DailyLossLimitUSDC)
	}
	if r.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("risk max_consecutive_losses must be positive, got %d", r.MaxConsecutiveLosses)
	}
	return nil
}

// applyEnvOverrides lets the environment override selected keys.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TRADER_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults fills in sane values for anything the YAML left unset.
// Entry band and exit parameters default to the hourly BTC up/down profile.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 5
	}
	if cfg.Scanner.MinPrice == 0 {
		cfg.Scanner.MinPrice = 0.90
	}
	if cfg.Scanner.MaxPrice == 0 {
		cfg.Scanner.MaxPrice = 0.97
	}
	if cfg.Scanner.MinConfidence == 0 {
		cfg.Scanner.MinConfidence = 0.90
	}
	if cfg.Scanner.MaxSpread == 0 {
		cfg.Scanner.MaxSpread = 0.03
	}
	if cfg.Scanner.MinLiquidity == 0 {
		cfg.Scanner.MinLiquidity = 1000
	}
	if cfg.Scanner.MinSecondsToEnd == 0 {
		cfg.Scanner.MinSecondsToEnd = 60
	}
	if cfg.Scanner.MaxSecondsToEnd == 0 {
		cfg.Scanner.MaxSecondsToEnd = 600
	}
	if cfg.Trading.OrderSizeUSDC <= 0 {
		cfg.Trading.OrderSizeUSDC = 5
	}
	if cfg.Trading.TargetPct == 0 {
		cfg.Trading.TargetPct = 0.04
	}
	if cfg.Trading.StopPct == 0 {
		cfg.Trading.StopPct = 0.10
	}
	if cfg.Trading.DeadlineSeconds == 0 {
		cfg.Trading.DeadlineSeconds = 480
	}
	if cfg.Trading.PlateauThreshold == 0 {
		cfg.Trading.PlateauThreshold = 0.97
	}
	if cfg.Trading.PlateauTolerance == 0 {
		cfg.Trading.PlateauTolerance = 0.005
	}
	if cfg.Trading.PlateauSeconds == 0 {
		cfg.Trading.PlateauSeconds = 30
	}
	if cfg.Trading.MaxExitRetries == 0 {
		cfg.Trading.MaxExitRetries = 3
	}
	if cfg.Trading.RetryBaseMillis == 0 {
		cfg.Trading.RetryBaseMillis = 500
	}
	if cfg.Trading.RetryMaxMillis == 0 {
		cfg.Trading.RetryMaxMillis = 8000
	}
	if cfg.Trading.OrderTimeoutSeconds == 0 {
		cfg.Trading.OrderTimeoutSeconds = 10
	}
	if cfg.Trading.ReconcileAttempts == 0 {
		cfg.Trading.ReconcileAttempts = 3
	}
	if cfg.Trading.MaxConcurrentOrders == 0 {
		cfg.Trading.MaxConcurrentOrders = 4
	}
	if cfg.Risk.MaxOpenPositions == 0 {
		cfg.Risk.MaxOpenPositions = 3
	}
	if cfg.Risk.DailyLossLimitUSDC == 0 {
		cfg.Risk.DailyLossLimitUSDC = 25
	}
	if cfg.Risk.MaxConsecutiveLosses == 0 {
		cfg.Risk.MaxConsecutiveLosses = 3
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "trader.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
