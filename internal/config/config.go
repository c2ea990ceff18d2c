// Package config defines the top-level configuration for the bundle bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BUNDLEBOT_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Wallet     WalletConfig     `toml:"wallet"`
	Trading    TradingConfig    `toml:"trading"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Stats      StatsConfig      `toml:"stats"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds CLOB endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost string `toml:"clob_host"`
	WsHost   string `toml:"ws_host"`
	ChainID  int    `toml:"chain_id"`
	// Exchange overrides the verifying contract for order signatures.
	// Empty selects the Polygon mainnet CTF Exchange.
	Exchange string `toml:"exchange"`
	// RateLimitRPS caps outgoing CLOB requests per second; 0 disables.
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
}

// WalletConfig holds the trading wallet credentials. Only live mode needs
// any of this.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// TradingConfig holds the bundle strategy and execution parameters. Fee and
// edge parameters are basis points; sizes and prices are decimal strings so
// no precision is lost in transit.
type TradingConfig struct {
	FeeBps        int64  `toml:"fee_bps"`
	MinEdgeBps    int64  `toml:"min_edge_bps"`
	WarnEdgeBps   int64  `toml:"warn_edge_bps"`
	MaxBundleSize string `toml:"max_bundle_size"`

	// Optional per-leg filters; empty disables them.
	MaxLegSpread string `toml:"max_leg_spread"`
	MinLegSize   string `toml:"min_leg_size"`

	// LegTimeout bounds one fill-or-kill submission in live mode.
	LegTimeout duration `toml:"leg_timeout"`

	// Cooldown throttles repeat bundles per market; 0 disables. Needs Redis.
	Cooldown duration `toml:"cooldown"`
}

// SchedulerConfig holds the cycle cadence and snapshot fan-out parameters.
type SchedulerConfig struct {
	SnapshotInterval duration `toml:"snapshot_interval"`
	PollInterval     duration `toml:"poll_interval"`
	CatalogRefresh   duration `toml:"catalog_refresh"`
	MaxMarkets       int      `toml:"max_markets"`
	BooksChunkSize   int      `toml:"books_chunk_size"`
	BooksConcurrency int      `toml:"books_concurrency"`
}

// StatsConfig holds telemetry output parameters.
type StatsConfig struct {
	// LogEverySec is the stats line cadence; 0 disables periodic stats.
	LogEverySec int64 `toml:"log_every_sec"`
	// JSONLPath appends one stats snapshot per line; empty disables.
	JSONLPath string `toml:"jsonl_path"`
	// Archive uploads each snapshot to S3; requires the s3 section.
	Archive bool `toml:"archive"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	ReportStream string `toml:"report_stream"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	KeyPrefix      string `toml:"key_prefix"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// duration wraps time.Duration so the TOML decoder accepts strings like
// "5m" or "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the values from
// config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:       "https://clob.polymarket.com",
			WsHost:         "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ChainID:        137,
			RateLimitRPS:   8,
			RateLimitBurst: 16,
		},
		Trading: TradingConfig{
			FeeBps:        0,
			MinEdgeBps:    30,
			WarnEdgeBps:   10,
			MaxBundleSize: "25",
			LegTimeout:    duration{10 * time.Second},
		},
		Scheduler: SchedulerConfig{
			SnapshotInterval: duration{3 * time.Second},
			PollInterval:     duration{500 * time.Millisecond},
			CatalogRefresh:   duration{10 * time.Minute},
			MaxMarkets:       200,
			BooksChunkSize:   50,
			BooksConcurrency: 4,
		},
		Stats: StatsConfig{
			LogEverySec: 30,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			ReportStream: "bundlebot:reports",
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         true,
			ForcePathStyle: true,
			KeyPrefix:      "bundlebot",
		},
		Mode:     "observe",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"observe": true,
	"live":    true,
	"watch":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: observe, live, watch)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Mode == "watch" && c.Polymarket.WsHost == "" {
		errs = append(errs, "polymarket: ws_host is required for watch mode")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}

	// Wallet only matters when we actually trade.
	if c.Mode == "live" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for live mode")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
		if c.Trading.LegTimeout.Duration <= 0 {
			errs = append(errs, "trading: leg_timeout must be positive for live mode")
		}
	}

	// Trading
	if c.Trading.FeeBps < 0 {
		errs = append(errs, "trading: fee_bps must be >= 0")
	}
	if c.Trading.MinEdgeBps <= 0 {
		errs = append(errs, "trading: min_edge_bps must be > 0")
	}
	if c.Trading.WarnEdgeBps < 0 {
		errs = append(errs, "trading: warn_edge_bps must be >= 0")
	}
	if v, err := decimal.NewFromString(c.Trading.MaxBundleSize); err != nil || !v.IsPositive() {
		errs = append(errs, fmt.Sprintf("trading: max_bundle_size must be a positive decimal, got %q", c.Trading.MaxBundleSize))
	}
	if c.Trading.MaxLegSpread != "" {
		if v, err := decimal.NewFromString(c.Trading.MaxLegSpread); err != nil || v.IsNegative() {
			errs = append(errs, fmt.Sprintf("trading: max_leg_spread must be a non-negative decimal, got %q", c.Trading.MaxLegSpread))
		}
	}
	if c.Trading.MinLegSize != "" {
		if v, err := decimal.NewFromString(c.Trading.MinLegSize); err != nil || v.IsNegative() {
			errs = append(errs, fmt.Sprintf("trading: min_leg_size must be a non-negative decimal, got %q", c.Trading.MinLegSize))
		}
	}
	if c.Trading.Cooldown.Duration > 0 && !c.Redis.Enabled {
		errs = append(errs, "trading: cooldown requires redis.enabled")
	}

	// Scheduler
	if c.Scheduler.SnapshotInterval.Duration <= 0 {
		errs = append(errs, "scheduler: snapshot_interval must be positive")
	}
	if c.Scheduler.PollInterval.Duration <= 0 {
		errs = append(errs, "scheduler: poll_interval must be positive")
	}
	if c.Scheduler.CatalogRefresh.Duration <= 0 {
		errs = append(errs, "scheduler: catalog_refresh must be positive")
	}
	if c.Scheduler.MaxMarkets < 1 {
		errs = append(errs, "scheduler: max_markets must be >= 1")
	}
	if c.Scheduler.BooksChunkSize < 1 {
		errs = append(errs, "scheduler: books_chunk_size must be >= 1")
	}
	if c.Scheduler.BooksConcurrency < 1 {
		errs = append(errs, "scheduler: books_concurrency must be >= 1")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.ReportStream == "" {
			errs = append(errs, "redis: report_stream must not be empty when enabled")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}
	if c.Stats.Archive && !c.S3.Enabled {
		errs = append(errs, "stats: archive requires s3.enabled")
	}

	// Notify — Telegram needs both halves.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
