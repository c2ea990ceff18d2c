package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BUNDLEBOT_* environment variable overrides,
// and returns the final Config. The result has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; missing files are fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BUNDLEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "BUNDLEBOT_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "BUNDLEBOT_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "BUNDLEBOT_POLYMARKET_CHAIN_ID")
	setStr(&cfg.Polymarket.Exchange, "BUNDLEBOT_POLYMARKET_EXCHANGE")
	setFloat64(&cfg.Polymarket.RateLimitRPS, "BUNDLEBOT_POLYMARKET_RATE_LIMIT_RPS")
	setInt(&cfg.Polymarket.RateLimitBurst, "BUNDLEBOT_POLYMARKET_RATE_LIMIT_BURST")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "BUNDLEBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "BUNDLEBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "BUNDLEBOT_WALLET_KEY_PASSWORD")

	// ── Trading ──
	setInt64(&cfg.Trading.FeeBps, "BUNDLEBOT_TRADING_FEE_BPS")
	setInt64(&cfg.Trading.MinEdgeBps, "BUNDLEBOT_TRADING_MIN_EDGE_BPS")
	setInt64(&cfg.Trading.WarnEdgeBps, "BUNDLEBOT_TRADING_WARN_EDGE_BPS")
	setStr(&cfg.Trading.MaxBundleSize, "BUNDLEBOT_TRADING_MAX_BUNDLE_SIZE")
	setStr(&cfg.Trading.MaxLegSpread, "BUNDLEBOT_TRADING_MAX_LEG_SPREAD")
	setStr(&cfg.Trading.MinLegSize, "BUNDLEBOT_TRADING_MIN_LEG_SIZE")
	setDuration(&cfg.Trading.LegTimeout, "BUNDLEBOT_TRADING_LEG_TIMEOUT")
	setDuration(&cfg.Trading.Cooldown, "BUNDLEBOT_TRADING_COOLDOWN")

	// ── Scheduler ──
	setDuration(&cfg.Scheduler.SnapshotInterval, "BUNDLEBOT_SCHEDULER_SNAPSHOT_INTERVAL")
	setDuration(&cfg.Scheduler.PollInterval, "BUNDLEBOT_SCHEDULER_POLL_INTERVAL")
	setDuration(&cfg.Scheduler.CatalogRefresh, "BUNDLEBOT_SCHEDULER_CATALOG_REFRESH")
	setInt(&cfg.Scheduler.MaxMarkets, "BUNDLEBOT_SCHEDULER_MAX_MARKETS")
	setInt(&cfg.Scheduler.BooksChunkSize, "BUNDLEBOT_SCHEDULER_BOOKS_CHUNK_SIZE")
	setInt(&cfg.Scheduler.BooksConcurrency, "BUNDLEBOT_SCHEDULER_BOOKS_CONCURRENCY")

	// ── Stats ──
	setInt64(&cfg.Stats.LogEverySec, "BUNDLEBOT_STATS_LOG_EVERY_SEC")
	setStr(&cfg.Stats.JSONLPath, "BUNDLEBOT_STATS_JSONL_PATH")
	setBool(&cfg.Stats.Archive, "BUNDLEBOT_STATS_ARCHIVE")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "BUNDLEBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BUNDLEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BUNDLEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BUNDLEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BUNDLEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BUNDLEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BUNDLEBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.ReportStream, "BUNDLEBOT_REDIS_REPORT_STREAM")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "BUNDLEBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BUNDLEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BUNDLEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "BUNDLEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BUNDLEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BUNDLEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BUNDLEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BUNDLEBOT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.KeyPrefix, "BUNDLEBOT_S3_KEY_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BUNDLEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BUNDLEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BUNDLEBOT_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "BUNDLEBOT_MODE")
	setStr(&cfg.LogLevel, "BUNDLEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

// RedactedConfig returns a copy of cfg with secret fields replaced by "***",
// for logging the active configuration at startup.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	return out
}

const redacted = "***"

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
