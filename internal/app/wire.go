package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/bundlebot/internal/blob/s3"
	"github.com/alanyoungcy/bundlebot/internal/cache/redis"
	"github.com/alanyoungcy/bundlebot/internal/config"
	"github.com/alanyoungcy/bundlebot/internal/crypto"
	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/notify"
	"github.com/alanyoungcy/bundlebot/internal/platform/polymarket"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

// Dependencies bundles everything the application modes need to operate.
// It is constructed by Wire and torn down by the returned cleanup function.
// Optional members are nil when the corresponding config section is
// disabled.
type Dependencies struct {
	// Clob serves the market catalog, the order books, and (in live mode,
	// after EnableTrading plus DeriveAPIKey) order submission.
	Clob *polymarket.Client

	Counters *telemetry.Counters

	// Publisher receives bundle reports on a Redis stream; nil without Redis.
	Publisher domain.ReportPublisher

	// Cooldown throttles repeat bundles per market; nil when disabled.
	Cooldown domain.CooldownGuard

	// Blob archives stats snapshots; nil without S3.
	Blob domain.BlobWriter

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Counters: telemetry.NewCounters(time.Now().UnixMilli()),
	}

	// --- CLOB client ---
	deps.Clob = polymarket.NewClient(
		cfg.Polymarket.ClobHost,
		cfg.Polymarket.RateLimitRPS,
		cfg.Polymarket.RateLimitBurst,
		logger,
	)

	// --- Wallet credentials (live mode only) ---
	if cfg.Mode == "live" {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: load private key: %w", err)
		}
		signer, err := crypto.NewSigner(key, cfg.Polymarket.ChainID, cfg.Polymarket.Exchange)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: create signer: %w", err)
		}
		deps.Clob.EnableTrading(signer, nil)
		if err := deps.Clob.DeriveAPIKey(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: derive API key: %w", err)
		}
		logger.InfoContext(ctx, "trading enabled",
			slog.String("address", signer.Address().Hex()),
		)
	}

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		if cfg.Redis.ReportStream != "" {
			deps.Publisher = redis.NewReportStream(redisClient, cfg.Redis.ReportStream)
		}
		if cfg.Trading.Cooldown.Duration > 0 {
			deps.Cooldown = redis.NewCooldown(redisClient, cfg.Trading.Cooldown.Duration)
		}
	}

	// --- S3 blob storage (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 health check: %w", err)
		}
		deps.Blob = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
