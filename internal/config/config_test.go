package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "observe"

[trading]
min_edge_bps = 50
max_bundle_size = "10"

[scheduler]
snapshot_interval = "5s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Trading.MinEdgeBps != 50 {
		t.Fatalf("min_edge_bps: %d", cfg.Trading.MinEdgeBps)
	}
	if cfg.Scheduler.SnapshotInterval.Duration != 5*time.Second {
		t.Fatalf("snapshot_interval: %s", cfg.Scheduler.SnapshotInterval.Duration)
	}
	// Untouched fields keep their defaults.
	if cfg.Polymarket.ClobHost != "https://clob.polymarket.com" {
		t.Fatalf("clob_host default lost: %s", cfg.Polymarket.ClobHost)
	}
	if cfg.Scheduler.PollInterval.Duration != 500*time.Millisecond {
		t.Fatalf("poll_interval default lost: %s", cfg.Scheduler.PollInterval.Duration)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults plus overrides must validate: %v", err)
	}
}

func TestEnvOverrideWins(t *testing.T) {
	path := writeConfig(t, `
[trading]
min_edge_bps = 50
`)
	t.Setenv("BUNDLEBOT_TRADING_MIN_EDGE_BPS", "75")
	t.Setenv("BUNDLEBOT_MODE", "watch")
	t.Setenv("BUNDLEBOT_SCHEDULER_POLL_INTERVAL", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trading.MinEdgeBps != 75 {
		t.Fatalf("env override lost: %d", cfg.Trading.MinEdgeBps)
	}
	if cfg.Mode != "watch" {
		t.Fatalf("mode override lost: %s", cfg.Mode)
	}
	if cfg.Scheduler.PollInterval.Duration != 250*time.Millisecond {
		t.Fatalf("duration override lost: %s", cfg.Scheduler.PollInterval.Duration)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"
	cfg.Trading.MinEdgeBps = 0
	cfg.Trading.MaxBundleSize = "not-a-number"
	cfg.Scheduler.BooksChunkSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	msg := err.Error()
	for _, want := range []string{"unknown mode", "min_edge_bps", "max_bundle_size", "books_chunk_size"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error must mention %q, got:\n%s", want, msg)
		}
	}
}

func TestValidateLiveModeNeedsWalletAndTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "live"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "wallet") {
		t.Fatalf("live mode without wallet must fail: %v", err)
	}

	cfg.Wallet.PrivateKey = "ab"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("live mode with raw key must validate: %v", err)
	}

	cfg.Wallet.PrivateKey = ""
	cfg.Wallet.EncryptedKeyPath = "/tmp/key.json"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "key_password") {
		t.Fatalf("encrypted key without password must fail: %v", err)
	}
}

func TestValidateCrossSectionDependencies(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.Cooldown = duration{30 * time.Second}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "cooldown requires redis") {
		t.Fatalf("cooldown without redis must fail: %v", err)
	}

	cfg = Defaults()
	cfg.Stats.Archive = true
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "archive requires s3") {
		t.Fatalf("archive without s3 must fail: %v", err)
	}

	cfg = Defaults()
	cfg.Notify.TelegramToken = "tok"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "telegram") {
		t.Fatalf("half-configured telegram must fail: %v", err)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.Redis.Password = "hunter2"

	red := RedactedConfig(&cfg)
	if red.Wallet.PrivateKey != "***" || red.Redis.Password != "***" {
		t.Fatalf("secrets leaked: %+v", red)
	}
	// The original is untouched.
	if cfg.Wallet.PrivateKey != "deadbeef" {
		t.Fatal("redaction must not mutate the source")
	}
}
