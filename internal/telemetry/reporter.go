package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alanyoungcy/bundlebot/internal/domain"
)

// Reporter periodically drains the counters into a structured log line, an
// optional JSONL file, and an optional blob archive. Rendering cadence and
// destinations are its concern alone; the pipeline only increments.
type Reporter struct {
	counters  *Counters
	interval  time.Duration
	jsonlPath string
	blob      domain.BlobWriter // nil disables archiving
	keyPrefix string
	logger    *slog.Logger
}

// NewReporter creates a reporter. jsonlPath may be empty (no file output)
// and blob may be nil (no archive upload).
func NewReporter(counters *Counters, interval time.Duration, jsonlPath string, blob domain.BlobWriter, keyPrefix string, logger *slog.Logger) *Reporter {
	return &Reporter{
		counters:  counters,
		interval:  interval,
		jsonlPath: jsonlPath,
		blob:      blob,
		keyPrefix: keyPrefix,
		logger:    logger.With(slog.String("component", "stats_reporter")),
	}
}

// Run emits a stats snapshot every interval until ctx is cancelled. A final
// snapshot is emitted on shutdown so short runs still leave a record.
func (r *Reporter) Run(ctx context.Context) error {
	if r.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.emit(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			r.emit(ctx)
		}
	}
}

func (r *Reporter) emit(ctx context.Context) {
	nowMs := time.Now().UnixMilli()
	ss := r.counters.Snapshot(nowMs)

	r.logger.Info("stats",
		slog.Int64("up_sec", ss.UpSec),
		slog.Int64("heartbeats", ss.Heartbeats),
		slog.Int64("markets_loaded", ss.MarketsLoaded),
		slog.Int64("markets_in_snapshot", ss.MarketsInSnapshot),
		slog.Int64("near_arb_hits", ss.NearMisses),
		slog.Int64("opportunities", ss.Opportunities),
		slog.Int64("intents_emitted", ss.IntentsEmitted),
		slog.Int64("bundles_filled", ss.BundlesFilled),
		slog.Int64("bundles_partial", ss.BundlesPartial),
		slog.Int64("bundles_unfilled", ss.BundlesUnfilled),
	)

	line, err := json.Marshal(ss)
	if err != nil {
		r.logger.Error("stats marshal failed", slog.String("error", err.Error()))
		return
	}

	if r.jsonlPath != "" {
		if err := appendLine(r.jsonlPath, line); err != nil {
			r.logger.Warn("stats jsonl append failed",
				slog.String("path", r.jsonlPath),
				slog.String("error", err.Error()),
			)
		}
	}

	if r.blob != nil {
		key := fmt.Sprintf("%s/stats/%s.json", r.keyPrefix, time.UnixMilli(nowMs).UTC().Format("2006-01-02T15-04-05"))
		if err := r.blob.Put(ctx, key, line, "application/json"); err != nil {
			r.logger.Warn("stats archive upload failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}
