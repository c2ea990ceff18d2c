package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/executor"
	"github.com/alanyoungcy/bundlebot/internal/feed"
	"github.com/alanyoungcy/bundlebot/internal/snapshot"
	"github.com/alanyoungcy/bundlebot/internal/strategy"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

// ObserveMode runs the full detection pipeline but routes every bundle to
// the observer coordinator, which logs opportunities without trading.
func (a *App) ObserveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting observe mode")
	coord := executor.NewObserver(deps.Counters, a.logger)
	return a.runPipeline(ctx, deps, coord)
}

// LiveMode runs the detection pipeline with real fill-or-kill execution.
func (a *App) LiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting live mode")
	coord := executor.NewLive(
		deps.Clob,
		deps.Publisher,
		deps.Notifier,
		a.cfg.Trading.LegTimeout.Duration,
		deps.Counters,
		a.logger,
	)
	return a.runPipeline(ctx, deps, coord)
}

// WatchMode streams order book updates over WebSocket and logs top-of-book
// changes. No snapshots are built and no strategy runs.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	markets, err := deps.Clob.FetchOpenMarkets(ctx, a.cfg.Scheduler.MaxMarkets)
	if err != nil {
		return fmt.Errorf("watch mode: fetch market catalog: %w", err)
	}
	deps.Counters.MarketsLoaded.Store(int64(len(markets)))
	if len(markets) == 0 {
		return fmt.Errorf("watch mode: no tradable markets to subscribe to")
	}

	g, ctx := errgroup.WithContext(ctx)

	wsFeed := feed.NewWatchFeed(a.cfg.Polymarket.WsHost, markets, deps.Counters, a.logger)
	g.Go(func() error {
		defer wsFeed.Close()
		return wsFeed.Run(ctx)
	})

	a.startReporter(ctx, g, deps)

	return g.Wait()
}

// runPipeline is the shared observe/live scheduler. Three loops run on
// independent cadences: catalog refresh, snapshot building, and strategy
// evaluation. The loops share state through atomic pointers so a slow
// snapshot never delays an evaluation tick; evaluation simply reuses the
// latest complete snapshot.
func (a *App) runPipeline(ctx context.Context, deps *Dependencies, coord executor.Coordinator) error {
	strat, err := a.buildStrategy(deps.Counters)
	if err != nil {
		return fmt.Errorf("app: build strategy: %w", err)
	}

	builder := snapshot.NewBuilder(
		deps.Clob,
		a.cfg.Scheduler.BooksChunkSize,
		a.cfg.Scheduler.BooksConcurrency,
		deps.Counters,
		a.logger,
	)

	// The first catalog fetch is fatal on failure; without it there is
	// nothing to snapshot. Later refresh failures only log.
	markets, err := deps.Clob.FetchOpenMarkets(ctx, a.cfg.Scheduler.MaxMarkets)
	if err != nil {
		return fmt.Errorf("app: initial market catalog: %w", err)
	}
	deps.Counters.MarketsLoaded.Store(int64(len(markets)))
	a.logger.InfoContext(ctx, "market catalog loaded", slog.Int("markets", len(markets)))

	var catalog atomic.Pointer[[]domain.Market]
	catalog.Store(&markets)

	var latest atomic.Pointer[domain.GlobalSnapshot]

	g, ctx := errgroup.WithContext(ctx)

	// Catalog refresh loop.
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Scheduler.CatalogRefresh.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				fresh, err := deps.Clob.FetchOpenMarkets(ctx, a.cfg.Scheduler.MaxMarkets)
				if err != nil {
					a.logger.WarnContext(ctx, "catalog refresh failed, keeping previous catalog",
						slog.String("error", err.Error()),
					)
					continue
				}
				catalog.Store(&fresh)
				deps.Counters.MarketsLoaded.Store(int64(len(fresh)))
				a.logger.DebugContext(ctx, "market catalog refreshed", slog.Int("markets", len(fresh)))
			}
		}
	})

	// Snapshot loop. A build that overruns the interval finishes; the
	// evaluation loop just keeps reading the previous snapshot meanwhile.
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Scheduler.SnapshotInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				snap, err := builder.Snapshot(ctx, *catalog.Load())
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					a.logger.WarnContext(ctx, "snapshot build failed",
						slog.String("error", err.Error()),
					)
					continue
				}
				latest.Store(snap)
			}
		}
	})

	// Evaluation loop. Each snapshot is evaluated at most once; ticks that
	// find no new snapshot are skipped.
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Scheduler.PollInterval.Duration)
		defer ticker.Stop()
		var lastTs int64
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				snap := latest.Load()
				if snap == nil || snap.TsMs == lastTs {
					continue
				}
				lastTs = snap.TsMs

				intents := strat.OnSnapshot(snap)
				if len(intents) == 0 {
					continue
				}
				intents = a.filterCooldown(ctx, deps.Cooldown, intents)
				if len(intents) == 0 {
					continue
				}
				if err := coord.Execute(ctx, intents); err != nil {
					a.logger.WarnContext(ctx, "bundle execution finished with errors",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	})

	a.startReporter(ctx, g, deps)

	return g.Wait()
}

// startReporter adds the periodic stats reporter to the errgroup when the
// configured cadence is positive.
func (a *App) startReporter(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if a.cfg.Stats.LogEverySec <= 0 {
		return
	}
	var blob domain.BlobWriter
	if a.cfg.Stats.Archive {
		blob = deps.Blob
	}
	reporter := telemetry.NewReporter(
		deps.Counters,
		time.Duration(a.cfg.Stats.LogEverySec)*time.Second,
		a.cfg.Stats.JSONLPath,
		blob,
		a.cfg.S3.KeyPrefix,
		a.logger,
	)
	g.Go(func() error {
		return reporter.Run(ctx)
	})
}

// buildStrategy constructs the registry and returns the bundle strategy.
// The decimal fields were already validated by config.Validate, so parse
// failures here are programming errors, not user errors.
func (a *App) buildStrategy(counters *telemetry.Counters) (strategy.Strategy, error) {
	maxSize, err := decimal.NewFromString(a.cfg.Trading.MaxBundleSize)
	if err != nil {
		return nil, fmt.Errorf("parse max_bundle_size: %w", err)
	}
	cfg := strategy.SumArbConfig{
		FeeBps:        a.cfg.Trading.FeeBps,
		MinEdgeBps:    a.cfg.Trading.MinEdgeBps,
		WarnEdgeBps:   a.cfg.Trading.WarnEdgeBps,
		MaxBundleSize: maxSize,
	}
	if a.cfg.Trading.MaxLegSpread != "" {
		v, err := decimal.NewFromString(a.cfg.Trading.MaxLegSpread)
		if err != nil {
			return nil, fmt.Errorf("parse max_leg_spread: %w", err)
		}
		cfg.MaxLegSpread = &v
	}
	if a.cfg.Trading.MinLegSize != "" {
		v, err := decimal.NewFromString(a.cfg.Trading.MinLegSize)
		if err != nil {
			return nil, fmt.Errorf("parse min_leg_size: %w", err)
		}
		cfg.MinLegSize = &v
	}

	reg := strategy.NewRegistry()
	reg.Register(strategy.NewSumArb(cfg, counters, a.logger))
	return reg.Get("sum_arb")
}

// filterCooldown drops every leg of a market that is still cooling down
// from a prior bundle. A guard failure fails open: a Redis blip should not
// silence detection.
func (a *App) filterCooldown(ctx context.Context, guard domain.CooldownGuard, intents []domain.OrderIntent) []domain.OrderIntent {
	if guard == nil {
		return intents
	}
	allowed := make(map[string]bool)
	out := intents[:0]
	for _, in := range intents {
		ok, seen := allowed[in.MarketID]
		if !seen {
			var err error
			ok, err = guard.Allow(ctx, in.MarketID)
			if err != nil {
				a.logger.WarnContext(ctx, "cooldown check failed, allowing bundle",
					slog.String("market_id", in.MarketID),
					slog.String("error", err.Error()),
				)
				ok = true
			}
			allowed[in.MarketID] = ok
			if !ok {
				a.logger.DebugContext(ctx, "bundle suppressed by cooldown",
					slog.String("market_id", in.MarketID),
				)
			}
		}
		if ok {
			out = append(out, in)
		}
	}
	return out
}
