package executor

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

// Observer is the dry-run coordinator. It logs every bundle it would have
// executed, leg by leg, and touches nothing on the exchange. It is the
// default mode and the safe one to leave running unattended.
type Observer struct {
	counters *telemetry.Counters
	logger   *slog.Logger
}

// NewObserver creates a Coordinator that only records intents.
func NewObserver(counters *telemetry.Counters, logger *slog.Logger) *Observer {
	return &Observer{
		counters: counters,
		logger:   logger.With(slog.String("component", "observer")),
	}
}

// Execute logs each bundle and its legs. It never returns an error.
func (o *Observer) Execute(ctx context.Context, intents []domain.OrderIntent) error {
	for _, b := range groupByBundle(intents) {
		o.counters.BundlesObserved.Add(1)
		o.logger.Info("bundle opportunity (observe mode, not traded)",
			slog.String("bundle_id", b.ID.String()),
			slog.String("market_id", b.Legs[0].MarketID),
			slog.Int("legs", len(b.Legs)),
			slog.String("size", b.Legs[0].Size.String()),
			slog.String("reason", b.Legs[0].Reason),
		)
		for _, leg := range b.Legs {
			o.logger.Info("  leg",
				slog.String("bundle_id", b.ID.String()),
				slog.String("token_id", leg.TokenID),
				slog.String("side", string(leg.Side)),
				slog.String("price", leg.Price.String()),
				slog.String("size", leg.Size.String()),
			)
		}
	}
	return nil
}
