package strategy

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

// SumArbConfig holds the thresholds for the sum-ask bundle strategy.
// Rates are expressed in basis points; sizes and the optional filters are
// exact decimals.
type SumArbConfig struct {
	FeeBps        int64
	MinEdgeBps    int64
	WarnEdgeBps   int64
	MaxBundleSize decimal.Decimal

	// MaxLegSpread skips a market when any leg's bid-ask spread exceeds it.
	// A leg with no bid has an unknowable spread and also skips the market.
	MaxLegSpread *decimal.Decimal
	// MinLegSize skips a market when any leg's best ask size is below it.
	MinLegSize *decimal.Decimal
}

// SumArb detects cross-outcome mispricing: when the asks of every outcome
// of a market sum below 1 after fees, buying one share of each outcome is
// a risk-free bundle. All arithmetic is exact decimal; the qualification
// boundary is a hard threshold and float rounding on either side of it
// would trade on noise.
type SumArb struct {
	cfg      SumArbConfig
	counters *telemetry.Counters
	logger   *slog.Logger
}

// NewSumArb creates the strategy. counters may not be nil; near-miss and
// opportunity counts are part of the strategy's contract.
func NewSumArb(cfg SumArbConfig, counters *telemetry.Counters, logger *slog.Logger) *SumArb {
	return &SumArb{
		cfg:      cfg,
		counters: counters,
		logger:   logger.With(slog.String("strategy", "sum_arb")),
	}
}

// Name returns the strategy identifier.
func (s *SumArb) Name() string { return "sum_arb" }

var one = decimal.NewFromInt(1)

func bps(n int64) decimal.Decimal {
	return decimal.New(n, -4)
}

// OnSnapshot evaluates every market book and emits one buy intent per
// outcome leg of each qualifying market. Every leg of one market in one
// cycle shares a freshly generated bundle ID; distinct markets never share
// one.
func (s *SumArb) OnSnapshot(snap *domain.GlobalSnapshot) []domain.OrderIntent {
	fee := bps(s.cfg.FeeBps)
	minEdge := bps(s.cfg.MinEdgeBps)
	warnEdge := bps(s.cfg.WarnEdgeBps)

	var out []domain.OrderIntent
	for i := range snap.Markets {
		m := &snap.Markets[i]

		// A single-token market makes sum_ask artificially low and would
		// fire false positives; it is bad mapping, not an opportunity.
		if len(m.Outcomes) < 2 {
			continue
		}
		if !s.legsPass(m) {
			continue
		}

		sumAsk, sumBid, buyCap, ok := s.sumAndCap(m)
		if !ok || buyCap.LessThanOrEqual(decimal.Zero) {
			continue
		}

		if sumAsk.LessThan(one.Add(warnEdge)) {
			s.counters.NearMisses.Add(1)
			s.logger.Warn("near-arb: bundle pricing close to 1",
				slog.String("market_id", m.MarketID),
				slog.String("question", m.Question),
				slog.String("sum_ask", sumAsk.String()),
				slog.String("sum_bid", sumBid.String()),
				slog.String("spread", sumAsk.Sub(sumBid).String()),
				slog.String("size", buyCap.String()),
				slog.Int("legs", len(m.Outcomes)),
			)
		}

		if !sumAsk.Mul(one.Add(fee)).LessThan(one.Sub(minEdge)) {
			continue
		}

		s.counters.Opportunities.Add(1)
		bundleID := uuid.New()
		s.logger.Info("opportunity: buy bundle",
			slog.String("market_id", m.MarketID),
			slog.String("question", m.Question),
			slog.String("sum_ask", sumAsk.String()),
			slog.String("size", buyCap.String()),
			slog.Int("legs", len(m.Outcomes)),
			slog.String("bundle_id", bundleID.String()),
		)

		reason := fmt.Sprintf("buy_bundle sum_ask=%s size=%s", sumAsk, buyCap)
		for _, o := range m.Outcomes {
			out = append(out, domain.OrderIntent{
				MarketID: m.MarketID,
				TokenID:  o.TokenID,
				Side:     domain.OrderSideBuy,
				Price:    o.Ask.Price,
				Size:     buyCap,
				Reason:   reason,
				BundleID: bundleID,
			})
		}
	}

	s.counters.IntentsEmitted.Add(int64(len(out)))
	return out
}

// legsPass applies the optional per-leg filters. An absent ask always
// disqualifies the market: no bundle is computable without full ask
// coverage.
func (s *SumArb) legsPass(m *domain.MarketBook) bool {
	for _, o := range m.Outcomes {
		if o.Ask == nil {
			return false
		}
		if s.cfg.MaxLegSpread != nil {
			if o.Bid == nil {
				return false
			}
			if o.Ask.Price.Sub(o.Bid.Price).GreaterThan(*s.cfg.MaxLegSpread) {
				return false
			}
		}
		if s.cfg.MinLegSize != nil && o.Ask.Size.LessThan(*s.cfg.MinLegSize) {
			return false
		}
	}
	return true
}

// sumAndCap walks the legs once, accumulating sum_ask and sum_bid and
// tracking the thinnest leg. The bundle size is min(thinnest leg, cap):
// the binding constraint is whichever is smaller.
func (s *SumArb) sumAndCap(m *domain.MarketBook) (sumAsk, sumBid, buyCap decimal.Decimal, ok bool) {
	sumAsk = decimal.Zero
	sumBid = decimal.Zero
	first := true
	for _, o := range m.Outcomes {
		if o.Ask == nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, false
		}
		sumAsk = sumAsk.Add(o.Ask.Price)
		if o.Bid != nil {
			sumBid = sumBid.Add(o.Bid.Price)
		}
		if first || o.Ask.Size.LessThan(buyCap) {
			buyCap = o.Ask.Size
			first = false
		}
	}
	if buyCap.GreaterThan(s.cfg.MaxBundleSize) {
		buyCap = s.cfg.MaxBundleSize
	}
	return sumAsk, sumBid, buyCap, true
}
