package strategy

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quote(price, size string) *domain.Quote {
	return &domain.Quote{Price: dec(price), Size: dec(size)}
}

func top(token string, bid, ask *domain.Quote) domain.OutcomeTop {
	return domain.OutcomeTop{TokenID: token, Bid: bid, Ask: ask}
}

func snapOf(books ...domain.MarketBook) *domain.GlobalSnapshot {
	return &domain.GlobalSnapshot{TsMs: 1_700_000_000_000, Markets: books}
}

func newTestStrategy(cfg SumArbConfig) (*SumArb, *telemetry.Counters) {
	c := telemetry.NewCounters(0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSumArb(cfg, c, logger), c
}

func baseConfig() SumArbConfig {
	return SumArbConfig{
		FeeBps:        100, // 1%
		MinEdgeBps:    200, // 2%
		WarnEdgeBps:   100,
		MaxBundleSize: dec("50"),
	}
}

func TestQualifyingMarketEmitsOneIntentPerLeg(t *testing.T) {
	// asks 0.40+0.35+0.20 = 0.95; 0.95*1.01 = 0.9595 < 0.98 qualifies.
	s, c := newTestStrategy(baseConfig())
	mb := domain.MarketBook{
		MarketID: "m1",
		Question: "who wins",
		Outcomes: []domain.OutcomeTop{
			top("t1", quote("0.38", "100"), quote("0.40", "30")),
			top("t2", quote("0.33", "100"), quote("0.35", "12")),
			top("t3", quote("0.18", "100"), quote("0.20", "90")),
		},
	}

	intents := s.OnSnapshot(snapOf(mb))
	if len(intents) != 3 {
		t.Fatalf("expected 3 intents, got %d", len(intents))
	}
	// Bundle size is the thinnest leg (12), below the 50 cap.
	for _, it := range intents {
		if it.Side != domain.OrderSideBuy {
			t.Fatalf("expected buy leg, got %s", it.Side)
		}
		if !it.Size.Equal(dec("12")) {
			t.Fatalf("bundle size should be thinnest leg: got %s", it.Size)
		}
	}
	if !intents[0].Price.Equal(dec("0.40")) || !intents[1].Price.Equal(dec("0.35")) || !intents[2].Price.Equal(dec("0.20")) {
		t.Fatalf("limit prices should be the best asks: %v", intents)
	}
	if c.Opportunities.Load() != 1 {
		t.Fatalf("expected 1 opportunity, counted %d", c.Opportunities.Load())
	}
	if c.IntentsEmitted.Load() != 3 {
		t.Fatalf("expected 3 intents counted, got %d", c.IntentsEmitted.Load())
	}
}

func TestBundleSizeCappedByMaxBundleSize(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxBundleSize = dec("5")
	s, _ := newTestStrategy(cfg)
	mb := domain.MarketBook{
		MarketID: "m1",
		Outcomes: []domain.OutcomeTop{
			top("t1", quote("0.38", "100"), quote("0.40", "30")),
			top("t2", quote("0.33", "100"), quote("0.35", "12")),
		},
	}
	intents := s.OnSnapshot(snapOf(mb))
	if len(intents) != 2 {
		t.Fatalf("expected 2 intents, got %d", len(intents))
	}
	if !intents[0].Size.Equal(dec("5")) {
		t.Fatalf("cap should bind: got size %s", intents[0].Size)
	}
}

func TestOverpricedMarketEmitsNothingNotEvenNearMiss(t *testing.T) {
	// asks 0.50+0.55 = 1.05 >= 1+warn_edge for any non-negative warn.
	cfg := baseConfig()
	cfg.MinEdgeBps = 0
	s, c := newTestStrategy(cfg)
	mb := domain.MarketBook{
		MarketID: "m1",
		Outcomes: []domain.OutcomeTop{
			top("t1", quote("0.48", "10"), quote("0.50", "10")),
			top("t2", quote("0.53", "10"), quote("0.55", "10")),
		},
	}
	intents := s.OnSnapshot(snapOf(mb))
	if len(intents) != 0 {
		t.Fatalf("expected no intents, got %d", len(intents))
	}
	if c.NearMisses.Load() != 0 {
		t.Fatalf("sum_ask=1.05 must not count as near-miss")
	}
}

func TestNearMissCountedWithoutIntents(t *testing.T) {
	// sum_ask = 0.995: within warn band (1+0.01) but 0.995*1.01 > 0.98.
	s, c := newTestStrategy(baseConfig())
	mb := domain.MarketBook{
		MarketID: "m1",
		Outcomes: []domain.OutcomeTop{
			top("t1", quote("0.48", "10"), quote("0.50", "10")),
			top("t2", quote("0.47", "10"), quote("0.495", "10")),
		},
	}
	intents := s.OnSnapshot(snapOf(mb))
	if len(intents) != 0 {
		t.Fatalf("near-miss must not emit intents, got %d", len(intents))
	}
	if c.NearMisses.Load() != 1 {
		t.Fatalf("expected 1 near-miss, got %d", c.NearMisses.Load())
	}
}

func TestAbsentAskSkipsMarket(t *testing.T) {
	s, c := newTestStrategy(baseConfig())
	mb := domain.MarketBook{
		MarketID: "m1",
		Outcomes: []domain.OutcomeTop{
			top("t1", quote("0.38", "100"), quote("0.40", "30")),
			top("t2", quote("0.33", "100"), nil), // no resting ask
			top("t3", quote("0.18", "100"), quote("0.20", "90")),
		},
	}
	if intents := s.OnSnapshot(snapOf(mb)); len(intents) != 0 {
		t.Fatalf("absent ask must suppress the whole market, got %d intents", len(intents))
	}
	if c.Opportunities.Load() != 0 {
		t.Fatal("absent ask must not count an opportunity")
	}
}

func TestSingleOutcomeMarketSkipped(t *testing.T) {
	s, _ := newTestStrategy(baseConfig())
	mb := domain.MarketBook{
		MarketID: "m1",
		Outcomes: []domain.OutcomeTop{
			top("t1", quote("0.10", "100"), quote("0.12", "100")),
		},
	}
	if intents := s.OnSnapshot(snapOf(mb)); len(intents) != 0 {
		t.Fatalf("single-outcome market must be skipped, got %d intents", len(intents))
	}
}

func TestLegSpreadFilter(t *testing.T) {
	cfg := baseConfig()
	maxSpread := dec("0.03")
	cfg.MaxLegSpread = &maxSpread
	s, _ := newTestStrategy(cfg)

	wide := domain.MarketBook{
		MarketID: "wide",
		Outcomes: []domain.OutcomeTop{
			top("t1", quote("0.30", "100"), quote("0.40", "30")), // 0.10 spread
			top("t2", quote("0.33", "100"), quote("0.35", "30")),
		},
	}
	noBid := domain.MarketBook{
		MarketID: "nobid",
		Outcomes: []domain.OutcomeTop{
			top("t1", nil, quote("0.40", "30")), // spread unknowable
			top("t2", quote("0.33", "100"), quote("0.35", "30")),
		},
	}
	if intents := s.OnSnapshot(snapOf(wide, noBid)); len(intents) != 0 {
		t.Fatalf("spread filter should suppress both markets, got %d intents", len(intents))
	}
}

func TestMinLegSizeFilter(t *testing.T) {
	cfg := baseConfig()
	minSize := dec("20")
	cfg.MinLegSize = &minSize
	s, _ := newTestStrategy(cfg)

	thin := domain.MarketBook{
		MarketID: "thin",
		Outcomes: []domain.OutcomeTop{
			top("t1", quote("0.38", "100"), quote("0.40", "30")),
			top("t2", quote("0.33", "100"), quote("0.35", "12")), // below min
		},
	}
	if intents := s.OnSnapshot(snapOf(thin)); len(intents) != 0 {
		t.Fatalf("min size filter should suppress the market, got %d intents", len(intents))
	}
}

func TestBundleIDsUniquePerMarketSharedPerLeg(t *testing.T) {
	s, _ := newTestStrategy(baseConfig())
	mb1 := domain.MarketBook{
		MarketID: "m1",
		Outcomes: []domain.OutcomeTop{
			top("a1", quote("0.38", "50"), quote("0.40", "50")),
			top("a2", quote("0.33", "50"), quote("0.35", "50")),
		},
	}
	mb2 := domain.MarketBook{
		MarketID: "m2",
		Outcomes: []domain.OutcomeTop{
			top("b1", quote("0.28", "50"), quote("0.30", "50")),
			top("b2", quote("0.23", "50"), quote("0.25", "50")),
			top("b3", quote("0.18", "50"), quote("0.20", "50")),
		},
	}

	intents := s.OnSnapshot(snapOf(mb1, mb2))
	if len(intents) != 5 {
		t.Fatalf("expected 5 intents, got %d", len(intents))
	}

	byMarket := map[string]map[uuid.UUID]bool{}
	for _, it := range intents {
		if byMarket[it.MarketID] == nil {
			byMarket[it.MarketID] = map[uuid.UUID]bool{}
		}
		byMarket[it.MarketID][it.BundleID] = true
	}
	if len(byMarket["m1"]) != 1 || len(byMarket["m2"]) != 1 {
		t.Fatalf("each market's legs must share exactly one bundle ID: %v", byMarket)
	}
	for id := range byMarket["m1"] {
		if byMarket["m2"][id] {
			t.Fatal("distinct markets must not share a bundle ID")
		}
	}

	// A second cycle mints fresh bundle IDs.
	again := s.OnSnapshot(snapOf(mb1))
	for id := range byMarket["m1"] {
		if again[0].BundleID == id {
			t.Fatal("bundle IDs must not be reused across cycles")
		}
	}
}
