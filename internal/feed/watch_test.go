package feed

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

func newTestFeed(markets []domain.Market) *WatchFeed {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWatchFeed("wss://example.invalid/ws/market", markets, telemetry.NewCounters(time.Now().UnixMilli()), logger)
}

func lvl(price, size string) domain.PriceLevel {
	return domain.PriceLevel{
		Price: decimal.RequireFromString(price),
		Size:  decimal.RequireFromString(size),
	}
}

func TestHandleBookTracksTop(t *testing.T) {
	f := newTestFeed(nil)

	f.handleBook(domain.RawBook{
		TokenID: "t1",
		Bids:    []domain.PriceLevel{lvl("0.38", "100"), lvl("0.39", "50")},
		Asks:    []domain.PriceLevel{lvl("0.41", "25"), lvl("0.40", "10")},
	})

	top, ok := f.Top("t1")
	if !ok {
		t.Fatal("top not recorded")
	}
	if !top.Bid.Price.Equal(decimal.RequireFromString("0.39")) {
		t.Fatalf("best bid: %s", top.Bid.Price)
	}
	if !top.Ask.Price.Equal(decimal.RequireFromString("0.40")) {
		t.Fatalf("best ask: %s", top.Ask.Price)
	}
	if got := f.counters.Heartbeats.Load(); got != 1 {
		t.Fatalf("heartbeats: %d", got)
	}

	// A later book replaces the stored top.
	f.handleBook(domain.RawBook{
		TokenID: "t1",
		Asks:    []domain.PriceLevel{lvl("0.42", "5")},
	})
	top, _ = f.Top("t1")
	if top.Bid != nil {
		t.Fatalf("bid side must clear when absent: %+v", top.Bid)
	}
	if !top.Ask.Price.Equal(decimal.RequireFromString("0.42")) {
		t.Fatalf("ask not replaced: %s", top.Ask.Price)
	}
}

func TestAssetIDsDedupe(t *testing.T) {
	f := newTestFeed([]domain.Market{
		{ID: "m1", TokenIDs: []string{"t1", "t2"}},
		{ID: "m2", TokenIDs: []string{"t2", "t3"}},
	})

	ids := f.assetIDs()
	if len(ids) != 3 {
		t.Fatalf("expected 3 unique tokens, got %v", ids)
	}
	if ids[0] != "t1" || ids[1] != "t2" || ids[2] != "t3" {
		t.Fatalf("first-appearance order lost: %v", ids)
	}
}
