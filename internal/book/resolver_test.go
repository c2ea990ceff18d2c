package book

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/bundlebot/internal/domain"
)

func lvl(price, size string) domain.PriceLevel {
	return domain.PriceLevel{
		Price: decimal.RequireFromString(price),
		Size:  decimal.RequireFromString(size),
	}
}

func TestBestBidUnsorted(t *testing.T) {
	levels := []domain.PriceLevel{
		lvl("0.41", "10"),
		lvl("0.45", "3"),
		lvl("0.39", "100"),
		lvl("0.44", "9"),
	}
	q := BestBid(levels)
	if q == nil {
		t.Fatal("expected a bid")
	}
	if !q.Price.Equal(decimal.RequireFromString("0.45")) {
		t.Fatalf("unexpected best bid price: %s", q.Price)
	}
	if !q.Size.Equal(decimal.RequireFromString("3")) {
		t.Fatalf("unexpected best bid size: %s", q.Size)
	}
}

func TestBestAskUnsorted(t *testing.T) {
	levels := []domain.PriceLevel{
		lvl("0.58", "40"),
		lvl("0.52", "7"),
		lvl("0.99", "1"),
	}
	q := BestAsk(levels)
	if q == nil {
		t.Fatal("expected an ask")
	}
	if !q.Price.Equal(decimal.RequireFromString("0.52")) {
		t.Fatalf("unexpected best ask price: %s", q.Price)
	}
}

func TestEmptySidesAreAbsent(t *testing.T) {
	if q := BestBid(nil); q != nil {
		t.Fatalf("expected nil bid for empty side, got %v", q)
	}
	if q := BestAsk([]domain.PriceLevel{}); q != nil {
		t.Fatalf("expected nil ask for empty side, got %v", q)
	}
}

func TestTieBreakPrefersLargerSize(t *testing.T) {
	bids := []domain.PriceLevel{
		lvl("0.45", "3"),
		lvl("0.45", "25"),
		lvl("0.45", "10"),
	}
	q := BestBid(bids)
	if !q.Size.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("bid tie-break should pick largest size, got %s", q.Size)
	}

	asks := []domain.PriceLevel{
		lvl("0.52", "1"),
		lvl("0.52", "80"),
	}
	q = BestAsk(asks)
	if !q.Size.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("ask tie-break should pick largest size, got %s", q.Size)
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	raw := domain.RawBook{
		TokenID: "tok1",
		Bids: []domain.PriceLevel{
			lvl("0.30", "5"), lvl("0.33", "2"), lvl("0.31", "50"), lvl("0.33", "9"),
		},
		Asks: []domain.PriceLevel{
			lvl("0.40", "12"), lvl("0.36", "4"), lvl("0.36", "40"), lvl("0.70", "1"),
		},
	}
	want := Resolve(raw)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := domain.RawBook{
			TokenID: raw.TokenID,
			Bids:    append([]domain.PriceLevel(nil), raw.Bids...),
			Asks:    append([]domain.PriceLevel(nil), raw.Asks...),
		}
		rng.Shuffle(len(shuffled.Bids), func(a, b int) {
			shuffled.Bids[a], shuffled.Bids[b] = shuffled.Bids[b], shuffled.Bids[a]
		})
		rng.Shuffle(len(shuffled.Asks), func(a, b int) {
			shuffled.Asks[a], shuffled.Asks[b] = shuffled.Asks[b], shuffled.Asks[a]
		})

		got := Resolve(shuffled)
		if !got.Bid.Price.Equal(want.Bid.Price) || !got.Bid.Size.Equal(want.Bid.Size) {
			t.Fatalf("shuffle %d changed best bid: %s@%s", i, got.Bid.Size, got.Bid.Price)
		}
		if !got.Ask.Price.Equal(want.Ask.Price) || !got.Ask.Size.Equal(want.Ask.Size) {
			t.Fatalf("shuffle %d changed best ask: %s@%s", i, got.Ask.Size, got.Ask.Price)
		}
	}
}
