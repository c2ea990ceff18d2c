// Package feed implements watch mode: a live top-of-book tape streamed
// over the CLOB market WebSocket, with no trading attached.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/bundlebot/internal/book"
	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/platform/polymarket"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

// WatchFeed subscribes to book snapshots for every token of the given
// markets, resolves each to its top of book, and logs every change. It
// reconnects with a fixed delay on disconnect.
type WatchFeed struct {
	wsURL    string
	markets  []domain.Market
	counters *telemetry.Counters
	logger   *slog.Logger

	mu   sync.RWMutex
	tops map[string]domain.OutcomeTop

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatchFeed creates a feed over the tokens of the given markets.
func NewWatchFeed(wsURL string, markets []domain.Market, counters *telemetry.Counters, logger *slog.Logger) *WatchFeed {
	return &WatchFeed{
		wsURL:    wsURL,
		markets:  markets,
		counters: counters,
		logger:   logger.With(slog.String("component", "watch_feed")),
		tops:     make(map[string]domain.OutcomeTop),
		done:     make(chan struct{}),
	}
}

// Run connects and streams until ctx is cancelled or Close is called.
func (f *WatchFeed) Run(ctx context.Context) error {
	assetIDs := f.assetIDs()
	if len(assetIDs) == 0 {
		f.logger.Info("no tokens to watch, exiting")
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx, assetIDs)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("watch feed disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

// Close stops the feed.
func (f *WatchFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// Top returns the last seen top of book for a token.
func (f *WatchFeed) Top(tokenID string) (domain.OutcomeTop, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	top, ok := f.tops[tokenID]
	return top, ok
}

func (f *WatchFeed) runConnection(ctx context.Context, assetIDs []string) error {
	client := polymarket.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnBook(f.handleBook)

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}

	if err := client.Subscribe(assetIDs); err != nil {
		return err
	}
	f.logger.Info("watch feed subscribed",
		slog.Int("markets", len(f.markets)),
		slog.Int("tokens", len(assetIDs)),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// handleBook resolves the incoming book and records its top, logging only
// when the top actually moved.
func (f *WatchFeed) handleBook(raw domain.RawBook) {
	top := book.Resolve(raw)
	f.counters.Heartbeats.Add(1)

	f.mu.Lock()
	prev, seen := f.tops[raw.TokenID]
	f.tops[raw.TokenID] = top
	f.mu.Unlock()

	if seen && topsEqual(prev, top) {
		return
	}

	f.logger.Info("top of book",
		slog.String("token_id", raw.TokenID),
		slog.String("bid", quoteString(top.Bid)),
		slog.String("ask", quoteString(top.Ask)),
	)
}

func (f *WatchFeed) assetIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range f.markets {
		for _, t := range m.TokenIDs {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func topsEqual(a, b domain.OutcomeTop) bool {
	return quotesEqual(a.Bid, b.Bid) && quotesEqual(a.Ask, b.Ask)
}

func quotesEqual(a, b *domain.Quote) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Price.Equal(b.Price) && a.Size.Equal(b.Size)
}

func quoteString(q *domain.Quote) string {
	if q == nil {
		return "-"
	}
	return q.Price.String() + "x" + q.Size.String()
}
