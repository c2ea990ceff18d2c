// Package snapshot assembles per-cycle global orderbook snapshots from
// chunked quote fetches.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/bundlebot/internal/book"
	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

// Builder fetches every tracked token's book through the quote source and
// assembles one GlobalSnapshot per call. A snapshot is all-or-nothing: any
// chunk failure fails the cycle, because a silently missing market would
// read as "no opportunity" downstream when the truth is "unknown".
type Builder struct {
	quotes      domain.QuoteSource
	chunkSize   int
	concurrency int
	counters    *telemetry.Counters
	logger      *slog.Logger
}

// NewBuilder creates a Builder. chunkSize and concurrency are clamped to at
// least 1; concurrency bounds in-flight requests at the quote source, not
// the top-of-book resolution, which runs inline as results arrive.
func NewBuilder(quotes domain.QuoteSource, chunkSize, concurrency int, counters *telemetry.Counters, logger *slog.Logger) *Builder {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		quotes:      quotes,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		counters:    counters,
		logger:      logger.With(slog.String("component", "snapshot_builder")),
	}
}

// Snapshot fetches books for every token of every market and returns one
// immutable GlobalSnapshot, stamped with the wall clock at assembly
// completion. Token IDs shared between markets are fetched once and fanned
// back out per market, preserving each market's own token order.
func (b *Builder) Snapshot(ctx context.Context, markets []domain.Market) (*domain.GlobalSnapshot, error) {
	tokenIDs := dedupeTokens(markets)

	tops, err := b.fetchTops(ctx, tokenIDs)
	if err != nil {
		return nil, err
	}

	books := make([]domain.MarketBook, 0, len(markets))
	for _, m := range markets {
		mb := domain.MarketBook{
			MarketID: m.ID,
			Question: m.Question,
			Outcomes: make([]domain.OutcomeTop, 0, len(m.TokenIDs)),
		}
		for _, tid := range m.TokenIDs {
			top, ok := tops[tid]
			if !ok {
				return nil, fmt.Errorf("snapshot: market %s: %w: %s", m.ID, domain.ErrMissingBook, tid)
			}
			mb.Outcomes = append(mb.Outcomes, top)
		}
		books = append(books, mb)
	}

	snap := &domain.GlobalSnapshot{
		TsMs:    time.Now().UnixMilli(),
		Markets: books,
	}
	if b.counters != nil {
		b.counters.Heartbeats.Add(1)
		b.counters.MarketsInSnapshot.Store(int64(len(books)))
	}
	return snap, nil
}

// fetchTops issues chunked batch requests with bounded concurrency and
// resolves each returned book to its top of book. Each chunk writes into
// its own result slot, so no locking is needed around assembly.
func (b *Builder) fetchTops(ctx context.Context, tokenIDs []string) (map[string]domain.OutcomeTop, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.OutcomeTop{}, nil
	}

	var chunks [][]string
	for start := 0; start < len(tokenIDs); start += b.chunkSize {
		end := start + b.chunkSize
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}
		chunks = append(chunks, tokenIDs[start:end])
	}

	b.logger.Debug("fetching books in chunks",
		slog.Int("total_tokens", len(tokenIDs)),
		slog.Int("chunks", len(chunks)),
		slog.Int("chunk_size", b.chunkSize),
		slog.Int("concurrency", b.concurrency),
	)

	results := make([][]domain.OutcomeTop, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			raws, err := b.quotes.FetchBooks(ctx, chunk)
			if err != nil {
				return fmt.Errorf("snapshot: fetch chunk %d/%d: %w", i+1, len(chunks), err)
			}
			tops := make([]domain.OutcomeTop, 0, len(raws))
			for _, raw := range raws {
				tops = append(tops, book.Resolve(raw))
			}
			results[i] = tops
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tops := make(map[string]domain.OutcomeTop, len(tokenIDs))
	for _, chunkTops := range results {
		for _, top := range chunkTops {
			tops[top.TokenID] = top
		}
	}
	return tops, nil
}

// dedupeTokens flattens the markets' token lists into one request list,
// first occurrence order, duplicates removed.
func dedupeTokens(markets []domain.Market) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range markets {
		for _, tid := range m.TokenIDs {
			if _, ok := seen[tid]; ok {
				continue
			}
			seen[tid] = struct{}{}
			out = append(out, tid)
		}
	}
	return out
}
