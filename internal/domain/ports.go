package domain

import "context"

// QuoteSource fetches raw bid/ask levels for a bounded list of token IDs.
// A failed call fails the whole batch; levels carry no ordering guarantee.
type QuoteSource interface {
	FetchBooks(ctx context.Context, tokenIDs []string) ([]RawBook, error)
}

// MarketCatalog returns the current list of tradable markets. Filtering and
// pagination policy belong to the implementation, not the callers.
type MarketCatalog interface {
	FetchOpenMarkets(ctx context.Context, maxMarkets int) ([]Market, error)
}

// OrderSubmitter places one leg as a fill-or-kill order. Implementations
// must be safe for concurrent invocation: all legs of a bundle are
// submitted at once.
type OrderSubmitter interface {
	SubmitFOK(ctx context.Context, intent OrderIntent) (FillOutcome, error)
}

// ReportPublisher receives bundle reconciliation reports for external
// consumers (stream, dashboard). Publishing is best-effort; failures are
// logged by callers, never allowed to block reconciliation.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report BundleReport) error
}

// CooldownGuard rate-limits repeat bundles on the same market. Allow
// returns false while the market is still cooling down from a prior
// emission. A nil guard means no cooldown.
type CooldownGuard interface {
	Allow(ctx context.Context, marketID string) (bool, error)
}

// BlobWriter stores a small object under a key (stats archives, report
// dumps). Implemented by the S3 blob package.
type BlobWriter interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
