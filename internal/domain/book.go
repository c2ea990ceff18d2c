package domain

import "github.com/shopspring/decimal"

// PriceLevel is a single price+size entry in an orderbook. Levels arrive
// from the quote source in no particular order and may repeat a price.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Quote is one side of the top of book: the best resting price and the
// size available at it.
type Quote struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// RawBook is the unprocessed bid/ask level dump for one outcome token, as
// returned by the quote-fetch collaborator.
type RawBook struct {
	TokenID string
	Bids    []PriceLevel
	Asks    []PriceLevel
}

// OutcomeTop is the resolved top of book for one outcome token. A nil side
// means no resting liquidity; any computation that needs that side must
// treat the market as undecidable rather than default to zero.
type OutcomeTop struct {
	TokenID string
	Bid     *Quote
	Ask     *Quote
}

// MarketBook pairs a market with the resolved tops of every outcome token,
// in the same order as the Market's TokenIDs.
type MarketBook struct {
	MarketID string
	Question string
	Outcomes []OutcomeTop
}

// GlobalSnapshot is one consistent capture of every tracked market's books.
// It is immutable once built; a new snapshot replaces the old one each
// cycle and no component holds a mutable handle.
type GlobalSnapshot struct {
	TsMs    int64 // wall clock at assembly completion, ms since epoch
	Markets []MarketBook
}
