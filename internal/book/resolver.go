// Package book resolves raw orderbook levels into top-of-book quotes.
package book

import "github.com/alanyoungcy/bundlebot/internal/domain"

// BestBid scans all levels and returns the maximum-price bid, or nil when
// the side has no levels. Input order is never trusted: the quote source
// hands levels back unsorted and may repeat a price across multiple
// resting orders. At equal price the level with more size wins, so the
// returned quote reflects the most executable liquidity.
func BestBid(levels []domain.PriceLevel) *domain.Quote {
	var best *domain.PriceLevel
	for i := range levels {
		l := &levels[i]
		if best == nil || l.Price.GreaterThan(best.Price) ||
			(l.Price.Equal(best.Price) && l.Size.GreaterThan(best.Size)) {
			best = l
		}
	}
	if best == nil {
		return nil
	}
	return &domain.Quote{Price: best.Price, Size: best.Size}
}

// BestAsk scans all levels and returns the minimum-price ask, or nil when
// the side has no levels. Same tie-break as BestBid: larger size wins at
// equal price.
func BestAsk(levels []domain.PriceLevel) *domain.Quote {
	var best *domain.PriceLevel
	for i := range levels {
		l := &levels[i]
		if best == nil || l.Price.LessThan(best.Price) ||
			(l.Price.Equal(best.Price) && l.Size.GreaterThan(best.Size)) {
			best = l
		}
	}
	if best == nil {
		return nil
	}
	return &domain.Quote{Price: best.Price, Size: best.Size}
}

// Resolve converts a raw level dump into the resolved top of book for one
// outcome token.
func Resolve(raw domain.RawBook) domain.OutcomeTop {
	return domain.OutcomeTop{
		TokenID: raw.TokenID,
		Bid:     BestBid(raw.Bids),
		Ask:     BestAsk(raw.Asks),
	}
}
