package domain

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive MarketStatus = "active"
	MarketStatusClosed MarketStatus = "closed"
)

// Market is the immutable identity of a tradable multi-outcome market.
// TokenIDs and Outcomes are parallel slices; the order matches the
// exchange's own outcome ordering and is significant everywhere downstream.
type Market struct {
	ID       string   // condition ID on the CLOB
	Question string
	Slug     string
	Outcomes []string // e.g. ["Yes","No"] or candidate names
	TokenIDs []string // ERC-1155 token IDs (76-digit strings)
	Status   MarketStatus
}

// OutcomeCount returns the number of outcome tokens.
func (m Market) OutcomeCount() int { return len(m.TokenIDs) }
