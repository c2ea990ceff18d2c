package polymarket

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/bundlebot/internal/domain"
)

// --------------------------------------------------------------------------
// CLOB /markets DTOs
// --------------------------------------------------------------------------

// marketsPage is one page of the paginated GET /markets response.
type marketsPage struct {
	Data       []APIMarket `json:"data"`
	NextCursor string      `json:"next_cursor"`
	Limit      int         `json:"limit"`
	Count      int         `json:"count"`
}

// APIMarket is a market entry as returned by the CLOB /markets endpoint.
type APIMarket struct {
	ConditionID     string     `json:"condition_id"`
	Question        string     `json:"question"`
	MarketSlug      string     `json:"market_slug"`
	EnableOrderBook bool       `json:"enable_order_book"`
	AcceptingOrders bool       `json:"accepting_orders"`
	Closed          bool       `json:"closed"`
	Tokens          []APIToken `json:"tokens"`
}

// APIToken is one outcome token inside an APIMarket.
type APIToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// Tradable reports whether the market should enter the catalog: order book
// enabled, accepting orders, and not closed.
func (m *APIMarket) Tradable() bool {
	return m.EnableOrderBook && m.AcceptingOrders && !m.Closed
}

// ToDomainMarket converts an APIMarket to a domain.Market. The condition ID
// is the market identity everywhere downstream.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:       m.ConditionID,
		Question: m.Question,
		Slug:     m.MarketSlug,
		Status:   domain.MarketStatusActive,
	}
	if m.Closed {
		dm.Status = domain.MarketStatusClosed
	}
	for _, tok := range m.Tokens {
		dm.TokenIDs = append(dm.TokenIDs, tok.TokenID)
		dm.Outcomes = append(dm.Outcomes, tok.Outcome)
	}
	return dm
}

// --------------------------------------------------------------------------
// CLOB /books DTOs
// --------------------------------------------------------------------------

// booksRequestItem is one entry of the POST /books request body.
type booksRequestItem struct {
	TokenID string `json:"token_id"`
}

// APILevel is a single price level in a book summary. Prices and sizes
// arrive as decimal strings.
type APILevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIBook is the book summary for one token in the POST /books response.
type APIBook struct {
	AssetID string     `json:"asset_id"`
	Market  string     `json:"market"`
	Bids    []APILevel `json:"bids"`
	Asks    []APILevel `json:"asks"`
}

// ToRawBook converts an APIBook to a domain.RawBook. Levels that fail to
// parse as decimals are dropped rather than poisoning the book.
func (b *APIBook) ToRawBook() domain.RawBook {
	raw := domain.RawBook{TokenID: b.AssetID}
	raw.Bids = parseLevels(b.Bids)
	raw.Asks = parseLevels(b.Asks)
	return raw
}

func parseLevels(levels []APILevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		p, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			continue
		}
		s, err := decimal.NewFromString(lvl.Size)
		if err != nil {
			continue
		}
		out = append(out, domain.PriceLevel{Price: p, Size: s})
	}
	return out
}

// --------------------------------------------------------------------------
// CLOB /order DTOs
// --------------------------------------------------------------------------

// APIOrderResult is the response from placing an order.
type APIOrderResult struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg,omitempty"`
	OrderID      string `json:"orderID,omitempty"`
	Status       string `json:"status,omitempty"`
	MakingAmount string `json:"makingAmount,omitempty"`
	TakingAmount string `json:"takingAmount,omitempty"`
}

// ToFillOutcome maps the placement response onto a fill outcome for the
// given intent. A fill-or-kill order either matches in full or dies, so
// anything other than a matched status is a rejection.
func (r *APIOrderResult) ToFillOutcome(intent domain.OrderIntent) domain.FillOutcome {
	out := domain.FillOutcome{
		TokenID: intent.TokenID,
		OrderID: r.OrderID,
		Message: r.ErrorMsg,
	}

	// A "live" status would mean the order is resting, which a FOK order
	// never does; report it as a rejection rather than phantom exposure.
	if r.Success && r.Status == "matched" {
		out.Status = domain.FillStatusFilled
		out.FilledPrice = intent.Price
		out.FilledSize = intent.Size
		if v, err := decimal.NewFromString(r.TakingAmount); err == nil && v.IsPositive() {
			// takingAmount is in base token units scaled by 1e6.
			out.FilledSize = v.Shift(-6)
		}
		return out
	}

	out.Status = domain.FillStatusRejected
	if out.Message == "" {
		out.Message = "order not matched (status " + r.Status + ")"
	}
	return out
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSCommand is the JSON payload sent to the market channel to subscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}

// WSBook is a full book snapshot delivered on the "book" channel. It shares
// the level shape with the REST book summary.
type WSBook struct {
	AssetID   string     `json:"asset_id"`
	Market    string     `json:"market"`
	Bids      []APILevel `json:"bids"`
	Asks      []APILevel `json:"asks"`
	Timestamp string     `json:"timestamp"`
	Hash      string     `json:"hash"`
}

// ToRawBook converts a WSBook to a domain.RawBook.
func (b *WSBook) ToRawBook() domain.RawBook {
	return domain.RawBook{
		TokenID: b.AssetID,
		Bids:    parseLevels(b.Bids),
		Asks:    parseLevels(b.Asks),
	}
}
