// Package polymarket is the REST and WebSocket client layer for the
// Polymarket CLOB (Central Limit Order Book) API. It implements the domain
// catalog, quote, and order submission ports.
package polymarket

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/bundlebot/internal/crypto"
	"github.com/alanyoungcy/bundlebot/internal/domain"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// maxSalt bounds the random order salt to 63 bits.
var maxSalt = new(big.Int).Lsh(big.NewInt(1), 63)

// Client is the CLOB REST client. Market catalog and book reads work
// unauthenticated; order submission additionally needs a signer and HMAC
// credentials via EnableTrading.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	signer *crypto.Signer
	auth   *crypto.HMACAuth
}

// NewClient creates a read-only CLOB client. baseURL is the API root, e.g.
// "https://clob.polymarket.com". rps caps outgoing requests per second;
// zero or negative disables the cap.
func NewClient(baseURL string, rps float64, burst int, logger *slog.Logger) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With(slog.String("component", "clob_client")),
	}
}

// EnableTrading attaches the EIP-712 signer and L2 credentials required by
// SubmitFOK. Call DeriveAPIKey instead when only the signer is at hand.
func (c *Client) EnableTrading(signer *crypto.Signer, auth *crypto.HMACAuth) {
	c.signer = signer
	c.auth = auth
}

// FetchOpenMarkets walks the paginated /markets endpoint and returns up to
// maxMarkets tradable markets: order book enabled, accepting orders, not
// closed, at least one token.
func (c *Client) FetchOpenMarkets(ctx context.Context, maxMarkets int) ([]domain.Market, error) {
	var out []domain.Market
	cursor := ""

	for {
		path := "/markets"
		if cursor != "" {
			path += "?next_cursor=" + url.QueryEscape(cursor)
		}

		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("polymarket/clob: fetch markets: %w", err)
		}

		var page marketsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("polymarket/clob: decode markets page: %w", err)
		}

		for i := range page.Data {
			m := &page.Data[i]
			if !m.Tradable() || len(m.Tokens) == 0 {
				continue
			}
			out = append(out, m.ToDomainMarket())
			if len(out) >= maxMarkets {
				return out, nil
			}
		}

		// "LTE=" is the terminal cursor on the CLOB pagination.
		cursor = page.NextCursor
		if cursor == "" || cursor == "LTE=" {
			break
		}
	}

	return out, nil
}

// FetchBooks posts the token list to /books and returns one raw book per
// token the venue answered for. Callers chunk the token list; this method
// sends exactly what it is given.
func (c *Client) FetchBooks(ctx context.Context, tokenIDs []string) ([]domain.RawBook, error) {
	req := make([]booksRequestItem, 0, len(tokenIDs))
	for _, t := range tokenIDs {
		req = append(req, booksRequestItem{TokenID: t})
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/books", req)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: fetch books: %w", err)
	}

	var books []APIBook
	if err := json.Unmarshal(body, &books); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode books: %w", err)
	}

	out := make([]domain.RawBook, 0, len(books))
	for i := range books {
		out = append(out, books[i].ToRawBook())
	}
	return out, nil
}

// SubmitFOK signs and posts one intent as a fill-or-kill order. Venue
// rejections come back as a rejected FillOutcome with a nil error; the
// error return covers transport and signing failures only.
func (c *Client) SubmitFOK(ctx context.Context, intent domain.OrderIntent) (domain.FillOutcome, error) {
	if c.signer == nil || c.auth == nil {
		return domain.FillOutcome{}, fmt.Errorf("polymarket/clob: trading not enabled: %w", domain.ErrUnauthorized)
	}

	payload, err := c.buildOrderPayload(intent)
	if err != nil {
		return domain.FillOutcome{}, err
	}

	sig, err := c.signer.SignOrder(payload)
	if err != nil {
		return domain.FillOutcome{}, fmt.Errorf("polymarket/clob: %w: %v", domain.ErrSigningFailed, err)
	}

	body := map[string]any{
		"order": map[string]any{
			"salt":          payload.Salt,
			"maker":         payload.Maker,
			"signer":        payload.Signer,
			"taker":         payload.Taker,
			"tokenId":       payload.TokenID,
			"makerAmount":   payload.MakerAmount,
			"takerAmount":   payload.TakerAmount,
			"expiration":    payload.Expiration,
			"nonce":         payload.Nonce,
			"feeRateBps":    payload.FeeRateBps,
			"side":          sideString(intent.Side),
			"signatureType": payload.SignatureType,
			"signature":     sig,
		},
		"owner":     c.auth.Key,
		"orderType": "FOK",
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return domain.FillOutcome{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var result APIOrderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return domain.FillOutcome{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}

	c.logger.Debug("order placed",
		slog.String("token_id", intent.TokenID),
		slog.String("order_id", result.OrderID),
		slog.String("status", result.Status),
		slog.Bool("success", result.Success),
	)

	return result.ToFillOutcome(intent), nil
}

// DeriveAPIKey runs the L1 auth flow: sign a ClobAuth message, send it with
// POLY_* L1 headers, and store the returned HMAC credentials on the client.
func (c *Client) DeriveAPIKey(ctx context.Context) error {
	if c.signer == nil {
		return fmt.Errorf("polymarket/clob: no signer configured: %w", domain.ErrUnauthorized)
	}

	address := c.signer.Address().Hex()
	timestamp := time.Now().Unix()
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(address, timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", fmt.Sprintf("%d", timestamp))
	req.Header.Set("POLY_NONCE", fmt.Sprintf("%d", nonce))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket/clob: auth failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.auth = &crypto.HMACAuth{
		Key:        authResp.APIKey,
		Secret:     authResp.Secret,
		Passphrase: authResp.Passphrase,
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// buildOrderPayload converts an intent into the signed order fields. Maker
// and taker amounts are fixed-point with 6 decimals: for a buy the maker
// amount is collateral (price * size), the taker amount is shares.
func (c *Client) buildOrderPayload(intent domain.OrderIntent) (crypto.OrderPayload, error) {
	salt, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return crypto.OrderPayload{}, fmt.Errorf("polymarket/clob: generate salt: %w", err)
	}

	shares := intent.Size.Shift(6).Round(0)
	collateral := intent.Price.Mul(intent.Size).Shift(6).Round(0)
	if !shares.IsPositive() || !collateral.IsPositive() {
		return crypto.OrderPayload{}, fmt.Errorf("polymarket/clob: %w: non-positive amounts for token %s", domain.ErrInvalidOrder, intent.TokenID)
	}

	makerAmount, takerAmount := collateral, shares
	side := 0
	if intent.Side == domain.OrderSideSell {
		makerAmount, takerAmount = shares, collateral
		side = 1
	}

	address := c.signer.Address().Hex()
	return crypto.OrderPayload{
		Salt:          salt.String(),
		Maker:         address,
		Signer:        address,
		Taker:         zeroAddress,
		TokenID:       intent.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          side,
		SignatureType: 0,
	}, nil
}

func sideString(side domain.OrderSide) string {
	if side == domain.OrderSideSell {
		return "SELL"
	}
	return "BUY"
}

// doRequest rate-limits, builds, optionally HMAC-signs, and sends one HTTP
// request, returning the raw response body.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.auth != nil && c.signer != nil {
		headers := c.auth.L2Headers(c.signer.Address().Hex(), method, path, bodyStr)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
