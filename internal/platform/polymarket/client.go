// Package polymarket is the REST client for the Polymarket CLOB API. It owns
// the pull side of the engine: open-order and trade snapshots, order
// submission, and cancellation. Order signing is deliberately external: a
// RequestSigner supplied by the caller attaches whatever authentication the
// deployment uses.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clobdeck/internal/domain"
	"clobdeck/internal/logstore"
)

// RequestSigner attaches authentication material to an outgoing request.
// The engine never inspects or produces signatures itself.
type RequestSigner interface {
	Sign(req *http.Request) error
}

// Client talks to the CLOB REST API and mirrors every call into the session
// log as "METHOD path [identity] latency_ms" with the raw response attached.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     RequestSigner
	log        *logstore.Store
	identity   string
}

// NewClient creates a CLOB REST client.
//
// baseURL is the API root, e.g. "https://clob.polymarket.com". identity
// labels log lines for the credential set this client serves. signer may be
// nil for unauthenticated deployments.
func NewClient(baseURL, identity string, signer RequestSigner, log *logstore.Store) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:   signer,
		log:      log,
		identity: identity,
	}
}

// FetchOpenOrders returns the current open-order snapshot.
func (c *Client) FetchOpenOrders(ctx context.Context) ([]domain.OpenOrderRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/data/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket: fetch open orders: %w", err)
	}

	var records []domain.OpenOrderRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("polymarket: decode orders: %w", domain.ErrParse)
	}
	return records, nil
}

// FetchTrades returns the trade-history snapshot.
func (c *Client) FetchTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/data/trades", nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket: fetch trades: %w", err)
	}

	var records []domain.TradeRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("polymarket: decode trades: %w", domain.ErrParse)
	}
	return records, nil
}

// SubmitOrder posts a new order. Immediate time-in-force policies take the
// market-order path; resting policies take the limit path.
func (c *Client) SubmitOrder(ctx context.Context, spec domain.OrderSpec) (domain.SubmitResult, error) {
	payload := map[string]any{
		"order": map[string]any{
			"tokenID": spec.AssetID,
			"market":  spec.Market,
			"side":    string(spec.Side),
			"outcome": string(spec.Outcome),
			"price":   spec.Price.String(),
			"size":    spec.Size.String(),
		},
		"orderType": string(spec.TimeInForce),
	}

	path := "/order"
	if spec.TimeInForce.Immediate() {
		path = "/market-order"
	}

	body, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("polymarket: submit order: %w", err)
	}

	var result domain.SubmitResult
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("polymarket: decode submit response: %w", domain.ErrParse)
	}
	result.Raw = json.RawMessage(body)
	return result, nil
}

// CancelOrder cancels a single order by ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (domain.CancelResult, error) {
	body, err := c.do(ctx, http.MethodDelete, "/order", map[string]any{"orderID": orderID})
	if err != nil {
		return domain.CancelResult{}, fmt.Errorf("polymarket: cancel order %s: %w", orderID, err)
	}
	return decodeCancel(body)
}

// CancelAll cancels every open order for this identity.
func (c *Client) CancelAll(ctx context.Context) (domain.CancelResult, error) {
	body, err := c.do(ctx, http.MethodDelete, "/cancel-all", nil)
	if err != nil {
		return domain.CancelResult{}, fmt.Errorf("polymarket: cancel all: %w", err)
	}
	return decodeCancel(body)
}

func decodeCancel(body []byte) (domain.CancelResult, error) {
	var result domain.CancelResult
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.CancelResult{}, fmt.Errorf("polymarket: decode cancel response: %w", domain.ErrParse)
	}
	result.Raw = json.RawMessage(body)
	return result, nil
}

// do executes one request, records its latency and raw outcome in the
// session log, and classifies failures into the engine's error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.signer != nil {
		if err := c.signer.Sign(req); err != nil {
			return nil, fmt.Errorf("sign request: %w: %v", domain.ErrAuth, err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)

	line := func(suffix string) string {
		return fmt.Sprintf("%s %s [%s] %dms%s", method, path, c.identity, latency.Milliseconds(), suffix)
	}

	if err != nil {
		c.log.Append(domain.LogError, line(": "+err.Error()), nil)
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Append(domain.LogError, line(": read body: "+err.Error()), nil)
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.log.Append(domain.LogError, line(fmt.Sprintf(": status %d", resp.StatusCode)), body)
		return nil, fmt.Errorf("%w: status %d", domain.ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Append(domain.LogError, line(fmt.Sprintf(": status %d", resp.StatusCode)), body)
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrNetwork, resp.StatusCode, truncate(body))
	}

	c.log.Append(domain.LogInfo, line(""), body)
	return body, nil
}

// truncate keeps error strings readable when the exchange returns a page of
// HTML instead of JSON.
func truncate(body []byte) string {
	const max = 256
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}

// Compile-time interface check.
var _ domain.ExchangeClient = (*Client)(nil)
