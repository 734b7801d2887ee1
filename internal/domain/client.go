package domain

import (
	"context"
	"encoding/json"
)

// OpenOrderRecord is one open order as returned by the exchange's pull
// endpoint, still in the exchange's own vocabulary. Mapping into canonical
// enums happens at the reconciler boundary.
type OpenOrderRecord struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`    // "BUY" or "SELL"
	Outcome      string `json:"outcome"` // "Yes" or "No"
	OrderType    string `json:"order_type"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	CreatedAt    int64  `json:"created_at"` // unix seconds
}

// TradeRecord is one fill as returned by the exchange's pull endpoint.
// TraderSide reports the caller's role in the match: "TAKER" (aggressor) or
// "MAKER" (passive).
type TradeRecord struct {
	ID           string `json:"id"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"` // direction of the taker order
	Price        string `json:"price"`
	Size         string `json:"size"`
	MatchTime    string `json:"match_time"` // unix seconds as string
	TakerOrderID string `json:"taker_order_id"`
	TraderSide   string `json:"trader_side"`
}

// SubmitResult is the exchange's response to an order submission. Raw
// preserves the exact wire payload for diagnostics.
type SubmitResult struct {
	Success  bool            `json:"success"`
	OrderID  string          `json:"orderID"`
	Status   string          `json:"status"`
	ErrorMsg string          `json:"errorMsg"`
	Raw      json.RawMessage `json:"-"`
}

// CancelResult is the exchange's response to a cancel or cancel-all.
type CancelResult struct {
	Success  bool            `json:"success"`
	ErrorMsg string          `json:"errorMsg"`
	Raw      json.RawMessage `json:"-"`
}

// ExchangeClient is the external exchange collaborator. It owns order
// signing and HTTP transport internals; the engine consumes only these five
// calls. Implementations report failures as ErrNetwork or ErrAuth.
type ExchangeClient interface {
	FetchOpenOrders(ctx context.Context) ([]OpenOrderRecord, error)
	FetchTrades(ctx context.Context) ([]TradeRecord, error)
	SubmitOrder(ctx context.Context, spec OrderSpec) (SubmitResult, error)
	CancelOrder(ctx context.Context, orderID string) (CancelResult, error)
	CancelAll(ctx context.Context) (CancelResult, error)
}
