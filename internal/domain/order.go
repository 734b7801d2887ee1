package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Outcome is the side of the binary market an order is placed on.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// TimeInForce is the policy governing how an order rests before cancellation.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good-Till-Cancelled
	TimeInForceGTD TimeInForce = "GTD" // Good-Till-Date
	TimeInForceFOK TimeInForce = "FOK" // Fill-Or-Kill
	TimeInForceFAK TimeInForce = "FAK" // Fill-And-Kill
)

// Immediate reports whether the policy requires immediate execution, i.e.
// the order never rests on the book.
func (t TimeInForce) Immediate() bool {
	return t == TimeInForceFOK || t == TimeInForceFAK
}

// OrderStatus tracks the order lifecycle as reported by the exchange.
type OrderStatus string

const (
	OrderStatusLive      OrderStatus = "live"
	OrderStatusMatched   OrderStatus = "matched"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order is one open order in the canonical collection. Orders are created
// from pull snapshots or inferred from a submit response, mutated only by
// re-fetch, and removed when a subsequent snapshot no longer contains them.
type Order struct {
	ID            string          `json:"id"`
	AssetID       string          `json:"asset_id"`
	Market        string          `json:"market"`
	Side          OrderSide       `json:"side"`
	Outcome       Outcome         `json:"outcome"`
	Price         decimal.Decimal `json:"price"`
	OriginalSize  decimal.Decimal `json:"original_size"`
	MatchedSize   decimal.Decimal `json:"matched_size"`
	RemainingSize decimal.Decimal `json:"remaining_size"`
	TimeInForce   TimeInForce     `json:"time_in_force"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderSpec is a request to place a new order.
type OrderSpec struct {
	AssetID     string          `json:"asset_id"`
	Market      string          `json:"market"`
	Side        OrderSide       `json:"side"`
	Outcome     Outcome         `json:"outcome"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	TimeInForce TimeInForce     `json:"time_in_force"`
}
