package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed fill in the canonical collection. Side always
// reflects the caller's economic action: a fill reported on the passive side
// of a match has its wire direction inverted before it gets here. Trades are
// immutable once created; the collection is append-only.
type Trade struct {
	ID             string          `json:"id"`
	AssetID        string          `json:"asset_id"`
	Market         string          `json:"market"`
	Side           OrderSide       `json:"side"`
	Price          decimal.Decimal `json:"price"`
	Size           decimal.Decimal `json:"size"`
	OccurredAt     time.Time       `json:"occurred_at"`
	CounterOrderID string          `json:"counter_order_id,omitempty"`
}
