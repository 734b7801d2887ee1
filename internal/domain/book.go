package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+size entry on one side of an orderbook.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// AggregatedLevel is a display-ready orderbook level. CumulativeSize is the
// running sum of Size over all levels at or better than Price on that side.
// Empty marks a padding level inserted to keep a fixed display depth.
type AggregatedLevel struct {
	Price          decimal.Decimal `json:"price"`
	Size           decimal.Decimal `json:"size"`
	CumulativeSize decimal.Decimal `json:"cumulative_size"`
	Empty          bool            `json:"empty,omitempty"`
}

// Book is the aggregated two-sided orderbook for one asset. Bids are sorted
// strictly descending by price and asks strictly ascending, each padded or
// truncated to a fixed display depth. A book is replaced wholesale on every
// snapshot; it is never patched incrementally.
type Book struct {
	AssetID   string            `json:"asset_id"`
	Bids      []AggregatedLevel `json:"bids"`
	Asks      []AggregatedLevel `json:"asks"`
	Spread    decimal.Decimal   `json:"spread"`
	Timestamp time.Time         `json:"timestamp"`
}

// BestBid returns the highest non-empty bid level, if any.
func (b Book) BestBid() (AggregatedLevel, bool) {
	for _, lvl := range b.Bids {
		if !lvl.Empty {
			return lvl, true
		}
	}
	return AggregatedLevel{}, false
}

// BestAsk returns the lowest non-empty ask level, if any.
func (b Book) BestAsk() (AggregatedLevel, bool) {
	for _, lvl := range b.Asks {
		if !lvl.Empty {
			return lvl, true
		}
	}
	return AggregatedLevel{}, false
}
