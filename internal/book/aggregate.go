// Package book converts raw orderbook snapshots into normalized,
// depth-limited, cumulative books for display. Aggregation is stateless: a
// snapshot always replaces the prior book for its asset wholesale, so a
// missed delta can never desynchronize the view.
package book

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"clobdeck/internal/domain"
)

// DisplayDepth is the fixed number of levels kept per side.
const DisplayDepth = 8

// RawLevel is one unparsed price level from the wire.
type RawLevel struct {
	Price string
	Size  string
}

// Aggregate builds a Book from raw bid and ask levels. Entries that fail to
// parse are skipped and reported in the returned error slice; they never
// abort the snapshot. Bids come out strictly descending by price, asks
// strictly ascending, each with a running cumulative size and padded or
// truncated to DisplayDepth. Crossed books are passed through uncorrected.
func Aggregate(assetID string, rawBids, rawAsks []RawLevel) (domain.Book, []error) {
	var errs []error

	bids, bidErrs := parseLevels("bid", rawBids)
	errs = append(errs, bidErrs...)
	asks, askErrs := parseLevels("ask", rawAsks)
	errs = append(errs, askErrs...)

	// Bids best-to-worst is descending price; asks best-to-worst is ascending.
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })

	book := domain.Book{
		AssetID:   assetID,
		Bids:      padFar(accumulate(bids)),
		Asks:      padNear(accumulate(asks)),
		Timestamp: time.Now().UTC(),
	}
	book.Spread = spread(book)
	return book, errs
}

func parseLevels(side string, raw []RawLevel) ([]domain.PriceLevel, []error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	var errs []error
	for _, r := range raw {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			errs = append(errs, fmt.Errorf("book: %s price %q: %w", side, r.Price, domain.ErrParse))
			continue
		}
		size, err := decimal.NewFromString(r.Size)
		if err != nil {
			errs = append(errs, fmt.Errorf("book: %s size %q: %w", side, r.Size, domain.ErrParse))
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Size: size})
	}
	return levels, errs
}

// accumulate computes the running sum of size in best-to-worst order.
func accumulate(levels []domain.PriceLevel) []domain.AggregatedLevel {
	out := make([]domain.AggregatedLevel, 0, len(levels))
	cum := decimal.Zero
	for _, lvl := range levels {
		cum = cum.Add(lvl.Size)
		out = append(out, domain.AggregatedLevel{
			Price:          lvl.Price,
			Size:           lvl.Size,
			CumulativeSize: cum,
		})
	}
	return out
}

// padFar truncates to DisplayDepth or appends sentinel levels at the end
// farthest from the spread. Used for bids so real liquidity stays at the top
// of the ladder next to the spread row.
func padFar(levels []domain.AggregatedLevel) []domain.AggregatedLevel {
	if len(levels) >= DisplayDepth {
		return levels[:DisplayDepth]
	}
	out := make([]domain.AggregatedLevel, 0, DisplayDepth)
	out = append(out, levels...)
	for len(out) < DisplayDepth {
		out = append(out, domain.AggregatedLevel{Empty: true})
	}
	return out
}

// padNear truncates to DisplayDepth or prepends sentinel levels at the end
// nearest the spread. Used for asks so real liquidity stays anchored next to
// the spread row when the ladder is rendered above it.
func padNear(levels []domain.AggregatedLevel) []domain.AggregatedLevel {
	if len(levels) >= DisplayDepth {
		return levels[:DisplayDepth]
	}
	out := make([]domain.AggregatedLevel, 0, DisplayDepth)
	for i := len(levels); i < DisplayDepth; i++ {
		out = append(out, domain.AggregatedLevel{Empty: true})
	}
	return append(out, levels...)
}

// spread is bestAsk − bestBid, or zero when either side is empty.
func spread(b domain.Book) decimal.Decimal {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero
	}
	return ask.Price.Sub(bid.Price)
}
