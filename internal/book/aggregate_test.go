package book

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clobdeck/internal/domain"
)

func realLevels(levels []domain.AggregatedLevel) []domain.AggregatedLevel {
	var out []domain.AggregatedLevel
	for _, l := range levels {
		if !l.Empty {
			out = append(out, l)
		}
	}
	return out
}

func TestAggregateScenario(t *testing.T) {
	b, errs := Aggregate("asset-1",
		[]RawLevel{{"0.65", "100"}, {"0.64", "150"}},
		[]RawLevel{{"0.66", "100"}},
	)

	require.Empty(t, errs)

	bids := realLevels(b.Bids)
	require.Len(t, bids, 2)
	assert.True(t, bids[0].Price.Equal(decimal.RequireFromString("0.65")))
	assert.True(t, bids[0].Size.Equal(decimal.NewFromInt(100)))
	assert.True(t, bids[0].CumulativeSize.Equal(decimal.NewFromInt(100)))
	assert.True(t, bids[1].Price.Equal(decimal.RequireFromString("0.64")))
	assert.True(t, bids[1].CumulativeSize.Equal(decimal.NewFromInt(250)))

	assert.True(t, b.Spread.Equal(decimal.RequireFromString("0.01")),
		"spread: got %s", b.Spread)
}

func TestAggregateSortsAndAccumulates(t *testing.T) {
	b, errs := Aggregate("asset-1",
		[]RawLevel{{"0.61", "10"}, {"0.65", "20"}, {"0.63", "30"}},
		[]RawLevel{{"0.70", "5"}, {"0.66", "7"}, {"0.68", "9"}},
	)
	require.Empty(t, errs)

	bids := realLevels(b.Bids)
	for i := 1; i < len(bids); i++ {
		assert.True(t, bids[i].Price.LessThan(bids[i-1].Price), "bids must be strictly descending")
		assert.True(t, bids[i].CumulativeSize.GreaterThanOrEqual(bids[i-1].CumulativeSize),
			"bid cumulative size must be monotonic")
	}
	asks := realLevels(b.Asks)
	for i := 1; i < len(asks); i++ {
		assert.True(t, asks[i].Price.GreaterThan(asks[i-1].Price), "asks must be strictly ascending")
		assert.True(t, asks[i].CumulativeSize.GreaterThanOrEqual(asks[i-1].CumulativeSize),
			"ask cumulative size must be monotonic")
	}

	total := decimal.Zero
	for _, l := range bids {
		total = total.Add(l.Size)
	}
	assert.True(t, bids[len(bids)-1].CumulativeSize.Equal(total),
		"last cumulative size must equal the side total")
}

func TestAggregatePadding(t *testing.T) {
	b, errs := Aggregate("asset-1",
		[]RawLevel{{"0.65", "100"}, {"0.64", "150"}},
		[]RawLevel{{"0.66", "100"}},
	)
	require.Empty(t, errs)

	require.Len(t, b.Bids, DisplayDepth)
	require.Len(t, b.Asks, DisplayDepth)

	// Bids are padded at the far end: real levels first, sentinels after.
	assert.False(t, b.Bids[0].Empty)
	assert.False(t, b.Bids[1].Empty)
	for _, l := range b.Bids[2:] {
		assert.True(t, l.Empty)
	}

	// Asks are padded at the near end: sentinels first, real levels anchored
	// at the spread row.
	for _, l := range b.Asks[:DisplayDepth-1] {
		assert.True(t, l.Empty)
	}
	assert.False(t, b.Asks[DisplayDepth-1].Empty)
}

func TestAggregateEmptySide(t *testing.T) {
	b, errs := Aggregate("asset-1", nil, []RawLevel{{"0.66", "100"}})
	require.Empty(t, errs)

	require.Len(t, b.Bids, DisplayDepth)
	for _, l := range b.Bids {
		assert.True(t, l.Empty)
	}
	assert.True(t, b.Spread.IsZero(), "spread must be zero when a side is empty")

	b, errs = Aggregate("asset-1", nil, nil)
	require.Empty(t, errs)
	assert.True(t, b.Spread.IsZero())
	require.Len(t, b.Asks, DisplayDepth)
}

func TestAggregateTruncatesToDepth(t *testing.T) {
	var bids []RawLevel
	for i := 0; i < 12; i++ {
		bids = append(bids, RawLevel{decimal.NewFromFloat(0.90 - float64(i)*0.01).String(), "10"})
	}
	b, errs := Aggregate("asset-1", bids, nil)
	require.Empty(t, errs)

	require.Len(t, b.Bids, DisplayDepth)
	for _, l := range b.Bids {
		assert.False(t, l.Empty, "truncated side keeps only real levels")
	}
	best, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, best.Price.Equal(decimal.RequireFromString("0.9")))
}

func TestAggregateSkipsMalformedEntries(t *testing.T) {
	b, errs := Aggregate("asset-1",
		[]RawLevel{{"0.65", "100"}, {"garbage", "100"}, {"0.64", "oops"}},
		nil,
	)

	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.True(t, errors.Is(err, domain.ErrParse))
	}
	assert.Len(t, realLevels(b.Bids), 1, "valid entries survive malformed neighbours")
}

func TestAggregateCrossedBookPassesThrough(t *testing.T) {
	b, errs := Aggregate("asset-1",
		[]RawLevel{{"0.70", "100"}},
		[]RawLevel{{"0.60", "100"}},
	)
	require.Empty(t, errs)

	bid, _ := b.BestBid()
	ask, _ := b.BestAsk()
	assert.True(t, bid.Price.GreaterThan(ask.Price), "crossed book must not be corrected")
	assert.True(t, b.Spread.Equal(decimal.RequireFromString("-0.1")))
}

func TestAggregateAvoidsFloatAccumulationError(t *testing.T) {
	var bids []RawLevel
	for i := 0; i < DisplayDepth; i++ {
		bids = append(bids, RawLevel{decimal.NewFromFloat(0.65 - float64(i)*0.01).String(), "0.1"})
	}
	b, errs := Aggregate("asset-1", bids, nil)
	require.Empty(t, errs)

	last := realLevels(b.Bids)[DisplayDepth-1]
	assert.True(t, last.CumulativeSize.Equal(decimal.RequireFromString("0.8")),
		"0.1 summed 8 times must be exactly 0.8, got %s", last.CumulativeSize)
}
