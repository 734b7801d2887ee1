package book

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clobdeck/internal/domain"
)

func TestParseFrameArrayShape(t *testing.T) {
	raw := []byte(`[
		{"event_type":"book","asset_id":"a1",
		 "bids":[["0.65","100"],["0.64","150"]],
		 "asks":[["0.66","100"]]},
		{"event_type":"price_change","asset_id":"a1","price":"0.65","size":"10"}
	]`)

	snaps, err := ParseFrame(raw)
	require.NoError(t, err)
	require.Len(t, snaps, 1, "non-book events in the batch are ignored")

	assert.Equal(t, "a1", snaps[0].AssetID)
	require.Len(t, snaps[0].Bids, 2)
	assert.Equal(t, RawLevel{"0.65", "100"}, snaps[0].Bids[0])
	require.Len(t, snaps[0].Asks, 1)
	assert.Equal(t, RawLevel{"0.66", "100"}, snaps[0].Asks[0])
}

func TestParseFrameObjectShape(t *testing.T) {
	raw := []byte(`{"asset_id":"a2",
		"bids":[{"price":"0.40","size":"5"}],
		"asks":[{"price":0.42,"size":7}]}`)

	snaps, err := ParseFrame(raw)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	assert.Equal(t, "a2", snaps[0].AssetID)
	assert.Equal(t, RawLevel{"0.40", "5"}, snaps[0].Bids[0])
	assert.Equal(t, RawLevel{"0.42", "7"}, snaps[0].Asks[0], "bare numbers are normalized to strings")
}

func TestParseFrameMalformed(t *testing.T) {
	_, err := ParseFrame([]byte(`{not json`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestParseFrameUnrelatedObject(t *testing.T) {
	snaps, err := ParseFrame([]byte(`{"event_type":"last_trade_price","asset_id":"a1","price":"0.5"}`))
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
