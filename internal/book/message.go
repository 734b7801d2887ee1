package book

import (
	"encoding/json"
	"fmt"

	"clobdeck/internal/domain"
)

// Snapshot is one normalized full-depth book event extracted from an inbound
// frame, with levels still unparsed.
type Snapshot struct {
	AssetID string
	Bids    []RawLevel
	Asks    []RawLevel
}

// flexString unmarshals from a JSON string or a bare number, since the feed
// quotes prices inconsistently.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// wireLevel accepts either the ["price","size"] pair shape or the
// {"price":..,"size":..} object shape used interchangeably by the feed.
type wireLevel struct {
	Price string
	Size  string
}

func (l *wireLevel) UnmarshalJSON(data []byte) error {
	var pair [2]flexString
	if err := json.Unmarshal(data, &pair); err == nil {
		l.Price = string(pair[0])
		l.Size = string(pair[1])
		return nil
	}
	var obj struct {
		Price flexString `json:"price"`
		Size  flexString `json:"size"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Price = string(obj.Price)
	l.Size = string(obj.Size)
	return nil
}

// wireBook is one book event as sent on the market channel.
type wireBook struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
}

func (w wireBook) snapshot() Snapshot {
	snap := Snapshot{
		AssetID: w.AssetID,
		Bids:    make([]RawLevel, len(w.Bids)),
		Asks:    make([]RawLevel, len(w.Asks)),
	}
	for i, l := range w.Bids {
		snap.Bids[i] = RawLevel(l)
	}
	for i, l := range w.Asks {
		snap.Asks[i] = RawLevel(l)
	}
	return snap
}

// ParseFrame normalizes a raw market-channel frame into book snapshots. The
// feed sends either an array of event objects or a single object; both
// shapes are accepted here so nothing downstream ever touches the raw
// payload. Frames that are valid JSON but not book events return an empty
// slice; malformed frames return ErrParse.
func ParseFrame(raw []byte) ([]Snapshot, error) {
	var batch []wireBook
	if err := json.Unmarshal(raw, &batch); err == nil {
		return collect(batch), nil
	}

	var single wireBook
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("book: frame: %w", domain.ErrParse)
	}
	return collect([]wireBook{single}), nil
}

func collect(events []wireBook) []Snapshot {
	var snaps []Snapshot
	for _, ev := range events {
		// A single-object frame carries no event_type; an array frame tags
		// each element. Anything tagged as a non-book event is not ours.
		if ev.EventType != "" && ev.EventType != "book" {
			continue
		}
		if ev.AssetID == "" && len(ev.Bids) == 0 && len(ev.Asks) == 0 {
			continue
		}
		snaps = append(snaps, ev.snapshot())
	}
	return snaps
}
