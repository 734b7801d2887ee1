package domain

import "context"

// SignalBus is a publish/subscribe fabric bridging engine events to the
// UI-facing WebSocket hub. Channel names may contain glob-style wildcards on
// the subscribe side (e.g. "ch:book:*").
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Bus channel names published by the session coordinator.
const (
	BusBookPrefix = "ch:book:" // + assetID
	BusOrders     = "ch:orders"
	BusTrades     = "ch:trades"
	BusStatus     = "ch:status"
	BusLog        = "ch:log"
)
