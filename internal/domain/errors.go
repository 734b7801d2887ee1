package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrConfig means a channel or client was given unusable configuration
	// (e.g. an empty endpoint). Fatal to that channel only.
	ErrConfig = errors.New("invalid configuration")

	// ErrTransport is a socket-level failure; it triggers backoff reconnect.
	ErrTransport = errors.New("transport failure")

	// ErrParse is a malformed inbound frame; dropped and logged, the channel
	// survives.
	ErrParse = errors.New("malformed payload")

	// ErrRejected means the exchange declined an order or cancel. Surfaced to
	// the caller, never retried automatically.
	ErrRejected = errors.New("rejected by exchange")

	// ErrNetwork is a failed pull request; the collection stays at its
	// last-known-good state until the next timer tick.
	ErrNetwork = errors.New("network failure")

	// ErrAuth is an authentication or authorization failure on a pull request.
	ErrAuth = errors.New("unauthorized")

	// ErrClosed means the resource was deliberately closed.
	ErrClosed = errors.New("closed")
)

// RejectionError carries the raw exchange response for a declined order or
// cancel so the caller can display the real reason.
type RejectionError struct {
	Status string
	Reason string
	Raw    json.RawMessage
}

func (e *RejectionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("rejected by exchange: %s", e.Reason)
	}
	return fmt.Sprintf("rejected by exchange: status %q", e.Status)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }
