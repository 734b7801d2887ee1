package domain

import (
	"encoding/json"
	"time"
)

// LogCategory classifies a session log entry.
type LogCategory string

const (
	LogSend    LogCategory = "send"
	LogReceive LogCategory = "receive"
	LogError   LogCategory = "error"
	LogInfo    LogCategory = "info"
)

// LogEntry is one immutable record of an engine event. Ordering is arrival
// order; Payload carries the raw wire document when one exists.
type LogEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Category  LogCategory     `json:"type"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
