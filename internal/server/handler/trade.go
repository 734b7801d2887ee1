package handler

import (
	"net/http"

	"clobdeck/internal/domain"
)

// TradeSource is the read side the trade handler needs from the session.
type TradeSource interface {
	Trades() []domain.Trade
}

// TradeHandler serves the canonical trade collection.
type TradeHandler struct {
	trades TradeSource
}

// NewTradeHandler creates a TradeHandler reading from the given source.
func NewTradeHandler(trades TradeSource) *TradeHandler {
	return &TradeHandler{trades: trades}
}

// ListTrades returns the canonical trade collection.
// GET /api/trades
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades := h.trades.Trades()
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}
