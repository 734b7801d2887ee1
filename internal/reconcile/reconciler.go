// Package reconcile merges periodic pull snapshots into the canonical order
// and trade collections for one trading identity. The collections are
// sourced only from pull snapshots: push notifications are logged for
// visibility but never merged, because push payload shapes are not
// guaranteed complete. That costs up to one polling interval of staleness
// and buys immunity from partial-update corruption.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"clobdeck/internal/domain"
	"clobdeck/internal/logstore"
)

// Reconciler owns the canonical Order and Trade collections for one
// identity. A failed refresh leaves the collections at their
// last-known-good state.
type Reconciler struct {
	client   domain.ExchangeClient
	log      *logstore.Store
	logger   *slog.Logger
	identity string

	mu     sync.RWMutex
	orders []domain.Order
	trades []domain.Trade

	refreshing atomic.Bool
}

// New creates a Reconciler for the given identity backed by the exchange
// client.
func New(client domain.ExchangeClient, identity string, log *logstore.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		client:   client,
		log:      log,
		logger:   logger.With(slog.String("component", "reconcile"), slog.String("identity", identity)),
		identity: identity,
	}
}

// Orders returns a copy of the canonical open-order collection.
func (r *Reconciler) Orders() []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Order, len(r.orders))
	copy(out, r.orders)
	return out
}

// Trades returns a copy of the canonical trade collection.
func (r *Reconciler) Trades() []domain.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Trade, len(r.trades))
	copy(out, r.trades)
	return out
}

// RefreshOrders replaces the visible order collection wholesale with the
// fetch result. Exchange vocabularies are mapped into canonical enums at
// this boundary; unrecognized values default to the most conservative
// canonical value rather than failing the refresh.
func (r *Reconciler) RefreshOrders(ctx context.Context) error {
	records, err := r.client.FetchOpenOrders(ctx)
	if err != nil {
		r.logger.Warn("order refresh failed, keeping last known good", slog.String("error", err.Error()))
		return fmt.Errorf("reconcile: refresh orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		orders = append(orders, mapOrder(rec))
	}

	r.mu.Lock()
	r.orders = orders
	r.mu.Unlock()
	return nil
}

// TickRefreshOrders is the timer-driven entry point. A refresh already in
// flight is allowed to complete; this tick is skipped rather than queued,
// since both converge on the same replace-wholesale result.
func (r *Reconciler) TickRefreshOrders(ctx context.Context) error {
	if !r.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	defer r.refreshing.Store(false)
	return r.RefreshOrders(ctx)
}

// RefreshTrades replaces the visible trade collection with the fetch
// result. Fills reported from the passive side of a match have their
// direction inverted so Side always reflects this identity's economic
// action.
func (r *Reconciler) RefreshTrades(ctx context.Context) error {
	records, err := r.client.FetchTrades(ctx)
	if err != nil {
		r.logger.Warn("trade refresh failed, keeping last known good", slog.String("error", err.Error()))
		return fmt.Errorf("reconcile: refresh trades: %w", err)
	}

	trades := make([]domain.Trade, 0, len(records))
	for _, rec := range records {
		trades = append(trades, mapTrade(rec))
	}

	r.mu.Lock()
	r.trades = trades
	r.mu.Unlock()
	return nil
}

// Submit places an order. On a live acceptance it triggers exactly one
// immediate order refresh and returns the inferred order. Any other status
// or error surfaces as a rejection with the raw exchange payload preserved;
// nothing is retried and zero refreshes happen.
func (r *Reconciler) Submit(ctx context.Context, spec domain.OrderSpec) (domain.Order, error) {
	result, err := r.client.SubmitOrder(ctx, spec)
	if err != nil {
		return domain.Order{}, fmt.Errorf("reconcile: submit: %w", err)
	}

	if result.Status != string(domain.OrderStatusLive) {
		reason := result.ErrorMsg
		if reason == "" {
			reason = result.Status
		}
		return domain.Order{}, &domain.RejectionError{
			Status: result.Status,
			Reason: reason,
			Raw:    result.Raw,
		}
	}

	order := inferOrder(result.OrderID, spec)

	if err := r.RefreshOrders(ctx); err != nil {
		// The order was accepted; the next timer tick will converge.
		r.logger.Warn("post-submit refresh failed", slog.String("error", err.Error()))
	}
	return order, nil
}

// Cancel cancels one order. The order collection is refreshed regardless of
// outcome so the view self-heals even when the cancel response is ambiguous.
func (r *Reconciler) Cancel(ctx context.Context, orderID string) error {
	result, err := r.client.CancelOrder(ctx, orderID)
	r.refreshAfterMutation(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: cancel %s: %w", orderID, err)
	}
	if !result.Success {
		return &domain.RejectionError{Reason: result.ErrorMsg, Raw: result.Raw}
	}
	return nil
}

// CancelAll cancels every open order for this identity, then refreshes
// regardless of outcome.
func (r *Reconciler) CancelAll(ctx context.Context) error {
	result, err := r.client.CancelAll(ctx)
	r.refreshAfterMutation(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: cancel all: %w", err)
	}
	if !result.Success {
		return &domain.RejectionError{Reason: result.ErrorMsg, Raw: result.Raw}
	}
	return nil
}

func (r *Reconciler) refreshAfterMutation(ctx context.Context) {
	if err := r.RefreshOrders(ctx); err != nil {
		r.logger.Warn("post-mutation refresh failed", slog.String("error", err.Error()))
	}
}

// NotePushEvent records that a push-channel order or trade notification
// arrived and was deliberately not merged. The raw frame is already
// mirrored by the channel; this entry only marks the decision.
func (r *Reconciler) NotePushEvent(eventType string) {
	r.log.Append(domain.LogInfo,
		fmt.Sprintf("%s push event [%s] noted, canonical state unchanged until next refresh", eventType, r.identity), nil)
}
