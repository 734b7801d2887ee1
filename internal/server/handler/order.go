package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"clobdeck/internal/domain"
)

// OrderService defines what the order handler requires from the session.
type OrderService interface {
	Orders() []domain.Order
	Submit(ctx context.Context, spec domain.OrderSpec) (domain.Order, error)
	Cancel(ctx context.Context, orderID string) error
	CancelAll(ctx context.Context) error
}

// OrderHandler serves order-related HTTP endpoints.
type OrderHandler struct {
	orders OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// ListOrders returns the canonical open-order collection.
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.orders.Orders()
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// PlaceOrder places a new order from a JSON order spec.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var spec domain.OrderSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if spec.AssetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}
	if spec.TimeInForce == "" {
		spec.TimeInForce = domain.TimeInForceGTC
	}

	order, err := h.orders.Submit(r.Context(), spec)
	if err != nil {
		var rej *domain.RejectionError
		if errors.As(err, &rej) {
			// Rejections carry the raw exchange payload through to the UI.
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  rej.Reason,
				"status": rej.Status,
				"raw":    rej.Raw,
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: place order failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to place order")
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// CancelOrder cancels one order by its ID.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := h.orders.Cancel(r.Context(), id); err != nil {
		h.writeCancelError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "order_id": id})
}

// CancelAll cancels every open order.
// DELETE /api/orders
func (h *OrderHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.CancelAll(r.Context()); err != nil {
		h.writeCancelError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *OrderHandler) writeCancelError(w http.ResponseWriter, r *http.Request, err error) {
	var rej *domain.RejectionError
	if errors.As(err, &rej) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": rej.Reason,
			"raw":   rej.Raw,
		})
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: cancel failed",
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusBadGateway, "failed to cancel")
}
