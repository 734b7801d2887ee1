package reconcile

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"clobdeck/internal/domain"
)

// mapOrder converts one wire order record into the canonical Order.
// Remaining size is derived as original − matched. Unrecognized wire values
// collapse to the most conservative canonical value: an unknown order kind
// is treated as good-till-cancelled, an unknown status as live.
func mapOrder(rec domain.OpenOrderRecord) domain.Order {
	original := parseDecimal(rec.OriginalSize)
	matched := parseDecimal(rec.SizeMatched)

	return domain.Order{
		ID:            rec.ID,
		AssetID:       rec.AssetID,
		Market:        rec.Market,
		Side:          mapSide(rec.Side),
		Outcome:       mapOutcome(rec.Outcome),
		Price:         parseDecimal(rec.Price),
		OriginalSize:  original,
		MatchedSize:   matched,
		RemainingSize: original.Sub(matched),
		TimeInForce:   mapTimeInForce(rec.OrderType),
		Status:        mapStatus(rec.Status),
		CreatedAt:     time.Unix(rec.CreatedAt, 0).UTC(),
	}
}

// mapTrade converts one wire trade record into the canonical Trade. When
// this identity was the passive side of the match, the wire direction
// describes the counterparty's action and is inverted.
func mapTrade(rec domain.TradeRecord) domain.Trade {
	side := mapSide(rec.Side)
	if strings.EqualFold(rec.TraderSide, "MAKER") {
		side = invert(side)
	}

	return domain.Trade{
		ID:             rec.ID,
		AssetID:        rec.AssetID,
		Market:         rec.Market,
		Side:           side,
		Price:          parseDecimal(rec.Price),
		Size:           parseDecimal(rec.Size),
		OccurredAt:     parseUnixString(rec.MatchTime),
		CounterOrderID: rec.TakerOrderID,
	}
}

func inferOrder(orderID string, spec domain.OrderSpec) domain.Order {
	return domain.Order{
		ID:            orderID,
		AssetID:       spec.AssetID,
		Market:        spec.Market,
		Side:          spec.Side,
		Outcome:       spec.Outcome,
		Price:         spec.Price,
		OriginalSize:  spec.Size,
		RemainingSize: spec.Size,
		TimeInForce:   spec.TimeInForce,
		Status:        domain.OrderStatusLive,
		CreatedAt:     time.Now().UTC(),
	}
}

func mapSide(s string) domain.OrderSide {
	if strings.EqualFold(s, "SELL") {
		return domain.OrderSideSell
	}
	return domain.OrderSideBuy
}

func invert(s domain.OrderSide) domain.OrderSide {
	if s == domain.OrderSideBuy {
		return domain.OrderSideSell
	}
	return domain.OrderSideBuy
}

func mapOutcome(s string) domain.Outcome {
	if strings.EqualFold(s, "No") {
		return domain.OutcomeNo
	}
	return domain.OutcomeYes
}

func mapTimeInForce(s string) domain.TimeInForce {
	switch strings.ToUpper(s) {
	case "GTD":
		return domain.TimeInForceGTD
	case "FOK":
		return domain.TimeInForceFOK
	case "FAK", "IOC":
		return domain.TimeInForceFAK
	default:
		return domain.TimeInForceGTC
	}
}

func mapStatus(s string) domain.OrderStatus {
	switch strings.ToUpper(s) {
	case "MATCHED":
		return domain.OrderStatusMatched
	case "CANCELLED", "CANCELED":
		return domain.OrderStatusCancelled
	case "REJECTED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusLive
	}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseUnixString(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
