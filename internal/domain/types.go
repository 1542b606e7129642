// Package domain defines the core types shared across the tradesim system:
// accounts, positions, trades, orders, quotes, and telemetry events.
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType distinguishes immediate market execution from resting limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the lifecycle state of a resting order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusFilled    OrderStatus = "FILLED"
)

// PlatformType tags an account with the UX variant it was created under.
// The accounting logic is identical across variants.
type PlatformType string

const (
	PlatformGamified    PlatformType = "gamified"
	PlatformTraditional PlatformType = "traditional"
)

// Account holds one session's virtual cash. The session ID is an opaque
// token assigned at first contact and never changes.
type Account struct {
	SessionID    string
	PlatformType PlatformType
	InitialCash  decimal.Decimal
	CurrentCash  decimal.Decimal
	CreatedAt    time.Time
}

// Position is a session's current holding of one symbol. A position row
// exists only while Shares > 0; fully sold positions are deleted.
type Position struct {
	SessionID string
	Symbol    string
	Shares    int64
	AvgCost   decimal.Decimal
	UpdatedAt time.Time
}

// CostBasis returns Shares * AvgCost.
func (p *Position) CostBasis() decimal.Decimal {
	return p.AvgCost.Mul(decimal.NewFromInt(p.Shares))
}

// Trade is one executed fill. Trade rows are append-only: they are never
// updated or deleted, even when the account is reset.
type Trade struct {
	ID        int64
	SessionID string
	Symbol    string
	Side      Side
	Shares    int64
	Price     decimal.Decimal
	Total     decimal.Decimal
	Timestamp time.Time
}

// Order is a resting limit order. Market orders execute immediately and
// never produce an Order row.
type Order struct {
	ID         int64
	SessionID  string
	Symbol     string
	Side       Side
	Shares     int64
	Type       OrderType
	LimitPrice decimal.Decimal
	Status     OrderStatus
	CreatedAt  time.Time
}

// Crossed reports whether the current last price satisfies the order's
// limit condition: buys fill at or below the limit, sells at or above.
func (o *Order) Crossed(last decimal.Decimal) bool {
	if o.Side == SideBuy {
		return last.LessThanOrEqual(o.LimitPrice)
	}
	return last.GreaterThanOrEqual(o.LimitPrice)
}

// Quote is a snapshot of one symbol's current market prices.
type Quote struct {
	Symbol        string
	Name          string
	Bid           decimal.Decimal
	Ask           decimal.Decimal
	Last          decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	Volume        string
}

// Event is one clickstream record for behavioral research. Data is an
// opaque JSON payload; no schema is enforced.
type Event struct {
	ID        int64
	SessionID string
	Type      string
	Data      json.RawMessage
	PageURL   string
	Timestamp time.Time
}
