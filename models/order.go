package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRejected is returned by an execution collaborator that declines an
// order outright. Callers treat it as a no-op, never as a fatal abort.
var ErrRejected = errors.New("order rejected by execution collaborator")

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// PositionSide marks which direction of exposure an order opens or closes.
type PositionSide string

const (
	PositionSideNone  PositionSide = "NONE"
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// OrderType distinguishes synchronously-filled market orders from resting
// limit orders whose status is refreshed by polling.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// Order is one entry of the append-only order history. Simulated market
// orders are created already FILLED; limit orders mutate Status in place
// only through the execution collaborator's status refresh.
type Order struct {
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	PositionSide  PositionSide    `json:"position_side"`
	Type          OrderType       `json:"type"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Status        OrderStatus     `json:"status"`
	Timestamp     time.Time       `json:"timestamp"` // simulated fill time
}

// Position is the per-symbol exposure tracked by the ledger. Size stays
// non-negative; Side is NONE whenever Size is zero.
type Position struct {
	Symbol     string          `json:"symbol"`
	Size       decimal.Decimal `json:"size"`
	Side       PositionSide    `json:"side"`
	OrderCount int             `json:"order_count"`
}

// Flat reports whether the position carries no exposure.
func (p Position) Flat() bool {
	return p.Side == PositionSideNone || p.Size.IsZero()
}
