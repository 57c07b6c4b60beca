// Package ledger simulates order execution against a local account. It is
// the single owner of the balance and position map; nothing mutates them
// except through the trader's operations.
package ledger

import (
	"github.com/shopspring/decimal"

	"arbflow/models"
)

// positionEpsilon is the size below which a reduced position is considered
// flat and reset to its initial state.
var positionEpsilon = decimal.New(1, -9)

// Account is the simulated balance and per-symbol position book.
type Account struct {
	balance   decimal.Decimal
	positions map[string]*models.Position
}

func NewAccount(initialBalance decimal.Decimal) *Account {
	return &Account{
		balance:   initialBalance,
		positions: make(map[string]*models.Position),
	}
}

// Balance returns the current free balance in the quote currency.
func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// Position returns a copy of the symbol's position, zero-valued when the
// symbol was never traded.
func (a *Account) Position(symbol string) models.Position {
	if p, ok := a.positions[symbol]; ok {
		return *p
	}
	return models.Position{Symbol: symbol, Side: models.PositionSideNone}
}

// HasOpenPosition reports whether the symbol currently carries exposure.
// This is the only account read the signal state machine performs.
func (a *Account) HasOpenPosition(symbol string) bool {
	return !a.Position(symbol).Flat()
}

func (a *Account) position(symbol string) *models.Position {
	p, ok := a.positions[symbol]
	if !ok {
		p = &models.Position{Symbol: symbol, Side: models.PositionSideNone, Size: decimal.Zero}
		a.positions[symbol] = p
	}
	return p
}

// open books an entry fill: exposure grows and the balance moves by the
// notional, paying for longs and collecting sale proceeds for shorts.
func (a *Account) open(symbol string, side models.PositionSide, qty, price decimal.Decimal) {
	p := a.position(symbol)
	p.Size = p.Size.Add(qty)
	p.Side = side
	p.OrderCount++
	notional := qty.Mul(price)
	if side == models.PositionSideShort {
		a.balance = a.balance.Add(notional)
	} else {
		a.balance = a.balance.Sub(notional)
	}
}

// reduce books an exit fill and resets the position once its remaining
// size falls below epsilon.
func (a *Account) reduce(symbol string, qty, price decimal.Decimal) {
	p := a.position(symbol)
	side := p.Side
	p.Size = p.Size.Sub(qty)
	notional := qty.Mul(price)
	if side == models.PositionSideShort {
		a.balance = a.balance.Sub(notional)
	} else {
		a.balance = a.balance.Add(notional)
	}
	if p.Size.LessThan(positionEpsilon) {
		*p = models.Position{Symbol: symbol, Side: models.PositionSideNone, Size: decimal.Zero}
	}
}
