package strategy

import (
	"time"

	"arbflow/config"
	"arbflow/internal/ledger"
	"arbflow/internal/window"
	"arbflow/logger"
	"arbflow/models"
)

// State is the evaluation state of a per-asset signal machine. Only
// StateIdle survives across steps; the rest exist within one Proceed
// call and always resolve back to idle before it returns.
type State int

const (
	StateIdle State = iota
	StateBuy
	StateBuyOrder
	StateSell
	StateSellOrder

	stateCount = 5
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuy:
		return "buy"
	case StateBuyOrder:
		return "buy_order"
	case StateSell:
		return "sell"
	case StateSellOrder:
		return "sell_order"
	}
	return "unknown"
}

// Trader is the order surface the machine submits through. Satisfied
// by *ledger.Trader in backtests and by the live execution client.
type Trader interface {
	BuyLongMarket(symbol string, sizing ledger.Sizing) (*models.Order, error)
	SellLongMarket(symbol string, ratio float64) (*models.Order, error)
	HasOpenPosition(symbol string) bool
}

// Params are the tunable guard thresholds and sizing of the machine.
type Params struct {
	CounterRiseRatio  float64
	PriceStayRatio    float64
	PremiumExitRatio  float64
	Hold              time.Duration
	OrderAmount       float64
	OrderAmountIsFull bool
}

// ParamsFromConfig maps the strategy config section onto Params.
func ParamsFromConfig(cfg config.StrategyConfig) Params {
	return Params{
		CounterRiseRatio:  cfg.CounterRiseRatio,
		PriceStayRatio:    cfg.PriceStayRatio,
		PremiumExitRatio:  cfg.PremiumExitRatio,
		Hold:              time.Duration(cfg.HoldSeconds) * time.Second,
		OrderAmount:       cfg.OrderAmount,
		OrderAmountIsFull: cfg.OrderAmountIsFull,
	}
}

// Evaluation is the snapshot one Proceed call judges. The windows are
// read-only here; the owning orchestrator pushes samples before
// invoking the machine and must not call Proceed until they are full.
type Evaluation struct {
	Prices     *window.Ring // quote-market closes
	Counter    *window.Ring // base-market closes
	Premiums   *window.Ring
	TradePrice float64
	Now        time.Time
	Open       bool // ledger reports an open position for this symbol
}

// Machine drives the buy/sell signal for one asset. It never rests in
// a non-idle state: each Proceed auto-advances until an order fires or
// no guard passes, then forces idle.
type Machine struct {
	symbol string
	trader Trader
	params Params
	log    *logger.Entry

	state        State
	premiumAtBuy float64
	priceAtBuy   float64
	holdDeadline time.Time
	holdArmed    bool
}

func NewMachine(symbol string, trader Trader, params Params) *Machine {
	return &Machine{
		symbol: symbol,
		trader: trader,
		params: params,
		log:    logger.GetLogger().WithComponent("signal").WithFields(logger.Fields{"symbol": symbol}),
		state:  StateIdle,
	}
}

// State returns the machine's current state. Outside of Proceed this
// is always StateIdle.
func (m *Machine) State() State { return m.state }

// Proceed evaluates one step. The loop is bounded by the number of
// states so a misbehaving guard set cannot spin; any state with no
// satisfied outgoing guard falls back to idle.
func (m *Machine) Proceed(eval Evaluation) {
	for i := 0; i < stateCount; i++ {
		switch m.state {
		case StateIdle:
			if eval.Open {
				m.state = StateSell
			} else {
				m.state = StateBuy
			}
		case StateBuy:
			if m.counterRose(eval) && m.priceStayed(eval) {
				m.state = StateBuyOrder
				m.enterLong(eval)
			} else {
				m.state = StateIdle
				return
			}
		case StateSell:
			if m.premiumRich(eval) || m.holdExpired(eval) {
				m.state = StateSellOrder
				m.exitLong()
			} else {
				m.state = StateIdle
				return
			}
		case StateBuyOrder, StateSellOrder:
			m.state = StateIdle
			return
		}
	}
	m.state = StateIdle
}

// counterRose: the base market's latest close sits above the mean of
// the window's oldest samples by the configured factor.
func (m *Machine) counterRose(eval Evaluation) bool {
	span := eval.Counter.Cap() - 1
	return eval.Counter.Last() > m.params.CounterRiseRatio*eval.Counter.MeanFirst(span)
}

// priceStayed: the quote market has not run away yet.
func (m *Machine) priceStayed(eval Evaluation) bool {
	span := eval.Prices.Cap() - 1
	return eval.Prices.Last() < m.params.PriceStayRatio*eval.Prices.MeanFirst(span)
}

func (m *Machine) premiumRich(eval Evaluation) bool {
	return eval.Premiums.Last() > m.params.PremiumExitRatio*m.premiumAtBuy
}

func (m *Machine) holdExpired(eval Evaluation) bool {
	return m.holdArmed && !eval.Now.Before(m.holdDeadline)
}

func (m *Machine) sizing() ledger.Sizing {
	if m.params.OrderAmountIsFull {
		return ledger.Ratio(1)
	}
	return ledger.Amount(m.params.OrderAmount)
}

// enterLong submits the entry. Bookkeeping moves only on a filled
// order; a refused or rejected entry leaves the machine as it was.
func (m *Machine) enterLong(eval Evaluation) {
	order, err := m.trader.BuyLongMarket(m.symbol, m.sizing())
	if err != nil {
		m.log.WithError(err).Warn("long entry refused")
		return
	}
	m.premiumAtBuy = eval.Premiums.Last()
	m.priceAtBuy = eval.TradePrice
	m.holdDeadline = eval.Now.Add(m.params.Hold)
	m.holdArmed = true
	m.log.WithFields(logger.Fields{
		"order_id":       order.ClientOrderID,
		"premium_at_buy": m.premiumAtBuy,
		"price_at_buy":   m.priceAtBuy,
	}).Info("long entry filled")
}

func (m *Machine) exitLong() {
	order, err := m.trader.SellLongMarket(m.symbol, 1)
	if err != nil {
		m.log.WithError(err).Warn("long exit refused")
		return
	}
	m.premiumAtBuy = 0
	m.priceAtBuy = 0
	m.holdArmed = false
	m.log.WithFields(logger.Fields{"order_id": order.ClientOrderID}).Info("long exit filled")
}
