package strategy

import (
	"time"

	"arbflow/internal/window"
	"arbflow/logger"
)

// Arbitrage owns the rolling windows and the per-asset signal
// machines. The replay loop calls Observe once per symbol per step and
// then Run once; machines stay silent until every window has filled.
type Arbitrage struct {
	symbols  []string
	arena    *window.Arena
	machines map[string]*Machine
	trader   Trader
	log      *logger.Entry

	warmed bool
}

func NewArbitrage(symbols []string, trader Trader, params Params, priceCap, counterCap int) *Arbitrage {
	a := &Arbitrage{
		symbols:  symbols,
		arena:    window.NewArena(symbols, priceCap, counterCap),
		machines: make(map[string]*Machine, len(symbols)),
		trader:   trader,
		log:      logger.GetLogger().WithComponent("arbitrage"),
	}
	for _, s := range symbols {
		a.machines[s] = NewMachine(s, trader, params)
	}
	return a
}

// Observe pushes one step's closes and the derived premium into the
// symbol's windows. Unknown symbols are ignored.
func (a *Arbitrage) Observe(symbol string, quotePrice, basePrice, rate float64) {
	w, ok := a.arena.Get(symbol)
	if !ok {
		return
	}
	w.Price.Push(quotePrice)
	w.Counter.Push(basePrice)
	w.Premium.Push(Premium(quotePrice, basePrice, rate))
}

// Run evaluates every machine against the current windows. It is a
// no-op until the arena is warm, so guards never see a partial window.
func (a *Arbitrage) Run(now time.Time) {
	if !a.arena.Warm() {
		return
	}
	if !a.warmed {
		a.warmed = true
		a.log.WithFields(logger.Fields{"time": now.Format(time.RFC3339)}).Info("windows warm, signals live")
	}
	for _, symbol := range a.symbols {
		w, _ := a.arena.Get(symbol)
		a.machines[symbol].Proceed(Evaluation{
			Prices:     w.Price,
			Counter:    w.Counter,
			Premiums:   w.Premium,
			TradePrice: w.Price.Last(),
			Now:        now,
			Open:       a.trader.HasOpenPosition(symbol),
		})
	}
}

// Machine exposes the signal machine for one symbol, mainly for tests.
func (a *Arbitrage) Machine(symbol string) *Machine { return a.machines[symbol] }
