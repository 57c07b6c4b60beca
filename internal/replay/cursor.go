// Package replay drives simulated time over precomputed bar arrays. The
// cursor performs no I/O and never blocks; it only indexes bar slices the
// processor produced ahead of the run.
package replay

import (
	"fmt"
	"time"

	"arbflow/models"
	"arbflow/processor"
)

// SymbolBars holds the two aligned bar series replayed for one symbol:
// the quote market (upbit, quote currency) and the base market (binance,
// foreign currency).
type SymbolBars struct {
	Quote []models.Bar
	Base  []models.Bar
}

// SymbolQuote is one symbol's slice of a snapshot: the close price on each
// market at the current step plus the quote market's best-quote side tag.
type SymbolQuote struct {
	QuotePrice float64
	QuoteSide  models.TradeSide
	BasePrice  float64
}

// Snapshot is the synchronized view of every tracked symbol at one step.
type Snapshot struct {
	Step    int
	Time    time.Time
	Rate    float64
	Symbols map[string]SymbolQuote
}

// Cursor is a deterministic, counter-driven iterator over the bar
// sequences of all tracked symbols.
type Cursor struct {
	start    time.Time
	end      time.Time
	interval time.Duration
	current  time.Time
	bars     map[string]SymbolBars
	rates    *processor.RateTable
	rate     float64
}

// NewCursor builds a cursor replaying [start, end) at the given interval.
// The initial exchange rate is resolved immediately so the first steps of
// the run already carry a valid rate.
func NewCursor(start, end time.Time, interval time.Duration, bars map[string]SymbolBars, rates *processor.RateTable) (*Cursor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("cursor interval must be positive, got %v", interval)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("cursor range [%v, %v) is empty", start, end)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("cursor requires at least one symbol's bars")
	}
	rate, err := rates.At(start)
	if err != nil {
		return nil, fmt.Errorf("resolve initial exchange rate: %w", err)
	}
	return &Cursor{
		start:    start,
		end:      end,
		interval: interval,
		current:  start,
		bars:     bars,
		rates:    rates,
		rate:     rate,
	}, nil
}

// StepCount returns ceil((end - current) / interval), the number of steps
// remaining from the current simulated time.
func (c *Cursor) StepCount() int {
	remaining := c.end.Sub(c.current)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + c.interval - 1) / c.interval)
}

// MaxSteps returns the largest step index the loaded bar arrays can serve.
// Day-sized data-gap holes shorten the series; callers decide whether to
// stop early or reject the run.
func (c *Cursor) MaxSteps() int {
	max := -1
	for _, sb := range c.bars {
		for _, series := range [][]models.Bar{sb.Quote, sb.Base} {
			if max < 0 || len(series) < max {
				max = len(series)
			}
		}
	}
	if max < 0 {
		return 0
	}
	return max
}

// CurrentTime returns the simulated time of the last advance.
func (c *Cursor) CurrentTime() time.Time { return c.current }

// Advance returns the synchronized per-symbol snapshot at the given step
// and moves simulated time to start + step*interval. On exact day
// boundaries the exchange rate is refreshed from the nearest known date at
// or before the new time.
func (c *Cursor) Advance(step int) (Snapshot, error) {
	if step < 0 {
		return Snapshot{}, fmt.Errorf("negative step %d", step)
	}

	symbols := make(map[string]SymbolQuote, len(c.bars))
	for sym, sb := range c.bars {
		if step >= len(sb.Quote) || step >= len(sb.Base) {
			return Snapshot{}, fmt.Errorf("step %d beyond bar coverage for %s (quote %d, base %d)",
				step, sym, len(sb.Quote), len(sb.Base))
		}
		symbols[sym] = SymbolQuote{
			QuotePrice: sb.Quote[step].Close,
			QuoteSide:  sb.Quote[step].LastSide,
			BasePrice:  sb.Base[step].Close,
		}
	}

	c.current = c.start.Add(time.Duration(step) * c.interval)

	if onDayBoundary(c.current) {
		rate, err := c.rates.At(c.current)
		if err != nil {
			return Snapshot{}, fmt.Errorf("refresh exchange rate at %v: %w", c.current, err)
		}
		c.rate = rate
	}

	return Snapshot{
		Step:    step,
		Time:    c.current,
		Rate:    c.rate,
		Symbols: symbols,
	}, nil
}

func onDayBoundary(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
