// Package backtest wires the readers, the resampler, the replay cursor,
// the signal machines and the simulated ledger into one deterministic
// run over a configured date range.
package backtest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arbflow/config"
	"arbflow/internal/ledger"
	"arbflow/internal/replay"
	"arbflow/internal/strategy"
	"arbflow/internal/symbols"
	"arbflow/logger"
	"arbflow/models"
	"arbflow/processor"
	"arbflow/reader"
	binancereader "arbflow/reader/binance"
	upbitreader "arbflow/reader/upbit"
)

// Runner owns one backtest run end to end: Initialize loads and
// precomputes everything, Run replays the steps, Finalize hands the
// order history out.
type Runner struct {
	cfg   *config.Config
	runID string
	log   *logger.Entry

	start    time.Time // first replayed day, midnight UTC
	end      time.Time // last replayed day, inclusive
	interval time.Duration

	resampler *processor.Resampler
	rates     *processor.RateTable
	bars      map[string]replay.SymbolBars
	keptDays  map[string][]time.Time
	cursor    *replay.Cursor
	trader    *ledger.Trader
	arb       *strategy.Arbitrage
}

func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		cfg:   cfg,
		runID: uuid.NewString(),
		log:   logger.GetLogger().WithComponent("backtest"),
	}
}

// RunID identifies this run on written artifacts and log lines.
func (r *Runner) RunID() string { return r.runID }

// Trader exposes the simulated ledger, mainly for inspection after a run.
func (r *Runner) Trader() *ledger.Trader { return r.trader }

// Bars returns the precomputed per-symbol bar series.
func (r *Runner) Bars() map[string]replay.SymbolBars { return r.bars }

// Initialize loads raw trades for every symbol on both markets, drops
// days either market is missing so the two series stay step-aligned,
// resamples to bars, and builds the cursor, the ledger and the signal
// machines.
func (r *Runner) Initialize(ctx context.Context) error {
	start, end, err := r.cfg.Data.DateRange()
	if err != nil {
		return err
	}
	r.start, r.end = start, end
	r.interval = r.cfg.Data.Interval()

	r.resampler, err = processor.NewResampler(r.interval)
	if err != nil {
		return err
	}

	ratesPath := r.cfg.Data.RatesFile
	if ratesPath == "" {
		ratesPath = filepath.Join(r.cfg.Data.Root, "market_index.csv")
	}
	samples, err := reader.LoadDailyRates(ratesPath)
	if err != nil {
		return fmt.Errorf("load exchange rates: %w", err)
	}
	r.rates, err = processor.NewRateTable(samples)
	if err != nil {
		return err
	}

	quoteSrc := upbitreader.NewReader(r.cfg.Data.Root)
	baseSrc := binancereader.NewReader(r.cfg.Data.Root)

	r.bars = make(map[string]replay.SymbolBars, len(r.cfg.Data.Symbols))
	r.keptDays = make(map[string][]time.Time, len(r.cfg.Data.Symbols))
	for _, pure := range r.cfg.Data.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		sym := symbols.Pure(pure)
		if err := r.loadSymbol(sym, quoteSrc, baseSrc); err != nil {
			return fmt.Errorf("load %s: %w", sym, err)
		}
	}

	r.cursor, err = replay.NewCursor(start, end.AddDate(0, 0, 1), r.interval, r.bars, r.rates)
	if err != nil {
		return err
	}

	account := ledger.NewAccount(decimal.NewFromFloat(r.cfg.Ledger.InitialBalance))
	r.trader = ledger.NewTrader(account, r.cfg.Ledger.MaxOrderCount, r.cfg.Ledger.LotPrecision)

	pures := make([]string, 0, len(r.cfg.Data.Symbols))
	for _, s := range r.cfg.Data.Symbols {
		pures = append(pures, symbols.Pure(s))
	}
	r.arb = strategy.NewArbitrage(pures, r.trader, strategy.ParamsFromConfig(r.cfg.Strategy),
		r.cfg.Strategy.PriceWindow, r.cfg.Strategy.CounterWindow)

	r.log.WithFields(logger.Fields{
		"run_id":   r.runID,
		"symbols":  pures,
		"start":    start.Format("2006-01-02"),
		"end":      end.Format("2006-01-02"),
		"interval": r.interval.String(),
		"steps":    r.cursor.StepCount(),
	}).Info("backtest initialized")
	return nil
}

// loadSymbol loads both markets for one symbol, keeps only the days
// both have, and resamples the survivors.
func (r *Runner) loadSymbol(sym string, quoteSrc, baseSrc reader.TickSource) error {
	started := time.Now()

	quoteDays, err := reader.LoadRange(quoteSrc, symbols.ToUpbit(sym), r.start, r.end)
	if err != nil {
		return err
	}
	baseDays, err := reader.LoadRange(baseSrc, symbols.ToBinance(sym), r.start, r.end)
	if err != nil {
		return err
	}

	baseByDay := make(map[time.Time]reader.DayTicks, len(baseDays))
	for _, d := range baseDays {
		baseByDay[d.Day] = d
	}

	var quoteKept, baseKept []reader.DayTicks
	var kept []time.Time
	for _, qd := range quoteDays {
		bd, ok := baseByDay[qd.Day]
		if !ok {
			r.log.WithFields(logger.Fields{
				"symbol": sym,
				"date":   qd.Day.Format("2006-01-02"),
			}).Warn("base market missing day present on quote market, dropping day")
			continue
		}
		quoteKept = append(quoteKept, qd)
		baseKept = append(baseKept, bd)
		kept = append(kept, qd.Day)
	}
	if len(quoteKept) == 0 {
		return fmt.Errorf("no overlapping trade days for %s in [%s, %s]",
			sym, r.start.Format("2006-01-02"), r.end.Format("2006-01-02"))
	}

	quoteBars, err := r.resampler.ResampleDays(quoteKept)
	if err != nil {
		return err
	}
	baseBars, err := r.resampler.ResampleDays(baseKept)
	if err != nil {
		return err
	}

	// A dropped mid-range day compresses the surviving series, so the
	// cursor serves later days under an earlier simulated date. Surface
	// the mapping for every shifted day.
	for _, s := range replayDayShifts(r.start, kept) {
		r.log.WithFields(logger.Fields{
			"symbol":     sym,
			"replay_day": s.replayDay.Format("2006-01-02"),
			"data_day":   s.dataDay.Format("2006-01-02"),
		}).Warn("dropped day shifts the replay clock for later days")
	}

	r.bars[sym] = replay.SymbolBars{Quote: quoteBars, Base: baseBars}
	r.keptDays[sym] = kept

	logger.LogPerformanceEntry(r.log, "backtest", "load_symbol", time.Since(started), logger.Fields{
		"symbol": sym,
		"days":   len(kept),
		"bars":   len(quoteBars) + len(baseBars),
	})
	return nil
}

// dayShift records one surviving day whose position in the replayed
// series no longer matches its calendar date.
type dayShift struct {
	replayDay time.Time
	dataDay   time.Time
}

// replayDayShifts pairs each kept day with the date the cursor will
// replay it under. Days before the first gap map onto themselves and
// are omitted.
func replayDayShifts(start time.Time, kept []time.Time) []dayShift {
	var shifts []dayShift
	for i, day := range kept {
		replayDay := start.AddDate(0, 0, i)
		if !day.Equal(replayDay) {
			shifts = append(shifts, dayShift{replayDay: replayDay, dataDay: day})
		}
	}
	return shifts
}

// Run replays every step the loaded series can serve. Each step marks
// the ledger at the quote market closes, feeds the windows and lets the
// machines evaluate. Data-gap holes shorten the run instead of
// aborting it.
func (r *Runner) Run(ctx context.Context) error {
	steps := r.cursor.StepCount()
	if max := r.cursor.MaxSteps(); max < steps {
		r.log.WithFields(logger.Fields{"planned": steps, "available": max}).Warn("bar coverage shorter than date range, truncating run")
		steps = max
	}

	marks := make(map[string]float64, len(r.bars))
	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap, err := r.cursor.Advance(step)
		if err != nil {
			return err
		}

		for sym, q := range snap.Symbols {
			marks[sym] = q.QuotePrice
		}
		r.trader.MarkToMarket(snap.Time, marks)

		for sym, q := range snap.Symbols {
			r.arb.Observe(sym, q.QuotePrice, q.BasePrice, snap.Rate)
		}
		r.arb.Run(snap.Time)
		logger.IncrementSteps(1)
	}

	r.log.WithFields(logger.Fields{
		"run_id": r.runID,
		"steps":  steps,
		"orders": len(r.trader.Finalize()),
	}).Info("backtest replay finished")
	return nil
}

// Finalize returns the ordered order history of the run.
func (r *Runner) Finalize() []models.Order {
	return r.trader.Finalize()
}

// BaseInQuoteCurrency converts a symbol's base-market bars into the
// quote currency for reporting, multiplying every bucket by the rate
// effective on its day.
func (r *Runner) BaseInQuoteCurrency(sym string) ([]models.Bar, error) {
	sb, ok := r.bars[sym]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", sym)
	}

	rangeDays := int(r.end.Sub(r.start).Hours()/24) + 1
	var rates []float64
	var err error
	if len(r.keptDays[sym]) == rangeDays {
		rates, err = r.rates.Expand(r.start, r.end, r.interval)
		if err != nil {
			return nil, err
		}
	} else {
		perDay := r.resampler.BucketsPerDay()
		rates = make([]float64, 0, len(r.keptDays[sym])*perDay)
		for _, day := range r.keptDays[sym] {
			rate, err := r.rates.At(day)
			if err != nil {
				return nil, err
			}
			for i := 0; i < perDay; i++ {
				rates = append(rates, rate)
			}
		}
	}

	converted := make([]models.Bar, len(sb.Base))
	copy(converted, sb.Base)
	if err := processor.ConvertPrices(converted, rates); err != nil {
		return nil, err
	}
	return converted, nil
}
