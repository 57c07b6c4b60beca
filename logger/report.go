package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

type counterStat struct {
	count int64
}

var (
	errorCounters sync.Map // map[string]*counterStat keyed by component
	warnCounters  sync.Map
	stepsReplayed int64
	barsResampled int64
	ordersPlaced  int64
	rowsWritten   int64
)

func recordWarn(component string) {
	v, _ := warnCounters.LoadOrStore(component, &counterStat{})
	atomic.AddInt64(&v.(*counterStat).count, 1)
}

func recordError(component string) {
	v, _ := errorCounters.LoadOrStore(component, &counterStat{})
	atomic.AddInt64(&v.(*counterStat).count, 1)
}

// IncrementSteps records replay steps advanced by the backtest loop.
func IncrementSteps(n int) {
	atomic.AddInt64(&stepsReplayed, int64(n))
}

// IncrementBars records bars produced by the resampler.
func IncrementBars(n int) {
	atomic.AddInt64(&barsResampled, int64(n))
}

// IncrementOrders records orders accepted by the ledger.
func IncrementOrders(n int) {
	atomic.AddInt64(&ordersPlaced, int64(n))
}

// IncrementRowsWritten records rows flushed by the writers.
func IncrementRowsWritten(n int) {
	atomic.AddInt64(&rowsWritten, int64(n))
}

// StartReport begins periodic logging of run statistics and emits a final
// report when the context is cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				logReport(log)
				return
			case <-ticker.C:
				logReport(log)
			}
		}
	}()
}

func logReport(log *Log) {
	warnData := map[string]int64{}
	warnCounters.Range(func(k, v any) bool {
		warnData[k.(string)] = atomic.LoadInt64(&v.(*counterStat).count)
		return true
	})
	errorData := map[string]int64{}
	errorCounters.Range(func(k, v any) bool {
		errorData[k.(string)] = atomic.LoadInt64(&v.(*counterStat).count)
		return true
	})

	fields := Fields{
		"steps_replayed": atomic.LoadInt64(&stepsReplayed),
		"bars_resampled": atomic.LoadInt64(&barsResampled),
		"orders_placed":  atomic.LoadInt64(&ordersPlaced),
		"rows_written":   atomic.LoadInt64(&rowsWritten),
		"goroutines":     runtime.NumGoroutine(),
		"warns":          warnData,
		"errors":         errorData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")
}
