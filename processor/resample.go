package processor

import (
	"fmt"
	"time"

	"arbflow/logger"
	"arbflow/models"
	"arbflow/reader"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// Resampler buckets one symbol's normalized tick stream into fixed-width
// bars. Every bucket of the trading day comes out populated: synthetic
// zero-quantity anchor ticks pin down the first and last bucket, empty
// buckets forward-fill their OHLC from the previous close, and anchor
// contributions are stripped from the reported trade counts.
type Resampler struct {
	intervalMs int64
	log        *logger.Entry
}

func NewResampler(interval time.Duration) (*Resampler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("resample interval must be positive, got %v", interval)
	}
	return &Resampler{
		intervalMs: int64(interval / time.Millisecond),
		log:        logger.GetLogger().WithComponent("resampler"),
	}, nil
}

// BucketsPerDay returns the number of bars covering one trading day.
func (r *Resampler) BucketsPerDay() int {
	return int((dayMillis + r.intervalMs - 1) / r.intervalMs)
}

type bucketAgg struct {
	hasPrice bool
	open     float64
	high     float64
	low      float64
	close    float64

	volume     float64
	buyVolume  float64
	sellVolume float64

	count     int64
	buyCount  int64
	sellCount int64

	// Anchors are counted where they actually land so count correction
	// stays exact even for intervals that do not divide the day evenly.
	anchorCount     int64
	anchorBuyCount  int64
	anchorSellCount int64

	lastSide models.TradeSide
}

// ResampleDay converts one day's ticks into a contiguous bar sequence
// covering [dayStart, dayStart+24h). The tick stream must be sorted by
// timestamp and contain at least one real trade.
func (r *Resampler) ResampleDay(ticks []models.Tick, dayStart time.Time) ([]models.Bar, error) {
	dayStartMs := dayStart.UTC().UnixMilli()
	n := r.BucketsPerDay()
	buckets := make([]bucketAgg, n)

	apply := func(t models.Tick) {
		offset := t.Timestamp - dayStartMs
		if offset < 0 || offset >= dayMillis {
			r.log.WithFields(logger.Fields{
				"timestamp": t.Timestamp,
				"day_start": dayStartMs,
			}).Warn("tick outside trading day, dropped")
			return
		}
		b := &buckets[offset/r.intervalMs]

		if t.Synthetic {
			b.count++
			b.anchorCount++
			if t.IsBuyerMaker {
				b.sellCount++
				b.anchorSellCount++
			} else {
				b.buyCount++
				b.anchorBuyCount++
			}
			return
		}

		if !b.hasPrice {
			b.hasPrice = true
			b.open = t.Price
			b.high = t.Price
			b.low = t.Price
		} else {
			if t.Price > b.high {
				b.high = t.Price
			}
			if t.Price < b.low {
				b.low = t.Price
			}
		}
		b.close = t.Price

		b.volume += t.Quantity
		b.count++
		if t.IsBuyerMaker {
			b.sellVolume += t.Quantity
			b.sellCount++
		} else {
			b.buyVolume += t.Quantity
			b.buyCount++
		}
		if t.Side != "" && t.Side != models.SideNone {
			b.lastSide = t.Side
		}
	}

	// Boundary anchors: one buy-side and one sell-side at the day open and
	// just before the day close, so every aggregation subset has a defined
	// first and last bucket.
	for _, anchorTs := range []int64{dayStartMs, dayStartMs + dayMillis - 1} {
		apply(models.Tick{Timestamp: anchorTs, IsBuyerMaker: false, Synthetic: true})
		apply(models.Tick{Timestamp: anchorTs, IsBuyerMaker: true, Synthetic: true})
	}
	for _, t := range ticks {
		apply(t)
	}

	firstPriced := -1
	for i := range buckets {
		if buckets[i].hasPrice {
			firstPriced = i
			break
		}
	}
	if firstPriced < 0 {
		return nil, fmt.Errorf("day starting %s has no priced ticks", dayStart.Format("2006-01-02"))
	}

	bars := make([]models.Bar, n)
	prevClose := buckets[firstPriced].open
	prevSide := models.SideNone
	for i := range buckets {
		b := &buckets[i]
		bar := models.Bar{
			IntervalStart:  dayStartMs + int64(i)*r.intervalMs,
			Volume:         b.volume,
			BuyVolume:      b.buyVolume,
			SellVolume:     b.sellVolume,
			TradeCount:     b.count - b.anchorCount,
			BuyTradeCount:  b.buyCount - b.anchorBuyCount,
			SellTradeCount: b.sellCount - b.anchorSellCount,
		}
		if b.hasPrice {
			bar.Open = b.open
			bar.High = b.high
			bar.Low = b.low
			bar.Close = b.close
		} else {
			// Leading buckets before the first trade of the day borrow
			// that trade's open; later empty buckets carry the previous
			// close forward.
			bar.Open = prevClose
			bar.High = prevClose
			bar.Low = prevClose
			bar.Close = prevClose
		}
		if b.lastSide != "" && b.lastSide != models.SideNone {
			prevSide = b.lastSide
		}
		bar.LastSide = prevSide
		prevClose = bar.Close
		bars[i] = bar
	}

	logger.IncrementBars(n)
	return bars, nil
}

// ResampleDays concatenates per-day resampling over loaded days. Days that
// were skipped upstream as data gaps leave a day-sized hole in coverage.
func (r *Resampler) ResampleDays(days []reader.DayTicks) ([]models.Bar, error) {
	bars := make([]models.Bar, 0, len(days)*r.BucketsPerDay())
	for _, d := range days {
		dayBars, err := r.ResampleDay(d.Ticks, d.Day)
		if err != nil {
			return nil, err
		}
		bars = append(bars, dayBars...)
	}
	return bars, nil
}

// ConvertPrices multiplies each bar's OHLC by the matching entry of the
// aligned exchange-rate series, converting a foreign-priced market into the
// quote currency bucket-for-bucket.
func ConvertPrices(bars []models.Bar, rates []float64) error {
	if len(bars) != len(rates) {
		return fmt.Errorf("rate series length %d does not match bar series length %d", len(rates), len(bars))
	}
	for i := range bars {
		bars[i].Open *= rates[i]
		bars[i].High *= rates[i]
		bars[i].Low *= rates[i]
		bars[i].Close *= rates[i]
	}
	return nil
}
