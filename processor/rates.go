package processor

import (
	"errors"
	"fmt"
	"time"

	"arbflow/models"
)

// ErrRateUnavailable is returned for lookups before the earliest known
// exchange-rate sample. There is no fallback in that direction; lookups
// after the last sample return the last value, which is treated as still
// valid rather than stale.
var ErrRateUnavailable = errors.New("exchange rate not available for date")

// RateTable is the forward-filled daily exchange-rate series. A lookup for
// any date inside the covered range resolves to the most recent sample at
// or before that date.
type RateTable struct {
	samples []models.RateSample
}

// NewRateTable forward-fills gaps between the first and last sample so the
// table covers every calendar day of its range. Input must be sorted
// ascending, the way reader.LoadDailyRates returns it.
func NewRateTable(samples []models.RateSample) (*RateTable, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("rate table requires at least one sample")
	}

	filled := make([]models.RateSample, 0, len(samples))
	filled = append(filled, samples[0])
	for _, s := range samples[1:] {
		prev := filled[len(filled)-1]
		if !s.Date.After(prev.Date) {
			return nil, fmt.Errorf("rate samples not strictly ascending at %s", s.Date.Format("2006-01-02"))
		}
		for day := prev.Date.AddDate(0, 0, 1); day.Before(s.Date); day = day.AddDate(0, 0, 1) {
			filled = append(filled, models.RateSample{Date: day, Rate: prev.Rate})
		}
		filled = append(filled, s)
	}
	return &RateTable{samples: filled}, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// At returns the rate effective on the given date.
func (rt *RateTable) At(date time.Time) (float64, error) {
	day := truncateDay(date)
	first := rt.samples[0].Date
	last := rt.samples[len(rt.samples)-1]
	if day.Before(first) {
		return 0, fmt.Errorf("%w: %s precedes first sample %s",
			ErrRateUnavailable, day.Format("2006-01-02"), first.Format("2006-01-02"))
	}
	if !day.Before(last.Date) {
		return last.Rate, nil
	}
	idx := int(day.Sub(first).Hours() / 24)
	return rt.samples[idx].Rate, nil
}

// Expand produces the rate series at bar frequency over [start, end+1d),
// one value per bucket, for bucket-for-bucket price conversion.
func (rt *RateTable) Expand(start, end time.Time, interval time.Duration) ([]float64, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("expand interval must be positive, got %v", interval)
	}
	from := truncateDay(start)
	until := truncateDay(end).AddDate(0, 0, 1)

	out := make([]float64, 0, int(until.Sub(from)/interval))
	for ts := from; ts.Before(until); ts = ts.Add(interval) {
		rate, err := rt.At(ts)
		if err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, nil
}
