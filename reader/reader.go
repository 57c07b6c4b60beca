package reader

import (
	"errors"
	"time"

	"arbflow/logger"
	"arbflow/models"
)

// ErrDataGap marks a day whose raw trade file is absent. The day is skipped
// and the gap propagates downstream; callers tolerate or reject it
// explicitly, the range load itself never aborts on it.
var ErrDataGap = errors.New("raw trade data missing for day")

// TickSource yields one day of normalized ticks for a symbol. Implementations
// normalize their market's native schema into models.Tick.
type TickSource interface {
	Market() models.Market
	LoadTicks(symbol string, date time.Time) ([]models.Tick, error)
}

// DayTicks pairs one day's tick stream with its midnight-UTC start.
type DayTicks struct {
	Day   time.Time
	Ticks []models.Tick
}

// LoadRange concatenates per-day tick loads over [start, end] inclusive.
// Days hitting ErrDataGap are logged and skipped; any other error aborts.
func LoadRange(src TickSource, symbol string, start, end time.Time) ([]DayTicks, error) {
	log := logger.GetLogger().WithComponent("tick_reader").WithFields(logger.Fields{
		"market": string(src.Market()),
		"symbol": symbol,
	})

	var days []DayTicks
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		ticks, err := src.LoadTicks(symbol, day)
		if err != nil {
			if errors.Is(err, ErrDataGap) {
				log.WithFields(logger.Fields{"date": day.Format("2006-01-02")}).Warn("missing trade file, skipping day")
				continue
			}
			return nil, err
		}
		days = append(days, DayTicks{Day: day, Ticks: ticks})
	}
	return days, nil
}
