// Package binance normalizes binance futures aggregated-trade dumps into
// the uniform tick shape used by the resampler.
package binance

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"arbflow/models"
	"arbflow/reader"
)

// Reader loads per-day binance futures trade CSV files from a local dump
// tree. Expected columns: tradeid, price, quantity, quoteqty, timestamp,
// isbuyermaker, isbestmatch.
type Reader struct {
	root string
}

func NewReader(root string) *Reader {
	return &Reader{root: root}
}

func (r *Reader) Market() models.Market {
	return models.MarketBinance
}

// LoadTicks reads one day's trade file for symbol and returns ticks sorted
// by timestamp. A missing file is reported as reader.ErrDataGap.
func (r *Reader) LoadTicks(symbol string, date time.Time) ([]models.Tick, error) {
	path := reader.DayFilePath(r.root, string(models.MarketBinance), symbol, date)
	header, rows, err := reader.ReadCSVFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s %s %s: %w", models.MarketBinance, symbol, date.Format("2006-01-02"), reader.ErrDataGap)
		}
		return nil, err
	}

	ticks := make([]models.Tick, 0, len(rows))
	for _, row := range rows {
		price, err := reader.ParseFloat(reader.Field(header, row, "price"))
		if err != nil {
			return nil, fmt.Errorf("parse price in %s: %w", path, err)
		}
		qty, err := reader.ParseFloat(reader.Field(header, row, "quantity"))
		if err != nil {
			return nil, fmt.Errorf("parse quantity in %s: %w", path, err)
		}
		ts, err := strconv.ParseInt(reader.Field(header, row, "timestamp"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp in %s: %w", path, err)
		}
		isBuyerMaker, _ := strconv.ParseBool(reader.Field(header, row, "isbuyermaker"))

		ticks = append(ticks, models.Tick{
			Timestamp:    ts,
			Price:        price,
			Quantity:     qty,
			IsBuyerMaker: isBuyerMaker,
		})
	}

	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Timestamp < ticks[j].Timestamp })
	return ticks, nil
}
