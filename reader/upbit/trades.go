// Package upbit normalizes upbit trade dumps into the uniform tick shape.
// Upbit reports the taker side as ask_bid; a BID-side print means the buyer
// rested on the book, which maps to the buyer-is-maker flag.
package upbit

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"arbflow/models"
	"arbflow/reader"
)

// Reader loads per-day upbit trade CSV files. Expected columns: market,
// trade_date_utc, trade_time_utc, timestamp, price, quantity,
// prev_closing_price, change_price, ask_bid, sequantial_id.
type Reader struct {
	root string
}

func NewReader(root string) *Reader {
	return &Reader{root: root}
}

func (r *Reader) Market() models.Market {
	return models.MarketUpbit
}

// LoadTicks reads one day's trade file for symbol and returns ticks sorted
// by timestamp. A missing file is reported as reader.ErrDataGap.
func (r *Reader) LoadTicks(symbol string, date time.Time) ([]models.Tick, error) {
	path := reader.DayFilePath(r.root, string(models.MarketUpbit), symbol, date)
	header, rows, err := reader.ReadCSVFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s %s %s: %w", models.MarketUpbit, symbol, date.Format("2006-01-02"), reader.ErrDataGap)
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

		side := models.TradeSide(reader.Field(header, row, "ask_bid"))
		if side != models.SideAsk && side != models.SideBid {
			side = models.SideNone
		}

		ticks = append(ticks, models.Tick{
			Timestamp:    ts,
			Price:        price,
			Quantity:     qty,
			IsBuyerMaker: side == models.SideBid,
			Side:         side,
		})
	}

	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Timestamp < ticks[j].Timestamp })
	return ticks, nil
}
