package models

import "time"

// Bar holds OHLC, volume and trade-count aggregates for one fixed interval
// of one symbol on one market. Buy/sell splits follow the taker side:
// a trade where the buyer was the maker is a sell.
type Bar struct {
	IntervalStart  int64   `json:"interval_start"` // unix milliseconds
	Open           float64 `json:"open"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Close          float64 `json:"close"`
	Volume         float64 `json:"volume"`
	BuyVolume      float64 `json:"buy_volume"`
	SellVolume     float64 `json:"sell_volume"`
	TradeCount     int64   `json:"trade_count"`
	BuyTradeCount  int64   `json:"buy_trade_count"`
	SellTradeCount int64   `json:"sell_trade_count"`

	// LastSide is the taker side of the last trade at or before this
	// interval, forward-filled across empty buckets. Only populated for
	// the quote market.
	LastSide TradeSide `json:"last_side,omitempty"`
}

// StartTime returns the interval start as a time.Time in UTC.
func (b Bar) StartTime() time.Time {
	return time.UnixMilli(b.IntervalStart).UTC()
}

// BarSeries is a contiguous run of bars for one symbol on one market.
type BarSeries struct {
	Market Market
	Symbol string
	Bars   []Bar
}
