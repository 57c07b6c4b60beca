package models

import "time"

// Market identifies one of the two venues the strategy trades across.
type Market string

const (
	MarketUpbit   Market = "upbit"
	MarketBinance Market = "binance_futures"
)

// TradeSide tags which side of the book a trade hit.
type TradeSide string

const (
	SideNone TradeSide = "NONE"
	SideAsk  TradeSide = "ASK"
	SideBid  TradeSide = "BID"
)

// Tick is a single normalized trade. Market-specific columns are dropped
// during normalization; only the fields needed for resampling survive.
type Tick struct {
	Timestamp    int64   `json:"timestamp"` // unix milliseconds
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity"`
	IsBuyerMaker bool    `json:"is_buyer_maker"`

	// Side is the taker side as reported by the quote market, used to tag
	// bars with the most recent best-quote side. Empty for markets that do
	// not report it.
	Side TradeSide `json:"side,omitempty"`

	// Synthetic marks boundary anchor ticks injected by the resampler.
	// They guarantee bucket existence and never count as real trades.
	Synthetic bool `json:"-"`
}

// Time returns the tick timestamp as a time.Time in UTC.
func (t Tick) Time() time.Time {
	return time.UnixMilli(t.Timestamp).UTC()
}
