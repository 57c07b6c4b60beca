package models

import "time"

// RateSample is one day of the quote-currency exchange rate series
// (USD/KRW for the upbit-binance pair). The series is forward-filled so a
// lookup inside the covered range always resolves to the most recent known
// value at or before the requested date.
type RateSample struct {
	Date time.Time `json:"date"` // midnight UTC of the sampled day
	Rate float64   `json:"rate"`
}
