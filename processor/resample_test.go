package processor

import (
	"testing"
	"time"

	"arbflow/models"
)

var day = time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC)

func tick(offset time.Duration, price, qty float64, buyerMaker bool) models.Tick {
	return models.Tick{
		Timestamp:    day.Add(offset).UnixMilli(),
		Price:        price,
		Quantity:     qty,
		IsBuyerMaker: buyerMaker,
	}
}

func TestResampleDayThreeTickScenario(t *testing.T) {
	r, err := NewResampler(10 * time.Second)
	if err != nil {
		t.Fatalf("NewResampler failed: %v", err)
	}

	ticks := []models.Tick{
		tick(1*time.Second, 10, 1, false),
		tick(5*time.Second, 12, 2, true),
		tick(9*time.Second, 11, 1, false),
	}
	bars, err := r.ResampleDay(ticks, day)
	if err != nil {
		t.Fatalf("ResampleDay failed: %v", err)
	}

	if want := int(24 * time.Hour / (10 * time.Second)); len(bars) != want {
		t.Fatalf("expected %d bars, got %d", want, len(bars))
	}

	first := bars[0]
	if first.Open != 10 || first.High != 12 || first.Low != 10 || first.Close != 11 {
		t.Errorf("unexpected first bar OHLC: %+v", first)
	}
	if first.TradeCount != 3 || first.BuyTradeCount != 2 || first.SellTradeCount != 1 {
		t.Errorf("unexpected first bar counts: %+v", first)
	}
	if first.Volume != 4 || first.BuyVolume != 2 || first.SellVolume != 2 {
		t.Errorf("unexpected first bar volumes: %+v", first)
	}

	// Every later bucket forward-fills the close with zero real activity.
	for i, b := range bars[1:] {
		if b.Open != 11 || b.High != 11 || b.Low != 11 || b.Close != 11 {
			t.Fatalf("bar %d not forward-filled: %+v", i+1, b)
		}
		if b.TradeCount != 0 || b.Volume != 0 {
			t.Fatalf("bar %d reports phantom activity: %+v", i+1, b)
		}
	}
}

func TestAnchorsNeverInflateCounts(t *testing.T) {
	r, _ := NewResampler(time.Minute)

	// One real trade in the first bucket and one in the last: both buckets
	// also host the synthetic anchors, whose contribution must vanish.
	ticks := []models.Tick{
		tick(30*time.Second, 100, 1, false),
		tick(24*time.Hour-time.Second, 101, 1, true),
	}
	bars, err := r.ResampleDay(ticks, day)
	if err != nil {
		t.Fatalf("ResampleDay failed: %v", err)
	}

	first, last := bars[0], bars[len(bars)-1]
	if first.TradeCount != 1 || first.BuyTradeCount != 1 || first.SellTradeCount != 0 {
		t.Errorf("anchor leaked into first bucket counts: %+v", first)
	}
	if last.TradeCount != 1 || last.BuyTradeCount != 0 || last.SellTradeCount != 1 {
		t.Errorf("anchor leaked into last bucket counts: %+v", last)
	}
	var total int64
	for _, b := range bars {
		total += b.TradeCount
	}
	if total != 2 {
		t.Errorf("expected 2 real trades across the day, counted %d", total)
	}
}

func TestLeadingBucketsBorrowFirstOpen(t *testing.T) {
	r, _ := NewResampler(time.Minute)

	// First trade happens an hour into the day.
	ticks := []models.Tick{
		tick(time.Hour, 50, 1, false),
		tick(time.Hour+30*time.Second, 55, 1, false),
	}
	bars, err := r.ResampleDay(ticks, day)
	if err != nil {
		t.Fatalf("ResampleDay failed: %v", err)
	}
	for i := 0; i < 60; i++ {
		b := bars[i]
		if b.Open != 50 || b.Close != 50 {
			t.Fatalf("leading bar %d not back-filled from first open: %+v", i, b)
		}
	}
	if bars[60].Open != 50 || bars[60].Close != 55 {
		t.Errorf("unexpected first traded bar: %+v", bars[60])
	}
}

func TestRoundTripDailyOHLC(t *testing.T) {
	r, _ := NewResampler(250 * time.Millisecond)

	ticks := []models.Tick{
		tick(2*time.Second, 10, 1, false),
		tick(1*time.Hour, 17, 1, true),
		tick(5*time.Hour, 4, 2, false),
		tick(13*time.Hour, 9, 1, true),
		tick(23*time.Hour, 12, 3, false),
	}
	bars, err := r.ResampleDay(ticks, day)
	if err != nil {
		t.Fatalf("ResampleDay failed: %v", err)
	}

	open, high, low, close := bars[0].Open, bars[0].High, bars[0].Low, bars[0].Close
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
		close = b.Close
	}
	if open != 10 || high != 17 || low != 4 || close != 12 {
		t.Errorf("re-aggregated daily OHLC %v/%v/%v/%v does not match raw ticks", open, high, low, close)
	}
}

func TestLastSideForwardFill(t *testing.T) {
	r, _ := NewResampler(time.Second)

	ticks := []models.Tick{
		{Timestamp: day.Add(1 * time.Second).UnixMilli(), Price: 10, Quantity: 1, Side: models.SideBid, IsBuyerMaker: true},
		{Timestamp: day.Add(4 * time.Second).UnixMilli(), Price: 11, Quantity: 1, Side: models.SideAsk},
	}
	bars, err := r.ResampleDay(ticks, day)
	if err != nil {
		t.Fatalf("ResampleDay failed: %v", err)
	}
	if bars[0].LastSide != models.SideNone {
		t.Errorf("expected no side before first print, got %s", bars[0].LastSide)
	}
	if bars[1].LastSide != models.SideBid || bars[3].LastSide != models.SideBid {
		t.Errorf("side not carried forward: %s %s", bars[1].LastSide, bars[3].LastSide)
	}
	if bars[4].LastSide != models.SideAsk || bars[10].LastSide != models.SideAsk {
		t.Errorf("side not updated/carried: %s %s", bars[4].LastSide, bars[10].LastSide)
	}
}

func TestConvertPrices(t *testing.T) {
	bars := []models.Bar{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Open: 1.5, High: 1.5, Low: 1.5, Close: 1.5},
	}
	if err := ConvertPrices(bars, []float64{1000, 1100}); err != nil {
		t.Fatalf("ConvertPrices failed: %v", err)
	}
	if bars[0].High != 2000 || bars[1].Close != 1650 {
		t.Errorf("unexpected converted prices: %+v", bars)
	}
	if err := ConvertPrices(bars, []float64{1}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestNewResamplerRejectsNonPositiveInterval(t *testing.T) {
	if _, err := NewResampler(0); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if _, err := NewResampler(-time.Second); err == nil {
		t.Fatalf("expected error for negative interval")
	}
}
