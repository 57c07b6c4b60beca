package strategy

import (
	"testing"
	"time"

	"arbflow/internal/ledger"
	"arbflow/internal/window"
	"arbflow/models"
)

type fakeTrader struct {
	open   map[string]bool
	buys   int
	sells  int
	refuse error
}

func newFakeTrader() *fakeTrader {
	return &fakeTrader{open: make(map[string]bool)}
}

func (f *fakeTrader) BuyLongMarket(symbol string, _ ledger.Sizing) (*models.Order, error) {
	if f.refuse != nil {
		return nil, f.refuse
	}
	f.buys++
	f.open[symbol] = true
	return &models.Order{ClientOrderID: "test-buy", Symbol: symbol, Side: models.OrderSideBuy}, nil
}

func (f *fakeTrader) SellLongMarket(symbol string, _ float64) (*models.Order, error) {
	if f.refuse != nil {
		return nil, f.refuse
	}
	f.sells++
	f.open[symbol] = false
	return &models.Order{ClientOrderID: "test-sell", Symbol: symbol, Side: models.OrderSideSell}, nil
}

func (f *fakeTrader) HasOpenPosition(symbol string) bool { return f.open[symbol] }

func ringOf(t *testing.T, capacity int, values ...float64) *window.Ring {
	t.Helper()
	r := window.NewRing(capacity)
	for _, v := range values {
		r.Push(v)
	}
	if !r.Full() {
		t.Fatalf("test window not full: %d/%d", r.Len(), capacity)
	}
	return r
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func testParams() Params {
	return Params{
		CounterRiseRatio: 1.005,
		PriceStayRatio:   1.001,
		PremiumExitRatio: 1.1,
		Hold:             120 * time.Second,
		OrderAmount:      1000,
	}
}

// flatEval builds windows where no guard can fire.
func flatEval(t *testing.T, now time.Time, open bool) Evaluation {
	t.Helper()
	return Evaluation{
		Prices:     ringOf(t, 10, repeat(50, 10)...),
		Counter:    ringOf(t, 9, repeat(100, 9)...),
		Premiums:   ringOf(t, 10, repeat(2, 10)...),
		TradePrice: 50,
		Now:        now,
		Open:       open,
	}
}

// risingEval satisfies both buy guards: the counter market rose past
// 1.005x its early mean while the quote market held still.
func risingEval(t *testing.T, now time.Time) Evaluation {
	t.Helper()
	counter := append(repeat(100, 8), 101) // 101 > 1.005*100
	return Evaluation{
		Prices:     ringOf(t, 10, repeat(50, 10)...), // 50 < 1.001*50
		Counter:    ringOf(t, 9, counter...),
		Premiums:   ringOf(t, 10, repeat(2, 10)...),
		TradePrice: 50,
		Now:        now,
		Open:       false,
	}
}

func TestNoGuardForcesIdle(t *testing.T) {
	tr := newFakeTrader()
	m := NewMachine("AXS", tr, testParams())

	m.Proceed(flatEval(t, time.Unix(0, 0), false))

	if m.State() != StateIdle {
		t.Errorf("machine must settle idle, got %s", m.State())
	}
	if tr.buys != 0 || tr.sells != 0 {
		t.Errorf("no orders expected, got %d buys %d sells", tr.buys, tr.sells)
	}
}

func TestBuyGuardsFireEntry(t *testing.T) {
	tr := newFakeTrader()
	m := NewMachine("AXS", tr, testParams())

	m.Proceed(risingEval(t, time.Unix(1000, 0)))

	if tr.buys != 1 {
		t.Fatalf("expected one entry, got %d", tr.buys)
	}
	if m.State() != StateIdle {
		t.Errorf("machine must settle idle after ordering, got %s", m.State())
	}
	if m.premiumAtBuy != 2 || m.priceAtBuy != 50 {
		t.Errorf("entry bookkeeping wrong: premium %v price %v", m.premiumAtBuy, m.priceAtBuy)
	}
	if !m.holdArmed || !m.holdDeadline.Equal(time.Unix(1120, 0)) {
		t.Errorf("hold timer not armed for 120s: armed=%v deadline=%v", m.holdArmed, m.holdDeadline)
	}
}

func TestCounterRiseBelowThresholdNoEntry(t *testing.T) {
	tr := newFakeTrader()
	m := NewMachine("AXS", tr, testParams())

	counter := append(repeat(100, 8), 100.4) // 100.4 < 100.5
	eval := risingEval(t, time.Unix(0, 0))
	eval.Counter = ringOf(t, 9, counter...)

	m.Proceed(eval)

	if tr.buys != 0 {
		t.Errorf("sub-threshold rise must not order, got %d buys", tr.buys)
	}
}

func TestQuotePriceRunawayNoEntry(t *testing.T) {
	tr := newFakeTrader()
	m := NewMachine("AXS", tr, testParams())

	prices := append(repeat(50, 9), 50.1) // 50.1 > 1.001*50
	eval := risingEval(t, time.Unix(0, 0))
	eval.Prices = ringOf(t, 10, prices...)

	m.Proceed(eval)

	if tr.buys != 0 {
		t.Errorf("quote runaway must not order, got %d buys", tr.buys)
	}
}

func TestRejectedEntryLeavesBookkeeping(t *testing.T) {
	tr := newFakeTrader()
	tr.refuse = models.ErrRejected
	m := NewMachine("AXS", tr, testParams())

	m.Proceed(risingEval(t, time.Unix(0, 0)))

	if m.holdArmed || m.premiumAtBuy != 0 || m.priceAtBuy != 0 {
		t.Errorf("rejected order must not touch bookkeeping: %+v", m)
	}
	if m.State() != StateIdle {
		t.Errorf("machine must settle idle after rejection, got %s", m.State())
	}
}

func TestPremiumExit(t *testing.T) {
	tr := newFakeTrader()
	m := NewMachine("AXS", tr, testParams())

	m.Proceed(risingEval(t, time.Unix(0, 0)))
	if tr.buys != 1 {
		t.Fatalf("entry did not fire")
	}

	exit := flatEval(t, time.Unix(10, 0), true)
	exit.Premiums = ringOf(t, 10, append(repeat(2, 9), 2.3)...) // 2.3 > 1.1*2
	m.Proceed(exit)

	if tr.sells != 1 {
		t.Fatalf("expected premium exit, got %d sells", tr.sells)
	}
	if m.holdArmed || m.premiumAtBuy != 0 {
		t.Errorf("exit must clear bookkeeping")
	}
}

func TestPremiumAtExactThresholdHolds(t *testing.T) {
	tr := newFakeTrader()
	m := NewMachine("AXS", tr, testParams())

	m.Proceed(risingEval(t, time.Unix(0, 0)))

	exit := flatEval(t, time.Unix(10, 0), true)
	exit.Premiums = ringOf(t, 10, append(repeat(2, 9), 2.2)...) // 2.2 == 1.1*2, strict compare
	m.Proceed(exit)

	if tr.sells != 0 {
		t.Errorf("premium exit must be strictly greater, got %d sells", tr.sells)
	}
}

func TestHoldTimerExit(t *testing.T) {
	tr := newFakeTrader()
	m := NewMachine("AXS", tr, testParams())

	m.Proceed(risingEval(t, time.Unix(0, 0)))

	// One second short of the deadline, still holding.
	m.Proceed(flatEval(t, time.Unix(119, 0), true))
	if tr.sells != 0 {
		t.Fatalf("exit fired before the hold elapsed")
	}

	m.Proceed(flatEval(t, time.Unix(120, 0), true))
	if tr.sells != 1 {
		t.Errorf("expected timer exit at the deadline, got %d sells", tr.sells)
	}
}

func TestIdleRoutesBySide(t *testing.T) {
	tr := newFakeTrader()
	m := NewMachine("AXS", tr, testParams())

	// Open position routes through the sell branch: the premium guard
	// fires even though the buy guards also hold.
	m.premiumAtBuy = 2
	eval := risingEval(t, time.Unix(0, 0))
	eval.Open = true
	eval.Premiums = ringOf(t, 10, append(repeat(2, 9), 2.3)...)
	m.Proceed(eval)

	if tr.sells != 1 || tr.buys != 0 {
		t.Errorf("open position must evaluate the sell branch: %d buys %d sells", tr.buys, tr.sells)
	}
}
