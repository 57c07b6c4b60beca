package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"arbflow/models"
)

func newTestTrader(balance float64) *Trader {
	t := NewTrader(NewAccount(decimal.NewFromFloat(balance)), 3, 3)
	t.MarkToMarket(time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC), map[string]float64{"AXSUSDT": 100})
	return t
}

func TestBuyLongMarketSizing(t *testing.T) {
	tr := newTestTrader(5000)

	order, err := tr.BuyLongMarket("AXSUSDT", Amount(1000))
	if err != nil {
		t.Fatalf("BuyLongMarket failed: %v", err)
	}
	// floor(1000/100 * 10^3) / 10^3
	if !order.Quantity.Equal(decimal.RequireFromString("10")) {
		t.Errorf("expected quantity 10.000, got %s", order.Quantity)
	}
	if order.Side != models.OrderSideBuy || order.PositionSide != models.PositionSideLong {
		t.Errorf("unexpected order sides: %+v", order)
	}
	if order.Status != models.OrderStatusFilled {
		t.Errorf("market order must fill synchronously: %s", order.Status)
	}

	pos := tr.Account().Position("AXSUSDT")
	if !pos.Size.Equal(decimal.RequireFromString("10")) || pos.Side != models.PositionSideLong {
		t.Errorf("position not updated: %+v", pos)
	}
	if !tr.Account().Balance().Equal(decimal.NewFromFloat(4000)) {
		t.Errorf("balance not debited: %s", tr.Account().Balance())
	}
}

func TestBuyLongMarketLotTruncation(t *testing.T) {
	tr := newTestTrader(5000)
	tr.MarkToMarket(time.Unix(0, 0), map[string]float64{"AXSUSDT": 3})

	order, err := tr.BuyLongMarket("AXSUSDT", Amount(10))
	if err != nil {
		t.Fatalf("BuyLongMarket failed: %v", err)
	}
	// 10/3 = 3.333... truncated, never rounded up.
	if !order.Quantity.Equal(decimal.RequireFromString("3.333")) {
		t.Errorf("expected truncated quantity 3.333, got %s", order.Quantity)
	}
}

func TestBuyLongMarketUsageError(t *testing.T) {
	tr := newTestTrader(5000)

	if _, err := tr.BuyLongMarket("AXSUSDT", Sizing{}); !errors.Is(err, ErrUsage) {
		t.Errorf("neither amount nor ratio should be ErrUsage, got %v", err)
	}
	amt, ratio := decimal.NewFromInt(100), decimal.NewFromFloat(0.5)
	if _, err := tr.BuyLongMarket("AXSUSDT", Sizing{Amount: &amt, Ratio: &ratio}); !errors.Is(err, ErrUsage) {
		t.Errorf("both amount and ratio should be ErrUsage, got %v", err)
	}
	if len(tr.Finalize()) != 0 {
		t.Errorf("usage errors must not record orders")
	}
}

func TestRatioSizingUsesBalance(t *testing.T) {
	tr := newTestTrader(2000)

	order, err := tr.BuyLongMarket("AXSUSDT", Ratio(0.5))
	if err != nil {
		t.Fatalf("BuyLongMarket failed: %v", err)
	}
	if !order.Quantity.Equal(decimal.RequireFromString("10")) {
		t.Errorf("expected quantity 10 from half balance, got %s", order.Quantity)
	}
}

func TestMaxOrderCountRefusal(t *testing.T) {
	tr := newTestTrader(100000)

	for i := 0; i < 3; i++ {
		if _, err := tr.BuyLongMarket("AXSUSDT", Amount(100)); err != nil {
			t.Fatalf("entry %d failed: %v", i, err)
		}
	}
	if _, err := tr.BuyLongMarket("AXSUSDT", Amount(100)); !errors.Is(err, ErrOrderLimit) {
		t.Fatalf("expected ErrOrderLimit on fourth entry, got %v", err)
	}
}

func TestSellWithoutPositionIsConflict(t *testing.T) {
	tr := newTestTrader(5000)

	order, err := tr.SellLongMarket("AXSUSDT", 1)
	if !errors.Is(err, ErrPositionConflict) {
		t.Fatalf("expected ErrPositionConflict, got %v", err)
	}
	if order != nil {
		t.Errorf("conflict must be a no-op, got order %+v", order)
	}
}

func TestOppositeSideOpenIsConflict(t *testing.T) {
	tr := newTestTrader(5000)

	if _, err := tr.BuyLongMarket("AXSUSDT", Amount(1000)); err != nil {
		t.Fatalf("long entry failed: %v", err)
	}
	if _, err := tr.BuyShortMarket("AXSUSDT", Amount(1000)); !errors.Is(err, ErrPositionConflict) {
		t.Fatalf("expected conflict opening short over long, got %v", err)
	}
}

func TestFullExitResetsSymbolState(t *testing.T) {
	tr := newTestTrader(5000)

	if _, err := tr.BuyLongMarket("AXSUSDT", Amount(1000)); err != nil {
		t.Fatalf("entry failed: %v", err)
	}
	if _, err := tr.SellLongMarket("AXSUSDT", 1); err != nil {
		t.Fatalf("exit failed: %v", err)
	}

	pos := tr.Account().Position("AXSUSDT")
	if !pos.Flat() || pos.OrderCount != 0 {
		t.Errorf("position not reset after full exit: %+v", pos)
	}
	if tr.HasOpenPosition("AXSUSDT") {
		t.Errorf("expected no open position after full exit")
	}
	// Round trip at one price restores the balance exactly.
	if !tr.Account().Balance().Equal(decimal.NewFromFloat(5000)) {
		t.Errorf("balance not restored: %s", tr.Account().Balance())
	}
}

func TestShortRoundTrip(t *testing.T) {
	tr := newTestTrader(5000)

	open, err := tr.BuyShortMarket("AXSUSDT", Amount(1000))
	if err != nil {
		t.Fatalf("short entry failed: %v", err)
	}
	if open.Side != models.OrderSideSell || open.PositionSide != models.PositionSideShort {
		t.Errorf("short entry must sell: %+v", open)
	}
	// Short proceeds are credited up front.
	if !tr.Account().Balance().Equal(decimal.NewFromFloat(6000)) {
		t.Errorf("short proceeds not credited: %s", tr.Account().Balance())
	}

	// Price drops, buying back costs less than the proceeds.
	tr.MarkToMarket(time.Unix(120, 0), map[string]float64{"AXSUSDT": 80})
	closeOrder, err := tr.SellShortMarket("AXSUSDT", 1)
	if err != nil {
		t.Fatalf("short exit failed: %v", err)
	}
	if closeOrder.Side != models.OrderSideBuy {
		t.Errorf("short exit must buy: %+v", closeOrder)
	}
	if !tr.Account().Balance().Equal(decimal.NewFromFloat(5200)) {
		t.Errorf("short profit not realized: %s", tr.Account().Balance())
	}
	if !tr.Account().Position("AXSUSDT").Flat() {
		t.Errorf("short position not reset")
	}
}

func TestPartialExitKeepsPosition(t *testing.T) {
	tr := newTestTrader(5000)

	if _, err := tr.BuyLongMarket("AXSUSDT", Amount(1000)); err != nil {
		t.Fatalf("entry failed: %v", err)
	}
	order, err := tr.SellLongMarket("AXSUSDT", 0.5)
	if err != nil {
		t.Fatalf("partial exit failed: %v", err)
	}
	if !order.Quantity.Equal(decimal.RequireFromString("5")) {
		t.Errorf("expected half quantity 5, got %s", order.Quantity)
	}
	pos := tr.Account().Position("AXSUSDT")
	if pos.Flat() || !pos.Size.Equal(decimal.RequireFromString("5")) {
		t.Errorf("unexpected remaining position: %+v", pos)
	}
}

func TestOrderIDFormatAndUniqueness(t *testing.T) {
	tr := newTestTrader(100000)

	a, err := tr.BuyLongMarket("AXSUSDT", Amount(100))
	if err != nil {
		t.Fatalf("entry failed: %v", err)
	}
	b, err := tr.BuyLongMarket("AXSUSDT", Amount(100))
	if err != nil {
		t.Fatalf("entry failed: %v", err)
	}

	if !strings.HasPrefix(a.ClientOrderID, "AXSUSDT") || !strings.Contains(a.ClientOrderID, "num00000") {
		t.Errorf("unexpected order id format: %s", a.ClientOrderID)
	}
	// Same simulated millisecond, still unique.
	if a.ClientOrderID == b.ClientOrderID {
		t.Errorf("order ids must be unique per ledger: %s", a.ClientOrderID)
	}
}

func TestOrderHistoryOrdering(t *testing.T) {
	tr := newTestTrader(100000)

	if _, err := tr.BuyLongMarket("AXSUSDT", Amount(100)); err != nil {
		t.Fatalf("entry failed: %v", err)
	}
	if _, err := tr.SellLongMarket("AXSUSDT", 1); err != nil {
		t.Fatalf("exit failed: %v", err)
	}

	orders := tr.Finalize()
	if len(orders) != 2 {
		t.Fatalf("expected 2 recorded orders, got %d", len(orders))
	}
	if orders[0].Side != models.OrderSideBuy || orders[1].Side != models.OrderSideSell {
		t.Errorf("history out of order: %+v", orders)
	}
}
