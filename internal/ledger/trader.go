package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"arbflow/logger"
	"arbflow/models"
)

var (
	// ErrUsage marks a sizing call that passed both or neither of amount
	// and ratio. The violation is rejected before any side effect.
	ErrUsage = errors.New("exactly one of amount or ratio must be provided")

	// ErrPositionConflict marks an open against an opposing held side or a
	// close of a side not held. Callers treat it as a no-op.
	ErrPositionConflict = errors.New("position side conflict")

	// ErrOrderLimit marks an entry refused because the symbol already
	// reached its order budget. A no-op like ErrPositionConflict.
	ErrOrderLimit = errors.New("max order count reached")
)

// Sizing selects how an entry order is sized: a fixed quote-currency
// amount, or a ratio of the free balance. Exactly one must be set.
type Sizing struct {
	Amount *decimal.Decimal
	Ratio  *decimal.Decimal
}

// Amount builds an amount-based Sizing.
func Amount(v float64) Sizing {
	d := decimal.NewFromFloat(v)
	return Sizing{Amount: &d}
}

// Ratio builds a balance-ratio Sizing.
func Ratio(v float64) Sizing {
	d := decimal.NewFromFloat(v)
	return Sizing{Ratio: &d}
}

// Trader executes market orders synchronously against the local account.
// The account ledger is updated before each call returns; there is no
// asynchronous fill path in the simulation.
type Trader struct {
	account       *Account
	recorder      *Recorder
	maxOrderCount int
	lotPrecision  int32
	log           *logger.Entry

	current time.Time
	marks   map[string]decimal.Decimal
	seq     int
}

func NewTrader(account *Account, maxOrderCount int, lotPrecision int32) *Trader {
	return &Trader{
		account:       account,
		recorder:      NewRecorder(),
		maxOrderCount: maxOrderCount,
		lotPrecision:  lotPrecision,
		log:           logger.GetLogger().WithComponent("trader"),
		marks:         make(map[string]decimal.Decimal),
	}
}

// Account exposes the ledger for read access.
func (t *Trader) Account() *Account { return t.account }

// HasOpenPosition is the guard predicate the signal machines consult.
func (t *Trader) HasOpenPosition(symbol string) bool {
	return t.account.HasOpenPosition(strings.ToUpper(symbol))
}

// MarkToMarket sets the simulated time and the per-symbol mark prices the
// next fills execute at. The replay loop calls this once per step before
// any strategy evaluation.
func (t *Trader) MarkToMarket(now time.Time, prices map[string]float64) {
	t.current = now
	for sym, p := range prices {
		t.marks[strings.ToUpper(sym)] = decimal.NewFromFloat(p)
	}
}

// BuyLongMarket opens or grows a long position sized by amount or ratio.
func (t *Trader) BuyLongMarket(symbol string, sizing Sizing) (*models.Order, error) {
	return t.openMarket(strings.ToUpper(symbol), models.PositionSideLong, sizing)
}

// BuyShortMarket opens or grows a short position sized by amount or ratio.
func (t *Trader) BuyShortMarket(symbol string, sizing Sizing) (*models.Order, error) {
	return t.openMarket(strings.ToUpper(symbol), models.PositionSideShort, sizing)
}

// SellLongMarket closes the given ratio of an open long position.
func (t *Trader) SellLongMarket(symbol string, ratio float64) (*models.Order, error) {
	return t.closeMarket(strings.ToUpper(symbol), models.PositionSideLong, ratio)
}

// SellShortMarket closes the given ratio of an open short position.
func (t *Trader) SellShortMarket(symbol string, ratio float64) (*models.Order, error) {
	return t.closeMarket(strings.ToUpper(symbol), models.PositionSideShort, ratio)
}

func (t *Trader) openMarket(symbol string, side models.PositionSide, sizing Sizing) (*models.Order, error) {
	if (sizing.Amount == nil) == (sizing.Ratio == nil) {
		return nil, ErrUsage
	}

	pos := t.account.Position(symbol)
	if pos.OrderCount >= t.maxOrderCount {
		t.log.WithFields(logger.Fields{"symbol": symbol, "order_count": pos.OrderCount}).Warn("order budget exhausted")
		return nil, ErrOrderLimit
	}
	if pos.Side != models.PositionSideNone && pos.Side != side {
		t.log.WithFields(logger.Fields{"symbol": symbol, "held": string(pos.Side), "requested": string(side)}).
			Warn("cannot open against held position side")
		return nil, ErrPositionConflict
	}

	price, err := t.mark(symbol)
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if sizing.Amount != nil {
		amount = *sizing.Amount
	} else {
		amount = t.account.Balance().Mul(*sizing.Ratio)
	}

	qty := truncateLot(amount.Div(price), t.lotPrecision)
	if qty.IsZero() {
		t.log.WithFields(logger.Fields{"symbol": symbol, "amount": amount.String()}).Warn("sized quantity truncates to zero")
		return nil, fmt.Errorf("%w: amount %s at price %s sizes to zero", models.ErrRejected, amount, price)
	}

	orderSide := models.OrderSideBuy
	if side == models.PositionSideShort {
		orderSide = models.OrderSideSell
	}
	order := t.fill(symbol, orderSide, side, price, qty)
	t.account.open(symbol, side, qty, price)
	t.record(order)
	return order, nil
}

func (t *Trader) closeMarket(symbol string, side models.PositionSide, ratio float64) (*models.Order, error) {
	pos := t.account.Position(symbol)
	if pos.Side != side {
		t.log.WithFields(logger.Fields{"symbol": symbol, "held": string(pos.Side), "requested": string(side)}).
			Warn("cannot close a position side that is not held")
		return nil, ErrPositionConflict
	}

	price, err := t.mark(symbol)
	if err != nil {
		return nil, err
	}

	qty := truncateLot(pos.Size.Mul(decimal.NewFromFloat(ratio)), t.lotPrecision)
	if qty.IsZero() {
		return nil, fmt.Errorf("%w: position %s at ratio %v sizes to zero", models.ErrRejected, pos.Size, ratio)
	}

	orderSide := models.OrderSideSell
	if side == models.PositionSideShort {
		orderSide = models.OrderSideBuy
	}
	order := t.fill(symbol, orderSide, side, price, qty)
	t.account.reduce(symbol, qty, price)
	t.record(order)
	return order, nil
}

func (t *Trader) fill(symbol string, side models.OrderSide, positionSide models.PositionSide, price, qty decimal.Decimal) *models.Order {
	order := &models.Order{
		ClientOrderID: t.nextOrderID(symbol),
		Symbol:        symbol,
		Side:          side,
		PositionSide:  positionSide,
		Type:          models.OrderTypeMarket,
		Price:         price,
		Quantity:      qty,
		Status:        models.OrderStatusFilled,
		Timestamp:     t.current,
	}
	t.seq++
	return order
}

func (t *Trader) record(order *models.Order) {
	t.recorder.Record(*order)
	logger.IncrementOrders(1)
	t.log.WithFields(logger.Fields{
		"order_id": order.ClientOrderID,
		"symbol":   order.Symbol,
		"side":     string(order.Side),
		"qty":      order.Quantity.String(),
		"price":    order.Price.String(),
	}).Info("order filled")
}

func (t *Trader) mark(symbol string) (decimal.Decimal, error) {
	price, ok := t.marks[symbol]
	if !ok || price.IsZero() {
		return decimal.Zero, fmt.Errorf("no mark price for %s", symbol)
	}
	return price, nil
}

// nextOrderID builds symbol + current unix timestamp + zero-padded
// sequence, unique per ledger even for same-millisecond orders.
func (t *Trader) nextOrderID(symbol string) string {
	return fmt.Sprintf("%s%dnum%05d", symbol, t.current.Unix(), t.seq)
}

// Finalize returns the ordered order history accumulated over the run.
func (t *Trader) Finalize() []models.Order {
	return t.recorder.Orders()
}

// truncateLot floors a quantity to the configured lot precision
// (3 decimals by default: floor(q * 10^p) / 10^p).
func truncateLot(q decimal.Decimal, precision int32) decimal.Decimal {
	return q.RoundDown(precision)
}
