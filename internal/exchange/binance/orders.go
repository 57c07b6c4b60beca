// Package binance wraps the futures REST API into the small order
// surface the signal layer needs. It is the live analogue of the
// simulated ledger: market orders fill synchronously, limit orders
// rest and have their status refreshed by polling.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	futures "github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"arbflow/config"
	"arbflow/logger"
	"arbflow/models"
)

// OrderClient places and tracks orders on binance USDT futures.
type OrderClient struct {
	client  *futures.Client
	limiter *rate.Limiter
	log     *logger.Entry

	// Guards open-order polling. Status refresh may block on network
	// I/O and must not run concurrently for the same order id, so the
	// whole refresh pass is serialized.
	mu   sync.Mutex
	open map[string]*models.Order // client order id -> resting limit order
}

// NewOrderClient builds a futures client with its own pooled transport
// and a request limiter sized from the execution config.
func NewOrderClient(cfg config.ExecutionConfig) *OrderClient {
	transport := &http.Transport{
		MaxIdleConns:       16,
		MaxConnsPerHost:    8,
		DisableCompression: false,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	client := futures.NewClient(cfg.APIKey, cfg.APISecret)
	client.HTTPClient = httpClient
	if cfg.Endpoint != "" {
		client.SetApiEndpoint(cfg.Endpoint)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rps
	}

	oc := &OrderClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger().WithComponent("binance_orders"),
		open:    make(map[string]*models.Order),
	}

	oc.log.WithFields(logger.Fields{
		"endpoint":            cfg.Endpoint,
		"requests_per_second": rps,
		"burst":               burst,
	}).Info("binance order client initialized")

	return oc
}

// PlaceMarketOrder submits a market order and returns the fill.
// A decline from the exchange is surfaced as models.ErrRejected so the
// signal layer treats it like a simulated refusal.
func (oc *OrderClient) PlaceMarketOrder(ctx context.Context, symbol string, side models.OrderSide, positionSide models.PositionSide, quantity, clientOrderID string) (*models.Order, error) {
	if err := oc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := oc.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		PositionSide(futures.PositionSideType(positionSide)).
		Type(futures.OrderTypeMarket).
		Quantity(quantity).
		NewClientOrderID(clientOrderID).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		oc.log.WithError(err).WithFields(logger.Fields{
			"symbol":   symbol,
			"order_id": clientOrderID,
		}).Warn("market order declined")
		return nil, fmt.Errorf("%w: %v", models.ErrRejected, err)
	}

	order := fromCreateResponse(res)
	oc.log.WithFields(logger.Fields{
		"order_id": order.ClientOrderID,
		"symbol":   order.Symbol,
		"side":     string(order.Side),
		"qty":      order.Quantity.String(),
		"price":    order.Price.String(),
	}).Info("market order placed")
	return order, nil
}

// PlaceLimitOrder submits a GTC limit order and registers it for
// status polling.
func (oc *OrderClient) PlaceLimitOrder(ctx context.Context, symbol string, side models.OrderSide, positionSide models.PositionSide, price, quantity, clientOrderID string) (*models.Order, error) {
	if err := oc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := oc.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		PositionSide(futures.PositionSideType(positionSide)).
		Type(futures.OrderTypeLimit).
		TimeInForce(futures.TimeInForceTypeGTC).
		Price(price).
		Quantity(quantity).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		oc.log.WithError(err).WithFields(logger.Fields{
			"symbol":   symbol,
			"order_id": clientOrderID,
		}).Warn("limit order declined")
		return nil, fmt.Errorf("%w: %v", models.ErrRejected, err)
	}

	order := fromCreateResponse(res)

	oc.mu.Lock()
	if order.Status == models.OrderStatusNew {
		oc.open[order.ClientOrderID] = order
	}
	oc.mu.Unlock()

	oc.log.WithFields(logger.Fields{
		"order_id": order.ClientOrderID,
		"symbol":   order.Symbol,
		"price":    order.Price.String(),
	}).Info("limit order placed")
	return order, nil
}

// OrderStatus fetches the current state of one order.
func (oc *OrderClient) OrderStatus(ctx context.Context, symbol, clientOrderID string) (*models.Order, error) {
	if err := oc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := oc.client.NewGetOrderService().
		Symbol(symbol).
		OrigClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("order status %s: %w", clientOrderID, err)
	}
	return fromGetResponse(res), nil
}

// RefreshOpenOrders polls every resting limit order once and mutates
// its status in place. Filled and canceled orders drop off the open
// set. Call from a single goroutine; the client mutex keeps a late
// caller from polling the same order id concurrently.
func (oc *OrderClient) RefreshOpenOrders(ctx context.Context) error {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	for id, order := range oc.open {
		fresh, err := oc.OrderStatus(ctx, order.Symbol, id)
		if err != nil {
			oc.log.WithError(err).WithFields(logger.Fields{"order_id": id}).Warn("open order poll failed")
			continue
		}
		order.Status = fresh.Status
		order.Price = fresh.Price
		order.Quantity = fresh.Quantity
		if order.Status == models.OrderStatusFilled || order.Status == models.OrderStatusCanceled {
			delete(oc.open, id)
			oc.log.WithFields(logger.Fields{
				"order_id": id,
				"status":   string(order.Status),
			}).Info("limit order settled")
		}
	}
	return nil
}

// OpenOrderCount reports how many limit orders are still resting.
func (oc *OrderClient) OpenOrderCount() int {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return len(oc.open)
}

// decimalFromString parses exchange decimal strings, zero on garbage.
func decimalFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func fromCreateResponse(res *futures.CreateOrderResponse) *models.Order {
	price := res.AvgPrice
	if parsed, err := strconv.ParseFloat(price, 64); err != nil || parsed == 0 {
		price = res.Price
	}
	return &models.Order{
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Side:          models.OrderSide(res.Side),
		PositionSide:  models.PositionSide(res.PositionSide),
		Type:          models.OrderType(res.Type),
		Price:         decimalFromString(price),
		Quantity:      decimalFromString(res.OrigQuantity),
		Status:        models.OrderStatus(res.Status),
	}
}

func fromGetResponse(res *futures.Order) *models.Order {
	price := res.AvgPrice
	if parsed, err := strconv.ParseFloat(price, 64); err != nil || parsed == 0 {
		price = res.Price
	}
	return &models.Order{
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Side:          models.OrderSide(res.Side),
		PositionSide:  models.PositionSide(res.PositionSide),
		Type:          models.OrderType(res.Type),
		Price:         decimalFromString(price),
		Quantity:      decimalFromString(res.OrigQuantity),
		Status:        models.OrderStatus(res.Status),
	}
}
