package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"

	"volume-splitter/internal/config"
)

type fakeCCXT struct {
	markets     map[string]ccxt.MarketInterface
	ticker      ccxt.Ticker
	order       ccxt.Order
	orders      []ccxt.Order
	err         error
	limitCalls  int
	lastSide    string
	lastAmount  float64
	lastPrice   float64
	loadedTimes int
}

func (f *fakeCCXT) LoadMarkets(params ...interface{}) (map[string]ccxt.MarketInterface, error) {
	f.loadedTimes++
	return f.markets, f.err
}

func (f *fakeCCXT) FetchTicker(symbol string, options ...ccxt.FetchTickerOptions) (ccxt.Ticker, error) {
	return f.ticker, f.err
}

func (f *fakeCCXT) CreateLimitOrder(symbol string, side string, amount float64, price float64, options ...ccxt.CreateLimitOrderOptions) (ccxt.Order, error) {
	f.limitCalls++
	f.lastSide = side
	f.lastAmount = amount
	f.lastPrice = price
	return f.order, f.err
}

func (f *fakeCCXT) FetchOrders(options ...ccxt.FetchOrdersOptions) ([]ccxt.Order, error) {
	return f.orders, f.err
}

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func newFakeCCXTClient(f *fakeCCXT) *CCXTClient {
	return newCCXTClient(f, config.ExchangeConfig{Timeout: time.Second}, nil)
}

func TestCCXTExchangeInfoReadsRawFilters(t *testing.T) {
	fake := &fakeCCXT{
		markets: map[string]ccxt.MarketInterface{
			"ETH/USDT": {
				Id: strPtr("ETHUSDT"),
				Info: map[string]interface{}{
					"symbol": "ETHUSDT",
					"filters": []interface{}{
						map[string]interface{}{"filterType": "PRICE_FILTER", "minPrice": "0.01000000", "maxPrice": "100000.00000000", "tickSize": "0.01000000"},
						map[string]interface{}{"filterType": "LOT_SIZE", "minQty": "0.00010000", "maxQty": "9000.00000000", "stepSize": "0.00010000"},
					},
				},
			},
		},
	}

	info, err := newFakeCCXTClient(fake).ExchangeInfo(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("ExchangeInfo returned error: %v", err)
	}
	if info.Symbol != "ETHUSDT" {
		t.Errorf("unexpected symbol %q", info.Symbol)
	}
	lot, ok := info.Find(FilterLotSize)
	if !ok || lot.StepSize != "0.00010000" {
		t.Fatalf("unexpected LOT_SIZE %+v", lot)
	}
	if fake.loadedTimes != 1 {
		t.Errorf("expected markets to be loaded once, got %d", fake.loadedTimes)
	}
}

func TestCCXTExchangeInfoUnknownSymbol(t *testing.T) {
	fake := &fakeCCXT{markets: map[string]ccxt.MarketInterface{}}

	_, err := newFakeCCXTClient(fake).ExchangeInfo(context.Background(), "FOOBAR")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != -1121 {
		t.Fatalf("expected invalid symbol APIError, got %v", err)
	}
}

func TestCCXTBookTickerFallsBackToUnifiedAsk(t *testing.T) {
	fake := &fakeCCXT{ticker: ccxt.Ticker{Ask: floatPtr(123.45), Info: map[string]interface{}{}}}

	ticker, err := newFakeCCXTClient(fake).BookTicker(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("BookTicker returned error: %v", err)
	}
	if ticker.AskPrice != "123.45" {
		t.Errorf("expected ask 123.45, got %q", ticker.AskPrice)
	}
}

func TestCCXTNewOrderPassesRawReceipt(t *testing.T) {
	fake := &fakeCCXT{order: ccxt.Order{
		Id: strPtr("777"),
		Info: map[string]interface{}{
			"symbol":              "ETHUSDT",
			"orderId":             float64(777),
			"status":              "EXPIRED",
			"side":                "SELL",
			"type":                "LIMIT",
			"price":               "150.00000000",
			"origQty":             "1.00000000",
			"executedQty":         "0.00000000",
			"cummulativeQuoteQty": "0.00000000",
		},
	}}

	ack, err := newFakeCCXTClient(fake).NewOrder(context.Background(), OrderParams{
		Symbol: "ETHUSDT", Side: SideSell, Quantity: 1, Price: 150,
	})
	if err != nil {
		t.Fatalf("NewOrder returned error: %v", err)
	}
	if fake.lastSide != "sell" || fake.lastAmount != 1 || fake.lastPrice != 150 {
		t.Errorf("unexpected call side=%s amount=%v price=%v", fake.lastSide, fake.lastAmount, fake.lastPrice)
	}
	if ack.OrderID != 777 || ack.Status != "EXPIRED" || ack.Price != "150.00000000" {
		t.Errorf("unexpected ack %+v", ack)
	}
	if ack.ClientOrderID == "" {
		t.Errorf("expected generated client order id to be kept")
	}
}

func TestCCXTNewOrderRejection(t *testing.T) {
	fake := &fakeCCXT{err: &ccxt.Error{Message: `binance {"code":-2010,"msg":"Account has insufficient balance for requested action."}`}}

	_, err := newFakeCCXTClient(fake).NewOrder(context.Background(), OrderParams{Symbol: "ETHUSDT", Side: SideBuy, Quantity: 1, Price: 1})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != -2010 || apiErr.Message != "Account has insufficient balance for requested action." {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestNormalizeCCXTNetworkError(t *testing.T) {
	err := normalizeCCXTError(&ccxt.Error{Type: ccxt.NetworkErrorErrType, Message: "connection reset"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if outcomeOf(err) != "unavailable" {
		t.Errorf("unexpected outcome %s", outcomeOf(err))
	}
}

func TestOutcomeOf(t *testing.T) {
	cases := map[string]error{
		"ok":          nil,
		"rejected":    &APIError{Code: -1, Message: "x"},
		"canceled":    unavailable(context.Canceled),
		"unavailable": errors.New("boom"),
	}
	for want, err := range cases {
		if got := outcomeOf(err); got != want {
			t.Errorf("outcomeOf(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestCCXTOrdersFallsBackToUnifiedFields(t *testing.T) {
	fake := &fakeCCXT{orders: []ccxt.Order{{
		Id:     strPtr("12"),
		Symbol: strPtr("ETH/USDT"),
		Status: strPtr("closed"),
		Side:   strPtr("buy"),
		Type:   strPtr("limit"),
		Info:   map[string]interface{}{},
	}}}

	orders, err := newFakeCCXTClient(fake).Orders(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("Orders returned error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	got := orders[0]
	if got.OrderID != 12 || got.Symbol != "ETHUSDT" || got.Status != "CLOSED" || got.Side != "BUY" || got.Type != "LIMIT" {
		t.Errorf("unexpected order %+v", got)
	}
}
