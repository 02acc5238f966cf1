package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"volume-splitter/internal/config"
	"volume-splitter/internal/exchange"
	"volume-splitter/internal/store"
)

type stubGateway struct {
	newOrders int
}

func (s *stubGateway) ExchangeInfo(ctx context.Context, symbol string) (exchange.SymbolInfo, error) {
	return exchange.SymbolInfo{
		Symbol: symbol,
		Filters: []exchange.Filter{
			{FilterType: exchange.FilterPrice, MinPrice: "0.01000000", MaxPrice: "1000000.00000000", TickSize: "0.01000000"},
			{FilterType: exchange.FilterLotSize, MinQty: "0.00010000", MaxQty: "9000.00000000", StepSize: "0.00010000"},
		},
	}, nil
}

func (s *stubGateway) BookTicker(ctx context.Context, symbol string) (exchange.BookTicker, error) {
	return exchange.BookTicker{Symbol: symbol, AskPrice: "150.00000000"}, nil
}

func (s *stubGateway) NewOrder(ctx context.Context, params exchange.OrderParams) (exchange.OrderAck, error) {
	s.newOrders++
	return exchange.OrderAck{Symbol: params.Symbol, OrderID: int64(s.newOrders), Status: "FILLED", Side: params.Side, Type: exchange.OrderTypeLimit}, nil
}

func (s *stubGateway) Orders(ctx context.Context, symbol string) ([]exchange.OrderAck, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:            "127.0.0.1:0",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Exchange: config.ExchangeConfig{Driver: config.DriverBinance, Symbol: "ETHUSDT"},
	}
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_SplitsAndJournals(t *testing.T) {
	st, err := store.NewSQLite(config.JournalConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	defer st.Close()

	gw := &stubGateway{}
	a := newWithGateway(testConfig(), nil, st, gw)
	h, err := a.Handler()
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}

	rr := post(t, h, "/create_orders", `{"volume": 1000, "number": 4, "amountDif": 0, "side": "BUY", "priceMin": 100, "priceMax": 200}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gw.newOrders != 4 {
		t.Errorf("expected 4 submissions, got %d", gw.newOrders)
	}

	req := httptest.NewRequest(http.MethodGet, "/events?type=order_submitted", nil)
	events := httptest.NewRecorder()
	h.ServeHTTP(events, req)
	if events.Code != http.StatusOK || strings.Count(events.Body.String(), `"type":"order_submitted"`) != 4 {
		t.Errorf("expected 4 journaled submissions, got %d: %s", events.Code, events.Body.String())
	}
}

func TestHandler_WithoutJournal(t *testing.T) {
	a := newWithGateway(testConfig(), nil, nil, &stubGateway{})
	h, err := a.Handler()
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}

	rr := post(t, h, "/create_orders", `{"volume": 1000, "number": 1, "amountDif": 0, "side": "HOLD", "priceMin": 100, "priceMax": 200}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	events := httptest.NewRecorder()
	h.ServeHTTP(events, req)
	if events.Code != http.StatusNotFound {
		t.Errorf("expected 404 when journal disabled, got %d", events.Code)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newWithGateway(testConfig(), nil, nil, &stubGateway{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Exchange.Driver = "kraken"
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
