package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"volume-splitter/internal/config"
)

type ccxtExchange interface {
	LoadMarkets(params ...interface{}) (map[string]ccxt.MarketInterface, error)
	FetchTicker(symbol string, options ...ccxt.FetchTickerOptions) (ccxt.Ticker, error)
	CreateLimitOrder(symbol string, side string, amount float64, price float64, options ...ccxt.CreateLimitOrderOptions) (ccxt.Order, error)
	FetchOrders(options ...ccxt.FetchOrdersOptions) ([]ccxt.Order, error)
}

// CCXTClient 通过 ccxt 统一接口访问 Binance 现货，
// 过滤器取自市场元数据中的原始 info 字段。
type CCXTClient struct {
	caller   caller
	exchange ccxtExchange

	// LoadMarkets 会改写 ccxt 内部的市场缓存
	marketsMu sync.Mutex
}

var _ Gateway = (*CCXTClient)(nil)

// NewCCXTClient 构造 ccxt Binance 现货客户端。
func NewCCXTClient(cfg config.ExchangeConfig, logger *zap.Logger) *CCXTClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"timeout":         cfg.Timeout.Milliseconds(),
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "spot",
		},
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}
	if cfg.RecvWindow > 0 {
		userConfig["options"].(map[string]interface{})["recvWindow"] = cfg.RecvWindow
	}

	ex := ccxt.NewBinance(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	return newCCXTClient(ex, cfg, logger)
}

func newCCXTClient(ex ccxtExchange, cfg config.ExchangeConfig, logger *zap.Logger) *CCXTClient {
	return &CCXTClient{
		caller: caller{
			logger:    logger.Named("ccxt"),
			timeout:   cfg.Timeout,
			normalize: normalizeCCXTError,
		},
		exchange: ex,
	}
}

// ExchangeInfo 从市场元数据中取出交易对的原始过滤器。
func (c *CCXTClient) ExchangeInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	market, err := c.market(ctx, symbol)
	if err != nil {
		return SymbolInfo{}, err
	}

	rawFilters, ok := market.Info["filters"].([]interface{})
	if !ok {
		return SymbolInfo{}, fmt.Errorf("%w: 市场 %s 缺少 filters", ErrMalformedResponse, symbol)
	}

	filters := make([]map[string]interface{}, 0, len(rawFilters))
	for _, item := range rawFilters {
		if f, ok := item.(map[string]interface{}); ok {
			filters = append(filters, f)
		}
	}

	return SymbolInfo{
		Symbol:  cast.ToString(market.Info["symbol"]),
		Filters: convertFilters(filters),
	}, nil
}

// BookTicker 通过 ticker 获取最优卖价。
func (c *CCXTClient) BookTicker(ctx context.Context, symbol string) (BookTicker, error) {
	var ticker ccxt.Ticker
	err := c.caller.call(ctx, "book_ticker", func(context.Context) error {
		res, err := c.exchange.FetchTicker(symbol)
		if err != nil {
			return err
		}
		ticker = res
		return nil
	})
	if err != nil {
		return BookTicker{}, err
	}

	ask := cast.ToString(ticker.Info["askPrice"])
	if ask == "" && ticker.Ask != nil {
		ask = strconv.FormatFloat(*ticker.Ask, 'f', -1, 64)
	}
	if ask == "" {
		return BookTicker{}, fmt.Errorf("%w: ticker 缺少 %s 卖一价", ErrMalformedResponse, symbol)
	}

	bid := cast.ToString(ticker.Info["bidPrice"])
	if bid == "" && ticker.Bid != nil {
		bid = strconv.FormatFloat(*ticker.Bid, 'f', -1, 64)
	}

	return BookTicker{
		Symbol:      symbol,
		BidPrice:    bid,
		BidQuantity: cast.ToString(ticker.Info["bidQty"]),
		AskPrice:    ask,
		AskQuantity: cast.ToString(ticker.Info["askQty"]),
	}, nil
}

// NewOrder 提交 LIMIT + IOC 委托，数量与价格已按交易对精度量化。
func (c *CCXTClient) NewOrder(ctx context.Context, params OrderParams) (OrderAck, error) {
	if params.ClientOrderID == "" {
		params.ClientOrderID = NewClientOrderID()
	}

	extra := map[string]interface{}{
		"timeInForce":      TimeInForceIOC,
		"newClientOrderId": params.ClientOrderID,
	}

	var order ccxt.Order
	err := c.caller.call(ctx, "new_order", func(context.Context) error {
		res, err := c.exchange.CreateLimitOrder(
			params.Symbol,
			strings.ToLower(params.Side),
			params.Quantity,
			params.Price,
			ccxt.WithCreateLimitOrderParams(extra),
		)
		if err != nil {
			return err
		}
		order = res
		return nil
	})
	if err != nil {
		return OrderAck{}, err
	}

	ack := convertCCXTOrder(order)
	if ack.ClientOrderID == "" {
		ack.ClientOrderID = params.ClientOrderID
	}
	return ack, nil
}

// Orders 查询交易对的历史委托。
func (c *CCXTClient) Orders(ctx context.Context, symbol string) ([]OrderAck, error) {
	var raw []ccxt.Order
	err := c.caller.call(ctx, "get_orders", func(context.Context) error {
		res, err := c.exchange.FetchOrders(ccxt.WithFetchOrdersSymbol(symbol))
		if err != nil {
			return err
		}
		raw = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	orders := make([]OrderAck, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, convertCCXTOrder(o))
	}
	return orders, nil
}

func (c *CCXTClient) market(ctx context.Context, symbol string) (ccxt.MarketInterface, error) {
	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	// 每次都重新拉取，交易所限制可能随时调整
	var markets map[string]ccxt.MarketInterface
	err := c.caller.call(ctx, "exchange_info", func(context.Context) error {
		res, err := c.exchange.LoadMarkets(true)
		if err != nil {
			return err
		}
		markets = res
		return nil
	})
	if err != nil {
		return ccxt.MarketInterface{}, err
	}

	if m, ok := markets[symbol]; ok {
		return m, nil
	}
	for _, m := range markets {
		if m.Id != nil && strings.EqualFold(*m.Id, symbol) {
			return m, nil
		}
	}

	return ccxt.MarketInterface{}, &APIError{Code: -1121, Message: "Invalid symbol."}
}

func convertCCXTOrder(o ccxt.Order) OrderAck {
	info := o.Info

	ack := OrderAck{
		Symbol:              cast.ToString(info["symbol"]),
		OrderID:             cast.ToInt64(info["orderId"]),
		Status:              cast.ToString(info["status"]),
		Side:                cast.ToString(info["side"]),
		Type:                cast.ToString(info["type"]),
		Price:               cast.ToString(info["price"]),
		OrigQty:             cast.ToString(info["origQty"]),
		ExecutedQty:         cast.ToString(info["executedQty"]),
		CummulativeQuoteQty: cast.ToString(info["cummulativeQuoteQty"]),
		ClientOrderID:       cast.ToString(info["clientOrderId"]),
	}

	if ack.OrderID == 0 && o.Id != nil {
		ack.OrderID = cast.ToInt64(*o.Id)
	}
	if ack.Symbol == "" && o.Symbol != nil {
		ack.Symbol = strings.ReplaceAll(*o.Symbol, "/", "")
	}
	if ack.Status == "" && o.Status != nil {
		ack.Status = strings.ToUpper(*o.Status)
	}
	if ack.Side == "" && o.Side != nil {
		ack.Side = strings.ToUpper(*o.Side)
	}
	if ack.Type == "" && o.Type != nil {
		ack.Type = strings.ToUpper(*o.Type)
	}

	return ack
}
