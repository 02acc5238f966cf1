package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"volume-splitter/internal/config"
	"volume-splitter/internal/precision"
)

// Client 基于 go-binance 访问现货 REST 接口。
type Client struct {
	cfg    config.ExchangeConfig
	caller caller
	api    *binance.Client
}

var _ Gateway = (*Client)(nil)

// NewClient 构造 Binance 现货客户端，BaseURL 默认指向测试网。
func NewClient(cfg config.ExchangeConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	api := binance.NewClient(cfg.APIKey, cfg.APISecret)
	if cfg.BaseURL != "" {
		api.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	api.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		cfg: cfg,
		caller: caller{
			logger:    logger.Named("binance"),
			timeout:   cfg.Timeout,
			normalize: normalizeBinanceError,
		},
		api: api,
	}
}

// ExchangeInfo 获取交易对的过滤器配置。
func (c *Client) ExchangeInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	var raw *binance.ExchangeInfo
	err := c.caller.call(ctx, "exchange_info", func(ctx context.Context) error {
		res, err := c.api.NewExchangeInfoService().Symbol(symbol).Do(ctx)
		if err != nil {
			return err
		}
		raw = res
		return nil
	})
	if err != nil {
		return SymbolInfo{}, err
	}

	if raw == nil || len(raw.Symbols) == 0 {
		return SymbolInfo{}, fmt.Errorf("%w: exchangeInfo 未返回交易对 %s", ErrMalformedResponse, symbol)
	}

	return SymbolInfo{
		Symbol:  raw.Symbols[0].Symbol,
		Filters: convertFilters(raw.Symbols[0].Filters),
	}, nil
}

// BookTicker 获取最优买卖报价。
func (c *Client) BookTicker(ctx context.Context, symbol string) (BookTicker, error) {
	var tickers []*binance.BookTicker
	err := c.caller.call(ctx, "book_ticker", func(ctx context.Context) error {
		res, err := c.api.NewListBookTickersService().Symbol(symbol).Do(ctx)
		if err != nil {
			return err
		}
		tickers = res
		return nil
	})
	if err != nil {
		return BookTicker{}, err
	}

	for _, t := range tickers {
		if t != nil {
			return BookTicker{
				Symbol:      t.Symbol,
				BidPrice:    t.BidPrice,
				BidQuantity: t.BidQuantity,
				AskPrice:    t.AskPrice,
				AskQuantity: t.AskQuantity,
			}, nil
		}
	}

	return BookTicker{}, fmt.Errorf("%w: bookTicker 未返回 %s 报价", ErrMalformedResponse, symbol)
}

// NewOrder 提交 LIMIT + IOC 委托。
func (c *Client) NewOrder(ctx context.Context, params OrderParams) (OrderAck, error) {
	if params.ClientOrderID == "" {
		params.ClientOrderID = NewClientOrderID()
	}

	svc := c.api.NewCreateOrderService().
		Symbol(params.Symbol).
		Side(binance.SideType(params.Side)).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeIOC).
		Quantity(precision.Format(params.Quantity, params.QtyPrecision)).
		Price(precision.Format(params.Price, params.PricePrecision)).
		NewClientOrderID(params.ClientOrderID)

	var opts []binance.RequestOption
	if c.cfg.RecvWindow > 0 {
		opts = append(opts, binance.WithRecvWindow(c.cfg.RecvWindow))
	}

	var res *binance.CreateOrderResponse
	err := c.caller.call(ctx, "new_order", func(ctx context.Context) error {
		out, err := svc.Do(ctx, opts...)
		if err != nil {
			return err
		}
		res = out
		return nil
	})
	if err != nil {
		return OrderAck{}, err
	}
	if res == nil {
		return OrderAck{}, fmt.Errorf("%w: 下单未返回回执", ErrMalformedResponse)
	}

	return OrderAck{
		Symbol:              res.Symbol,
		OrderID:             res.OrderID,
		Status:              string(res.Status),
		Side:                string(res.Side),
		Type:                string(res.Type),
		Price:               res.Price,
		OrigQty:             res.OrigQuantity,
		ExecutedQty:         res.ExecutedQuantity,
		CummulativeQuoteQty: res.CummulativeQuoteQuantity,
		ClientOrderID:       res.ClientOrderID,
	}, nil
}

// Orders 查询交易对的历史委托。
func (c *Client) Orders(ctx context.Context, symbol string) ([]OrderAck, error) {
	var raw []*binance.Order
	err := c.caller.call(ctx, "get_orders", func(ctx context.Context) error {
		res, err := c.api.NewListOrdersService().Symbol(symbol).Do(ctx)
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
		if o == nil {
			continue
		}
		orders = append(orders, OrderAck{
			Symbol:              o.Symbol,
			OrderID:             o.OrderID,
			Status:              string(o.Status),
			Side:                string(o.Side),
			Type:                string(o.Type),
			Price:               o.Price,
			OrigQty:             o.OrigQuantity,
			ExecutedQty:         o.ExecutedQuantity,
			CummulativeQuoteQty: o.CummulativeQuoteQuantity,
			ClientOrderID:       o.ClientOrderID,
		})
	}

	return orders, nil
}

func convertFilters(raw []map[string]interface{}) []Filter {
	filters := make([]Filter, 0, len(raw))
	for _, f := range raw {
		filters = append(filters, Filter{
			FilterType: cast.ToString(f["filterType"]),
			MinQty:     cast.ToString(f["minQty"]),
			MaxQty:     cast.ToString(f["maxQty"]),
			StepSize:   cast.ToString(f["stepSize"]),
			MinPrice:   cast.ToString(f["minPrice"]),
			MaxPrice:   cast.ToString(f["maxPrice"]),
			TickSize:   cast.ToString(f["tickSize"]),
		})
	}
	return filters
}

// NewClientOrderID 生成交易所接受的客户端委托号。
func NewClientOrderID() string {
	return "vs-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
