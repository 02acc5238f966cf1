package limits

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"volume-splitter/internal/exchange"
	"volume-splitter/internal/precision"
)

type marketSource interface {
	ExchangeInfo(ctx context.Context, symbol string) (exchange.SymbolInfo, error)
	BookTicker(ctx context.Context, symbol string) (exchange.BookTicker, error)
}

// SymbolLimits 为交易对在单次请求内的限制快照，不跨请求缓存。
type SymbolLimits struct {
	Symbol            string
	MinQty            float64
	MaxQty            float64
	MinPrice          float64
	MaxPrice          float64
	PricePrecision    int
	QuantityPrecision int
	BestPrice         string
}

// Resolver 从交易所拉取交易对限制。
type Resolver struct {
	source marketSource
	logger *zap.Logger
}

// NewResolver 创建限制解析器。
func NewResolver(source marketSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		source: source,
		logger: logger,
	}
}

// Resolve 并行获取交易对元数据与最优报价，并提取数量、价格范围及精度。
func (r *Resolver) Resolve(ctx context.Context, symbol string) (SymbolLimits, error) {
	var (
		info   exchange.SymbolInfo
		ticker exchange.BookTicker
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		data, err := r.source.ExchangeInfo(groupCtx, symbol)
		if err != nil {
			return err
		}
		info = data
		return nil
	})

	group.Go(func() error {
		data, err := r.source.BookTicker(groupCtx, symbol)
		if err != nil {
			return err
		}
		ticker = data
		return nil
	})

	if err := group.Wait(); err != nil {
		return SymbolLimits{}, err
	}

	limits, err := fromSymbolInfo(info)
	if err != nil {
		return SymbolLimits{}, err
	}
	limits.Symbol = symbol
	limits.BestPrice = ticker.AskPrice

	r.logger.Debug("交易对限制获取完成",
		zap.String("symbol", symbol),
		zap.Float64("min_qty", limits.MinQty),
		zap.Float64("max_qty", limits.MaxQty),
		zap.Float64("min_price", limits.MinPrice),
		zap.Float64("max_price", limits.MaxPrice),
		zap.Int("price_precision", limits.PricePrecision),
		zap.Int("quantity_precision", limits.QuantityPrecision),
		zap.String("best_price", limits.BestPrice),
	)

	return limits, nil
}

func fromSymbolInfo(info exchange.SymbolInfo) (SymbolLimits, error) {
	lot, ok := info.Find(exchange.FilterLotSize)
	if !ok {
		return SymbolLimits{}, fmt.Errorf("%w: 缺少 %s 过滤器", exchange.ErrMalformedResponse, exchange.FilterLotSize)
	}
	priceFilter, ok := info.Find(exchange.FilterPrice)
	if !ok {
		return SymbolLimits{}, fmt.Errorf("%w: 缺少 %s 过滤器", exchange.ErrMalformedResponse, exchange.FilterPrice)
	}

	var (
		limits SymbolLimits
		err    error
	)
	fields := []struct {
		name  string
		raw   string
		value *float64
	}{
		{"minQty", lot.MinQty, &limits.MinQty},
		{"maxQty", lot.MaxQty, &limits.MaxQty},
		{"minPrice", priceFilter.MinPrice, &limits.MinPrice},
		{"maxPrice", priceFilter.MaxPrice, &limits.MaxPrice},
	}
	for _, f := range fields {
		if *f.value, err = strconv.ParseFloat(f.raw, 64); err != nil {
			return SymbolLimits{}, fmt.Errorf("%w: %s=%q 无法解析", exchange.ErrMalformedResponse, f.name, f.raw)
		}
	}

	if limits.PricePrecision, err = precision.FromStep(priceFilter.TickSize); err != nil {
		return SymbolLimits{}, fmt.Errorf("%w: tickSize: %v", exchange.ErrMalformedResponse, err)
	}
	if limits.QuantityPrecision, err = precision.FromStep(lot.StepSize); err != nil {
		return SymbolLimits{}, fmt.Errorf("%w: stepSize: %v", exchange.ErrMalformedResponse, err)
	}

	return limits, nil
}
