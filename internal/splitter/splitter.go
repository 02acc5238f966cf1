package splitter

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"volume-splitter/internal/exchange"
	"volume-splitter/internal/limits"
	"volume-splitter/internal/metrics"
	"volume-splitter/internal/precision"
)

// Splitter 将总成交额拆分为若干随机价格、随机金额的限价 IOC 子订单并逐笔提交。
// 子订单必须串行提交：每一笔都依赖前一笔之后的剩余金额。
type Splitter struct {
	resolver  limitsResolver
	submitter orderSubmitter
	random    func() float64
	recorder  Recorder
	logger    *zap.Logger
}

// New 创建拆单器。
func New(resolver limitsResolver, submitter orderSubmitter, opts Options, logger *zap.Logger) *Splitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Random == nil {
		opts.Random = rand.Float64
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Splitter{
		resolver:  resolver,
		submitter: submitter,
		random:    opts.Random,
		recorder:  opts.Recorder,
		logger:    logger,
	}
}

// plan 为通过前置校验后的拆单参数。
type plan struct {
	average  float64
	priceMax float64
}

// Run 校验请求、获取交易对限制并完成拆单提交。
func (s *Splitter) Run(ctx context.Context, req OrderRequest) ([]exchange.OrderAck, error) {
	p, err := prepare(req)
	if err != nil {
		s.fail(ctx, req, StateValidating, nil, err)
		return nil, err
	}

	symbolLimits, err := s.resolver.Resolve(ctx, req.Symbol)
	if err != nil {
		s.fail(ctx, req, StateResolvingLimits, nil, err)
		return nil, err
	}

	return s.execute(ctx, req, p, symbolLimits)
}

// SplitAndSubmit 使用已获取的交易对限制完成拆单提交。
func (s *Splitter) SplitAndSubmit(ctx context.Context, req OrderRequest, symbolLimits limits.SymbolLimits) ([]exchange.OrderAck, error) {
	p, err := prepare(req)
	if err != nil {
		s.fail(ctx, req, StateValidating, nil, err)
		return nil, err
	}
	return s.execute(ctx, req, p, symbolLimits)
}

// Validate 只做前置校验，不访问交易所。
func Validate(req OrderRequest) error {
	_, err := prepare(req)
	return err
}

func prepare(req OrderRequest) (plan, error) {
	if req.Count <= 0 {
		return plan{}, &ValidationError{
			Detail: fmt.Sprintf("Check number of orders. Your value: %d", req.Count),
		}
	}
	if req.PriceMin > req.PriceMax {
		return plan{}, &ValidationError{
			Detail: fmt.Sprintf("You price min %s and price max %s", formatFloat(req.PriceMin), formatFloat(req.PriceMax)),
		}
	}
	if req.Side != exchange.SideBuy && req.Side != exchange.SideSell {
		return plan{}, &ValidationError{
			Detail: fmt.Sprintf("Only SELL or BUY available, not %s", req.Side),
			Err:    ErrUnsupportedSide,
		}
	}

	p := plan{
		average:  req.Volume / float64(req.Count),
		priceMax: req.PriceMax,
	}
	if p.average < req.PriceMax {
		if p.average < req.PriceMin || req.Volume <= 0 {
			return plan{}, &ValidationError{
				Detail: fmt.Sprintf("Wrong volume(%s). You to try create %d order with %s to each. But priceMax in your post %s",
					formatFloat(req.Volume), req.Count, formatFloat(p.average), formatFloat(req.PriceMax)),
			}
		}
		// 单笔均额低于价格上限时收窄上限，保证拆分可行
		p.priceMax = p.average
	}

	return p, nil
}

func (s *Splitter) execute(ctx context.Context, req OrderRequest, p plan, symbolLimits limits.SymbolLimits) ([]exchange.OrderAck, error) {
	acks := make([]exchange.OrderAck, 0, req.Count)
	remaining := req.Volume

	for i := 0; i < req.Count; i++ {
		if err := ctx.Err(); err != nil {
			s.fail(ctx, req, StateSubmitting, acks, err)
			return nil, err
		}

		child, err := s.nextChild(req, p, symbolLimits, remaining)
		if err != nil {
			s.fail(ctx, req, StateSubmitting, acks, err)
			return nil, err
		}
		child.Index = i

		ack, err := s.submitter.NewOrder(ctx, exchange.OrderParams{
			Symbol:         req.Symbol,
			Side:           req.Side,
			Quantity:       child.Quantity,
			Price:          child.Price,
			QtyPrecision:   symbolLimits.QuantityPrecision,
			PricePrecision: symbolLimits.PricePrecision,
			ClientOrderID:  child.ClientOrderID,
		})
		if err != nil {
			s.fail(ctx, req, StateSubmitting, acks, err)
			return nil, err
		}

		acks = append(acks, ack)
		remaining -= child.Notional

		metrics.OrdersSubmitted.WithLabelValues(req.Side).Inc()
		s.recorder.OrderSubmitted(ctx, req, child, ack)
		s.logger.Info("子订单已提交",
			zap.String("symbol", req.Symbol),
			zap.String("side", req.Side),
			zap.Int("index", child.Index),
			zap.Float64("price", child.Price),
			zap.Float64("quantity", child.Quantity),
			zap.Float64("notional", child.Notional),
			zap.Float64("remaining", remaining),
			zap.Int64("order_id", ack.OrderID),
			zap.String("status", ack.Status),
		)
	}

	s.recorder.SplitCompleted(ctx, req, acks)
	s.logger.Info("拆单完成",
		zap.String("symbol", req.Symbol),
		zap.Int("orders", len(acks)),
		zap.Float64("volume", req.Volume),
		zap.Float64("remaining", remaining),
	)

	return acks, nil
}

// nextChild 在剩余金额内推导下一笔子订单的价格与数量。
func (s *Splitter) nextChild(req OrderRequest, p plan, symbolLimits limits.SymbolLimits, remaining float64) (ChildOrder, error) {
	price := precision.Round(uniform(s.random, req.PriceMin, p.priceMax), symbolLimits.PricePrecision)

	if price < symbolLimits.MinPrice && symbolLimits.MinPrice < p.average-req.AmountDif {
		price = symbolLimits.MinPrice
	} else if price > symbolLimits.MaxPrice {
		if price > p.average+req.AmountDif {
			return ChildOrder{}, wrongPrice(price, req.Symbol, symbolLimits)
		}
		price = symbolLimits.MaxPrice
	}
	if price <= 0 {
		return ChildOrder{}, wrongPrice(price, req.Symbol, symbolLimits)
	}

	jitter := uniform(s.random, -req.AmountDif, req.AmountDif)
	notional := math.Min(p.average+jitter, remaining)

	quantity := precision.Round(notional/price, symbolLimits.QuantityPrecision)
	if quantity <= 0 || quantity < symbolLimits.MinQty || quantity > symbolLimits.MaxQty {
		return ChildOrder{}, &ValidationError{
			Detail: fmt.Sprintf("Error quantity. Try to buy %s %s, but expected quantity %s - %s",
				formatFloat(quantity), req.Symbol, formatFloat(symbolLimits.MinQty), formatFloat(symbolLimits.MaxQty)),
		}
	}

	return ChildOrder{
		Price:         price,
		Quantity:      quantity,
		Notional:      notional,
		ClientOrderID: exchange.NewClientOrderID(),
	}, nil
}

func wrongPrice(price float64, symbol string, symbolLimits limits.SymbolLimits) error {
	return &ValidationError{
		Detail: fmt.Sprintf("Wrong price: %s. Correct price for %s: %s - %s",
			formatFloat(price), symbol, formatFloat(symbolLimits.MinPrice), formatFloat(symbolLimits.MaxPrice)),
	}
}

func uniform(random func() float64, a, b float64) float64 {
	return a + (b-a)*random()
}

func (s *Splitter) fail(ctx context.Context, req OrderRequest, state State, submitted []exchange.OrderAck, err error) {
	metrics.SplitFailures.WithLabelValues(failureReason(err)).Inc()
	s.recorder.SplitFailed(ctx, req, state, submitted, err)

	fields := []zap.Field{
		zap.String("symbol", req.Symbol),
		zap.String("state", string(state)),
		zap.Int("submitted", len(submitted)),
		zap.Error(err),
	}
	if len(submitted) > 0 {
		// 已成交的子订单不会回滚，需通过审计日志或交易所查询对账
		s.logger.Error("拆单中途失败，已提交订单未包含在响应中", fields...)
		return
	}
	s.logger.Warn("拆单请求失败", fields...)
}

func failureReason(err error) string {
	switch {
	case IsValidationError(err):
		return "validation"
	case exchange.IsAPIError(err):
		return "rejected"
	default:
		return "unavailable"
	}
}
