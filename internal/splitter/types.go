package splitter

import (
	"context"
	"errors"

	"volume-splitter/internal/exchange"
	"volume-splitter/internal/limits"
)

// State 表示一次拆单请求所处的阶段。
type State string

const (
	StateValidating      State = "validating"
	StateResolvingLimits State = "resolving_limits"
	StateSubmitting      State = "submitting"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

// ErrUnsupportedSide 表示委托方向不是 BUY 或 SELL。
var ErrUnsupportedSide = errors.New("unsupported side")

// OrderRequest 描述一次拆单请求。
type OrderRequest struct {
	Symbol    string
	Volume    float64
	Count     int
	Side      string
	PriceMin  float64
	PriceMax  float64
	AmountDif float64
}

// ChildOrder 为单笔子订单，价格与数量已按交易对精度量化。
type ChildOrder struct {
	Index         int
	Price         float64
	Quantity      float64
	Notional      float64
	ClientOrderID string
}

// ValidationError 表示输入或推导出的数值越界，Detail 原样返回给调用方。
type ValidationError struct {
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError 判断错误是否为参数校验失败。
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// Recorder 接收拆单过程中的审计事件，实现方不得阻断下单流程。
type Recorder interface {
	OrderSubmitted(ctx context.Context, req OrderRequest, child ChildOrder, ack exchange.OrderAck)
	SplitCompleted(ctx context.Context, req OrderRequest, acks []exchange.OrderAck)
	SplitFailed(ctx context.Context, req OrderRequest, state State, submitted []exchange.OrderAck, err error)
}

type nopRecorder struct{}

func (nopRecorder) OrderSubmitted(context.Context, OrderRequest, ChildOrder, exchange.OrderAck) {}

func (nopRecorder) SplitCompleted(context.Context, OrderRequest, []exchange.OrderAck) {}

func (nopRecorder) SplitFailed(context.Context, OrderRequest, State, []exchange.OrderAck, error) {}

type orderSubmitter interface {
	NewOrder(ctx context.Context, params exchange.OrderParams) (exchange.OrderAck, error)
}

type limitsResolver interface {
	Resolve(ctx context.Context, symbol string) (limits.SymbolLimits, error)
}

// Options 控制拆单器的可替换依赖。
type Options struct {
	// Random 返回 [0,1) 上的均匀随机数，默认使用 math/rand/v2。
	Random   func() float64
	Recorder Recorder
}
