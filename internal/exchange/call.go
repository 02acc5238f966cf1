package exchange

import (
	"context"
	"time"

	"go.uber.org/zap"

	"volume-splitter/internal/metrics"
)

// caller 为每次交易所调用附加超时、耗时统计与错误归一化。
// 下单失败不会重试：同一笔委托重复提交可能造成重复成交。
type caller struct {
	logger    *zap.Logger
	timeout   time.Duration
	normalize func(error) error
}

func (c caller) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.normalize(fn(callCtx))
	duration := time.Since(start)

	outcome := outcomeOf(err)
	metrics.ExchangeCallSeconds.WithLabelValues(operation, outcome).Observe(duration.Seconds())

	switch outcome {
	case "ok":
		c.logger.Debug("交易所调用完成",
			zap.String("operation", operation),
			zap.Duration("latency", duration),
		)
	case "rejected":
		c.logger.Warn("交易所拒绝请求",
			zap.String("operation", operation),
			zap.Duration("latency", duration),
			zap.Error(err),
		)
	default:
		c.logger.Error("交易所调用失败",
			zap.String("operation", operation),
			zap.Duration("latency", duration),
			zap.Error(err),
		)
	}

	return err
}
