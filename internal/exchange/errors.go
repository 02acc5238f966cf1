package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/adshao/go-binance/v2/common"
	ccxt "github.com/ccxt/ccxt/go/v4"
)

var (
	// ErrUnavailable 表示交易所无法访问或未返回有效响应。
	ErrUnavailable = errors.New("exchange unavailable")
	// ErrMalformedResponse 表示交易所响应缺少必需字段。
	ErrMalformedResponse = errors.New("exchange returned malformed response")
)

// APIError 为交易所拒绝请求时返回的业务错误，原样保留错误码与消息。
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d, %s", e.Code, e.Message)
}

// IsAPIError 判断错误是否来自交易所的业务拒绝。
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

func normalizeBinanceError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Code: apiErr.Code, Message: apiErr.Message}
	}

	return unavailable(err)
}

// ccxt 将交易所原始响应拼接在消息中，例如 `binance {"code":-1013,"msg":"Filter failure: LOT_SIZE"}`。
var embeddedPayload = regexp.MustCompile(`\{.*\}`)

func normalizeCCXTError(err error) error {
	if err == nil {
		return nil
	}

	var ccxtErr *ccxt.Error
	if !errors.As(err, &ccxtErr) {
		return unavailable(err)
	}

	switch ccxtErr.Type {
	case ccxt.NetworkErrorErrType,
		ccxt.RequestTimeoutErrType,
		ccxt.ExchangeNotAvailableErrType,
		ccxt.RateLimitExceededErrType,
		ccxt.DDoSProtectionErrType,
		ccxt.BadResponseErrType,
		ccxt.NullResponseErrType,
		ccxt.OnMaintenanceErrType:
		return unavailable(err)
	}

	message := strings.TrimSpace(ccxtErr.Message)
	if raw := embeddedPayload.FindString(message); raw != "" {
		var payload struct {
			Code int64  `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal([]byte(raw), &payload) == nil && payload.Msg != "" {
			return &APIError{Code: payload.Code, Message: payload.Msg}
		}
	}

	return &APIError{Message: fmt.Sprintf("%v: %s", ccxtErr.Type, message)}
}

func unavailable(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: 请求超时或网络异常: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsAPIError(err):
		return "rejected"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}
