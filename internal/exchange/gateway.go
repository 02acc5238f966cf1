package exchange

import (
	"fmt"

	"go.uber.org/zap"

	"volume-splitter/internal/config"
)

// New 按配置的驱动创建交易所网关。
func New(cfg config.ExchangeConfig, logger *zap.Logger) (Gateway, error) {
	switch cfg.Driver {
	case config.DriverBinance, "":
		return NewClient(cfg, logger), nil
	case config.DriverCCXT:
		return NewCCXTClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("exchange: 不支持的驱动 %q", cfg.Driver)
	}
}
