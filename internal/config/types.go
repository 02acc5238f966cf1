package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了服务运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ServerConfig 描述 HTTP 服务参数。
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// ExchangeConfig 描述交易所连接信息，显式传入网关构造函数。
type ExchangeConfig struct {
	Driver     string        `mapstructure:"driver"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	APISecret  string        `mapstructure:"api_secret"`
	UseSandbox bool          `mapstructure:"use_sandbox"`
	Symbol     string        `mapstructure:"symbol"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RecvWindow int64         `mapstructure:"recv_window"`
}

// JournalConfig 管理下单审计日志的 SQLite 存储。
type JournalConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

const (
	// DriverBinance 使用 go-binance SDK。
	DriverBinance = "binance"
	// DriverCCXT 使用 ccxt 统一接口。
	DriverCCXT = "ccxt"
)

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Server.Addr == "" {
		err = multierr.Append(err, errors.New("server.addr 不能为空"))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		err = multierr.Append(err, errors.New("server 读写超时必须为正"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout 必须大于0"))
	}
	switch strings.ToLower(c.Exchange.Driver) {
	case DriverBinance, DriverCCXT:
	default:
		err = multierr.Append(err, fmt.Errorf("exchange.driver 不支持: %q", c.Exchange.Driver))
	}
	if strings.EqualFold(c.Exchange.Driver, DriverBinance) && c.Exchange.BaseURL == "" {
		err = multierr.Append(err, errors.New("exchange.base_url 不能为空"))
	}
	if c.Exchange.Symbol == "" {
		err = multierr.Append(err, errors.New("exchange.symbol 不能为空"))
	}
	if c.Exchange.Timeout <= 0 {
		err = multierr.Append(err, errors.New("exchange.timeout 必须大于0"))
	}
	if c.Exchange.RecvWindow < 0 || c.Exchange.RecvWindow > 60000 {
		err = multierr.Append(err, errors.New("exchange.recv_window 应位于[0,60000]"))
	}
	if c.Journal.Enabled {
		if c.Journal.Path == "" && !c.Journal.InMemory {
			err = multierr.Append(err, errors.New("journal.path 不能为空"))
		}
		if c.Journal.MaxOpenConns <= 0 {
			err = multierr.Append(err, errors.New("journal.max_open_conns 必须大于0"))
		}
		if c.Journal.MaxIdleConns < 0 {
			err = multierr.Append(err, errors.New("journal.max_idle_conns 不能为负"))
		}
		if c.Journal.ConnMaxLifetime < 0 {
			err = multierr.Append(err, errors.New("journal.conn_max_lifetime 不能为负"))
		}
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
