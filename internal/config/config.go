package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvFile    = ".env"
	envPrefix         = "splitter"
)

// Load 读取配置文件并结合环境变量返回 Config。
// path 为空时使用默认路径，默认文件不存在时仅依赖默认值与环境变量。
func Load(path string) (*Config, error) {
	if err := loadEnvFile(defaultEnvFile); err != nil {
		return nil, err
	}

	v := viper.New()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	// 兼容旧版部署直接使用 API_KEY / API_SECRET 的方式
	_ = v.BindEnv("exchange.api_key", "SPLITTER_EXCHANGE_API_KEY", "API_KEY")
	_ = v.BindEnv("exchange.api_secret", "SPLITTER_EXCHANGE_API_SECRET", "API_SECRET")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case !explicit && (errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)):
		case errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.Exchange.Driver = strings.ToLower(cfg.Exchange.Driver)
	cfg.Exchange.Symbol = strings.ToUpper(cfg.Exchange.Symbol)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("检查环境变量文件失败: %w", err)
	}
	// 已存在的环境变量优先
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("加载环境变量文件 %q 失败: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("exchange.driver", DriverBinance)
	v.SetDefault("exchange.base_url", "https://testnet.binance.vision")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.use_sandbox", true)
	v.SetDefault("exchange.symbol", "ETHUSDT")
	v.SetDefault("exchange.timeout", "10s")
	v.SetDefault("exchange.recv_window", 5000)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "data/splitter.db")
	v.SetDefault("journal.max_open_conns", 4)
	v.SetDefault("journal.max_idle_conns", 4)
	v.SetDefault("journal.conn_max_lifetime", "1h")
	v.SetDefault("journal.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
