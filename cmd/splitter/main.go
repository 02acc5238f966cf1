package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"volume-splitter/internal/app"
	"volume-splitter/internal/config"
	"volume-splitter/internal/log"
	"volume-splitter/internal/store"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	var journalStore *store.Store
	if cfg.Journal.Enabled {
		journalStore, err = store.NewSQLite(cfg.Journal)
		if err != nil {
			logger.Error("初始化审计数据库失败", zap.Error(err))
			os.Exit(1)
		}
		defer func() {
			if closeErr := journalStore.Close(); closeErr != nil {
				logger.Warn("关闭数据库失败", zap.Error(closeErr))
			}
		}()
	}

	splitterApp, err := app.New(cfg, logger, journalStore)
	if err != nil {
		logger.Error("初始化服务失败", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := splitterApp.Run(ctx); err != nil {
		logger.Error("服务运行异常", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务已安全退出")
}
