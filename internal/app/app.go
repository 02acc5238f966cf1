package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"volume-splitter/internal/api"
	"volume-splitter/internal/config"
	"volume-splitter/internal/exchange"
	"volume-splitter/internal/journal"
	"volume-splitter/internal/limits"
	"volume-splitter/internal/splitter"
	"volume-splitter/internal/store"
)

// App 聚合核心依赖并驱动 HTTP 服务生命周期。
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	gateway exchange.Gateway
}

// New 创建 App 实例。store 为空表示不记录审计日志。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) (*App, error) {
	gateway, err := exchange.New(cfg.Exchange, logger)
	if err != nil {
		return nil, err
	}
	return newWithGateway(cfg, logger, store, gateway), nil
}

func newWithGateway(cfg *config.Config, logger *zap.Logger, store *store.Store, gateway exchange.Gateway) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		gateway: gateway,
	}
}

// Handler 组装拆单器、限制解析器与审计服务，返回完整路由。
func (a *App) Handler() (http.Handler, error) {
	deps := api.Deps{
		History:       a.gateway,
		DefaultSymbol: a.cfg.Exchange.Symbol,
	}

	var recorder splitter.Recorder
	if a.store != nil {
		svc, err := journal.NewService(a.store, a.logger.Named("journal"))
		if err != nil {
			return nil, err
		}
		recorder = svc
		deps.Events = svc
	}

	resolver := limits.NewResolver(a.gateway, a.logger.Named("limits"))
	deps.Limits = resolver
	deps.Splitter = splitter.New(resolver, a.gateway, splitter.Options{Recorder: recorder}, a.logger.Named("splitter"))

	return api.NewRouter(deps, a.cfg.Server.AllowedOrigins, a.logger.Named("http")), nil
}

// Run 启动 HTTP 服务，ctx 取消后优雅关闭。
func (a *App) Run(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("监听地址 %s 失败: %w", a.cfg.Server.Addr, err)
	}

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	a.logger.Info("拆单服务已启动",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("addr", listener.Addr().String()),
		zap.String("driver", a.cfg.Exchange.Driver),
		zap.String("base_url", a.cfg.Exchange.BaseURL),
		zap.String("symbol", a.cfg.Exchange.Symbol),
		zap.Bool("journal", a.store != nil),
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务异常退出: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		a.logger.Info("收到退出信号，正在停止 HTTP 服务")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭 HTTP 服务失败: %w", err)
		}
		return nil
	})

	return group.Wait()
}
