package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"volume-splitter/internal/exchange"
	"volume-splitter/internal/journal"
	"volume-splitter/internal/limits"
	"volume-splitter/internal/splitter"
)

type orderSplitter interface {
	Run(ctx context.Context, req splitter.OrderRequest) ([]exchange.OrderAck, error)
}

type limitsResolver interface {
	Resolve(ctx context.Context, symbol string) (limits.SymbolLimits, error)
}

type orderHistory interface {
	Orders(ctx context.Context, symbol string) ([]exchange.OrderAck, error)
}

type eventLister interface {
	ListEvents(ctx context.Context, eventType journal.EventType, limit int) ([]journal.Event, error)
}

// Deps 为路由所需的业务依赖。Events 为空表示审计日志未启用。
type Deps struct {
	Splitter      orderSplitter
	Limits        limitsResolver
	History       orderHistory
	Events        eventLister
	DefaultSymbol string
}

// NewRouter 注册全部路由，并挂载请求日志与 CORS 中间件。
func NewRouter(deps Deps, allowedOrigins []string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handler{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(requestLogging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/create_orders", h.createOrders)
	r.Post("/symbol_limits", h.symbolLimits)
	r.Post("/check_order", h.checkOrder)
	r.Get("/events", h.listEvents)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return c.Handler(r)
}

type handler struct {
	deps   Deps
	logger *zap.Logger
}

func requestLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("请求完成",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
