package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitter_orders_submitted_total",
			Help: "Total number of child orders accepted by the exchange (by side).",
		},
		[]string{"side"},
	)

	SplitFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitter_split_failures_total",
			Help: "Split requests aborted before completion (by reason).",
		},
		[]string{"reason"},
	)

	ExchangeCallSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "splitter_exchange_call_seconds",
			Help:    "Latency of exchange REST calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(OrdersSubmitted, SplitFailures, ExchangeCallSeconds)
}
