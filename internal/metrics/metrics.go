package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentcore_webhook_requests_total",
		Help: "Webhook deliveries by HTTP status",
	}, []string{"status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentcore_webhook_rate_limited_total",
		Help: "Webhook deliveries rejected by the rate limiter",
	})

	ReconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentcore_reconcile_outcomes_total",
		Help: "Terminal ledger statuses written by the reconciliation engine",
	}, []string{"status"})

	ReplayShortCircuits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentcore_ledger_replays_total",
		Help: "Duplicate deliveries short-circuited by a terminal ledger entry",
	})

	GatewayQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paymentcore_gateway_query_duration_seconds",
		Help:    "Latency of status queries against the payment gateway",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)
