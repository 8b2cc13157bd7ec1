package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_orders_submitted_total",
			Help: "Total number of orders submitted (by market and side).",
		},
		[]string{"market", "side"},
	)

	OrdersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_orders_failed_total",
			Help: "Orders that failed after exhausting retries.",
		},
		[]string{"market"},
	)

	APIRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "autotrader_api_retries_total",
			Help: "Transient broker-API failures that triggered a retry.",
		},
	)

	StopLossTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_stop_loss_triggers_total",
			Help: "Stop-loss sells issued per market.",
		},
		[]string{"market"},
	)

	TrailingStopTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_trailing_stop_triggers_total",
			Help: "Trailing-stop sells issued per market.",
		},
		[]string{"market"},
	)

	PendingCloseOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autotrader_pending_close_orders",
			Help: "Deferred close-window orders currently queued per market.",
		},
		[]string{"market"},
	)

	CycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_cycle_errors_total",
			Help: "Poll cycles that ended with an unrecovered error.",
		},
		[]string{"market"},
	)

	TotalAssets = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autotrader_total_assets",
			Help: "Total account assets from the latest balance snapshot.",
		},
		[]string{"market"},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersSubmitted,
		OrdersFailed,
		APIRetries,
		StopLossTriggers,
		TrailingStopTriggers,
		PendingCloseOrders,
		CycleErrors,
		TotalAssets,
	)
}
