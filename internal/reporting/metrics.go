// Package reporting implements the read-only observers: periodic spread,
// position, and metrics reporters that query the book and risk manager
// without mutating them, each running its own independently cadenced
// goroutine. Metrics are surfaced via prometheus/client_golang.
package reporting

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors the engine and reporters update.
type Metrics struct {
	registry *prometheus.Registry

	OrdersProcessed prometheus.Counter
	TradesExecuted  prometheus.Counter
	LastStepSeconds prometheus.Gauge
	BestBid         *prometheus.GaugeVec
	BestAsk         *prometheus.GaugeVec
	Position        *prometheus.GaugeVec
	RealizedPnL     *prometheus.GaugeVec
}

// NewMetrics registers every collector against a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		OrdersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vantage",
			Name:      "orders_processed_total",
			Help:      "Number of order messages dispatched by the matching engine.",
		}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vantage",
			Name:      "trades_executed_total",
			Help:      "Number of fills produced by the matching engine.",
		}),
		LastStepSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vantage",
			Name:      "last_step_seconds",
			Help:      "Wall-clock duration of the most recently completed engine step.",
		}),
		BestBid: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vantage",
			Name:      "best_bid",
			Help:      "Best resting bid price per symbol.",
		}, []string{"symbol"}),
		BestAsk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vantage",
			Name:      "best_ask",
			Help:      "Best resting ask price per symbol.",
		}, []string{"symbol"}),
		Position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vantage",
			Name:      "position",
			Help:      "Signed current position per symbol.",
		}, []string{"symbol"}),
		RealizedPnL: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vantage",
			Name:      "realized_pnl",
			Help:      "Cumulative realized P&L per symbol.",
		}, []string{"symbol"}),
	}
	reg.MustRegister(m.OrdersProcessed, m.TradesExecuted, m.LastStepSeconds, m.BestBid, m.BestAsk, m.Position, m.RealizedPnL)
	return m
}

// Handler returns the HTTP handler serving this registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
