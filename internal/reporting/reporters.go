package reporting

import (
	"context"
	"time"

	"vantage/internal/book"
	"vantage/internal/engine"
	"vantage/internal/marketdata"
	"vantage/internal/risk"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SpreadReporter logs a spread sample for each watched symbol on a fixed
// cadence (5-second spread-monitor loop by default).
type SpreadReporter struct {
	book     *book.OrderBook
	symbols  []string
	interval time.Duration
	metrics  *Metrics
}

// NewSpreadReporter builds a reporter over symbols sampled at interval.
func NewSpreadReporter(b *book.OrderBook, symbols []string, interval time.Duration, m *Metrics) *SpreadReporter {
	return &SpreadReporter{book: b, symbols: symbols, interval: interval, metrics: m}
}

// Run samples the spread for every watched symbol until ctx is cancelled.
func (r *SpreadReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sample()
		}
	}
}

func (r *SpreadReporter) sample() {
	for _, symbol := range r.symbols {
		bid, hasBid := r.book.GetBestBid(symbol)
		ask, hasAsk := r.book.GetBestAsk(symbol)
		if r.metrics != nil {
			if hasBid {
				r.metrics.BestBid.WithLabelValues(symbol).Set(toFloat(bid))
			}
			if hasAsk {
				r.metrics.BestAsk.WithLabelValues(symbol).Set(toFloat(ask))
			}
		}
		if !hasBid || !hasAsk {
			continue
		}
		log.Info().
			Str("symbol", symbol).
			Str("bid", bid.String()).
			Str("ask", ask.String()).
			Str("spread", ask.Sub(bid).String()).
			Msg("spread sample")
	}
}

// PositionReporter logs position/P&L state for every tracked symbol on a
// fixed cadence (10-second position-monitor loop by default).
type PositionReporter struct {
	risk     *risk.RiskManager
	book     *book.OrderBook
	interval time.Duration
	metrics  *Metrics
}

// NewPositionReporter builds a reporter that marks unrealized P&L against
// the book's mid price.
func NewPositionReporter(r *risk.RiskManager, b *book.OrderBook, interval time.Duration, m *Metrics) *PositionReporter {
	return &PositionReporter{risk: r, book: b, interval: interval, metrics: m}
}

// Run reports positions until ctx is cancelled.
func (r *PositionReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.risk.ReportPositions(r.book.GetMidPrice)
			if r.metrics != nil {
				r.recordMetrics()
			}
		}
	}
}

func (r *PositionReporter) recordMetrics() {
	for symbol, snap := range r.risk.AnalyzePortfolioRisk() {
		r.metrics.Position.WithLabelValues(symbol).Set(toFloat(snap.Position))
		r.metrics.RealizedPnL.WithLabelValues(symbol).Set(toFloat(snap.RealizedPnL))
	}
}

// MetricsReporter periodically snapshots the engine's running counters
// into the Prometheus gauges on a 60-second cadence by default.
type MetricsReporter struct {
	engine   *engine.MatchingEngine
	interval time.Duration
	metrics  *Metrics
}

// NewMetricsReporter builds a reporter sampling engine counters at interval.
func NewMetricsReporter(e *engine.MatchingEngine, interval time.Duration, m *Metrics) *MetricsReporter {
	return &MetricsReporter{engine: e, interval: interval, metrics: m}
}

// Run samples engine counters until ctx is cancelled.
func (r *MetricsReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	var lastOrders, lastTrades uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			orders, trades := r.engine.OrdersProcessed(), r.engine.TradesExecuted()
			r.metrics.OrdersProcessed.Add(float64(orders - lastOrders))
			r.metrics.TradesExecuted.Add(float64(trades - lastTrades))
			r.metrics.LastStepSeconds.Set(r.engine.LastStepDuration().Seconds())
			lastOrders, lastTrades = orders, trades
			log.Info().
				Uint64("ordersProcessed", orders).
				Uint64("tradesExecuted", trades).
				Dur("lastStep", r.engine.LastStepDuration()).
				Msg("metrics report")
		}
	}
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// MarketDataReporter periodically logs the intraday quote buffer's depth
// and most recent close, independent of the fetch cadence itself (a
// 30-second analysis cadence against a 60-second fetch interval, by
// default).
type MarketDataReporter struct {
	symbol   string
	buffer   *marketdata.Buffer
	interval time.Duration
}

// NewMarketDataReporter builds a reporter sampling buf at interval.
func NewMarketDataReporter(symbol string, buf *marketdata.Buffer, interval time.Duration) *MarketDataReporter {
	return &MarketDataReporter{symbol: symbol, buffer: buf, interval: interval}
}

// Run samples the buffer until ctx is cancelled.
func (r *MarketDataReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := r.buffer.Snapshot()
			if stats.Count == 0 {
				continue
			}
			log.Info().
				Str("symbol", r.symbol).
				Int("bufferedQuotes", stats.Count).
				Str("lastClose", stats.LastClose.String()).
				Msg("market-data buffer analysis")
		}
	}
}
