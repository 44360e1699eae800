// Command vantage is the process driver: it loads configuration, wires
// the order book, risk manager, and matching engine into the gateway and
// the market-data/synthetic producers, starts the periodic reporters, and
// blocks until an operating-system interrupt signal arrives via
// signal.NotifyContext.
package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"vantage/internal/book"
	"vantage/internal/common"
	"vantage/internal/config"
	"vantage/internal/engine"
	"vantage/internal/gateway"
	"vantage/internal/marketdata"
	"vantage/internal/reporting"
	"vantage/internal/risk"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	cfgPath := flag.String("config", "", "path to a YAML config file (optional; defaults are used otherwise)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("vantage: failed to load configuration")
	}
	configureLogging(cfg.Logging.Level)

	maxOrderSize, err := cfg.MaxOrderSizeDecimal()
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.MaxOrderSize).Msg("vantage: invalid max_order_size")
	}
	tickSize, err := cfg.TickSizeDecimal()
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.TickSize).Msg("vantage: invalid tick_size")
	}

	ob := book.New()
	rm := risk.New(maxOrderSize)
	for _, pl := range cfg.PositionLimits {
		limit, err := decimal.NewFromString(pl.Limit)
		if err != nil {
			log.Warn().Err(err).Str("symbol", pl.Symbol).Msg("vantage: skipping malformed position limit")
			continue
		}
		rm.SetPositionLimit(pl.Symbol, limit)
	}

	eng := engine.New(ob, rm)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eng.Run(ctx)

	gw := gateway.New(cfg.Gateway.ListenAddr, cfg.Gateway.Workers, eng, ob, rm)
	go func() {
		if err := gw.Run(ctx); err != nil {
			log.Error().Err(err).Msg("vantage: gateway exited")
		}
	}()

	metrics := reporting.NewMetrics()
	startMetricsServer(ctx, cfg.Reporting.MetricsAddr, metrics)

	symbol := cfg.MarketData.Symbol
	var orderSeq atomic.Uint64
	nextID := func() uint64 { return orderSeq.Add(1) }

	adapter := marketdata.NewHTTPAdapter(cfg.MarketData.BaseURL, cfg.MarketData.APIKey)
	buf := marketdata.NewBuffer(0)
	go runMarketDataLoop(ctx, adapter, eng, buf, symbol, tickSize, cfg.MarketData.Interval, nextID)
	go runSyntheticOrderLoop(ctx, eng, rm, symbol, nextID)

	go reporting.NewSpreadReporter(ob, []string{symbol}, cfg.Reporting.SpreadInterval, metrics).Run(ctx)
	go reporting.NewPositionReporter(rm, ob, cfg.Reporting.PositionInterval, metrics).Run(ctx)
	go reporting.NewMetricsReporter(eng, cfg.Reporting.MetricsInterval, metrics).Run(ctx)
	go reporting.NewMarketDataReporter(symbol, buf, cfg.Reporting.MarketDataInterval).Run(ctx)

	log.Info().
		Str("gatewayAddr", cfg.Gateway.ListenAddr).
		Str("metricsAddr", cfg.Reporting.MetricsAddr).
		Str("symbol", symbol).
		Msg("vantage: running")

	<-ctx.Done()
	log.Info().Msg("vantage: shutdown signal received")
	gw.Shutdown()
	eng.Close()
}

func configureLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func startMetricsServer(ctx context.Context, addr string, m *reporting.Metrics) {
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("vantage: metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// runMarketDataLoop polls the intraday quote adapter on cfg's cadence and
// feeds each minute's bracketing limit orders straight into the engine.
// Bracket orders bypass the risk manager; they represent the exchange's own
// quoting activity rather than a client submission.
func runMarketDataLoop(ctx context.Context, adapter marketdata.Fetcher, eng *engine.MatchingEngine, buf *marketdata.Buffer, symbol string, tickSize decimal.Decimal, interval time.Duration, nextID func() uint64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quotes, err := adapter.FetchMinuteSeries(ctx, symbol)
			if err != nil {
				log.Error().Err(err).Str("symbol", symbol).Msg("vantage: market-data fetch failed")
				continue
			}
			if len(quotes) == 0 {
				continue
			}
			buf.Add(quotes...)
			latest := quotes[len(quotes)-1]
			buy, sell := latest.ToBracketOrders(nextID, tickSize)
			submitOrder(eng, buy)
			submitOrder(eng, sell)
		}
	}
}

func submitOrder(eng *engine.MatchingEngine, o common.Order) {
	if err := eng.Send(engine.NewOrderMessage(o)); err != nil {
		log.Error().Err(err).Uint64("id", o.ID).Msg("vantage: failed to submit market-data order")
	}
}

// runSyntheticOrderLoop generates random limit orders around a base price
// every 100ms, validating each against risk before submission and
// cancelling ~25% of them a second later to keep the book populated when
// no real order flow is connected.
func runSyntheticOrderLoop(ctx context.Context, eng *engine.MatchingEngine, rm *risk.RiskManager, symbol string, nextID func() uint64) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	basePrice := decimal.NewFromFloat(150.0)
	spread := decimal.NewFromFloat(5.0)
	qty := decimal.NewFromInt(100)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			side := common.Buy
			if rand.Intn(2) == 1 {
				side = common.Sell
			}
			price := basePrice.Add(spread.Mul(decimal.NewFromFloat(rand.Float64())))
			o := common.Order{
				ID:            nextID(),
				Symbol:        symbol,
				Side:          side,
				Type:          common.Limit,
				Price:         price,
				Quantity:      qty,
				TotalQuantity: qty,
				Owner:         "synthetic-" + uuid.NewString()[:8],
				Timestamp:     time.Now(),
			}
			if !rm.ValidateOrder(o) {
				continue
			}
			if err := eng.Send(engine.NewOrderMessage(o)); err != nil {
				log.Error().Err(err).Msg("vantage: failed to submit synthetic order")
				continue
			}
			if rand.Float64() < 0.25 {
				id, sym := o.ID, o.Symbol
				time.AfterFunc(time.Second, func() {
					if err := eng.Send(engine.CancelOrderMessage(sym, id)); err != nil {
						log.Error().Err(err).Uint64("id", id).Msg("vantage: failed to submit synthetic cancel")
					}
				})
			}
		}
	}
}
