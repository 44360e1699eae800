// Package engine implements the single-consumer matching engine: it drains
// the ingest queue, runs price/time-priority matching against the order
// book, records every fill with the risk manager, and rests unfilled limit
// remainders.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"vantage/internal/book"
	"vantage/internal/common"
	"vantage/internal/risk"

	"github.com/rs/zerolog/log"
)

// MatchingEngine is the DAG root: it holds references to the book and the
// risk manager, neither of which know it exists.
type MatchingEngine struct {
	book *book.OrderBook
	risk *risk.RiskManager

	queue *messageQueue

	tradeSeq        atomic.Uint64
	ordersProcessed atomic.Uint64
	tradesExecuted  atomic.Uint64
	lastStepNanos   atomic.Int64

	onTrade func(common.Trade)
}

// New wires a matching engine against an existing book and risk manager.
func New(b *book.OrderBook, r *risk.RiskManager) *MatchingEngine {
	return &MatchingEngine{book: b, risk: r, queue: newMessageQueue()}
}

// OnTrade installs a callback invoked (from the consumer loop) for every
// trade produced. Used by the gateway to push execution reports to
// connected clients; nil by default.
func (e *MatchingEngine) OnTrade(fn func(common.Trade)) {
	e.onTrade = fn
}

// Send enqueues a message for processing. It is non-blocking and only
// fails once the ingest queue has been closed (by Close, or by Run when
// its context is cancelled); the caller's responsibility on error is to
// log and continue.
func (e *MatchingEngine) Send(msg EngineMessage) error {
	if err := e.queue.push(msg); err != nil {
		log.Error().Err(err).Msg("engine: send after consumer exit")
		return err
	}
	return nil
}

// Run is the single-consumer loop. It drains the ingest queue until ctx is
// cancelled (which closes the queue) or the queue is closed directly via
// Close, then returns.
func (e *MatchingEngine) Run(ctx context.Context) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			e.queue.close()
		case <-stop:
		}
	}()

	for {
		msg, ok := e.queue.pop()
		if !ok {
			return
		}
		start := time.Now()
		e.dispatch(msg)
		e.lastStepNanos.Store(time.Since(start).Nanoseconds())
	}
}

// Close shuts the ingest queue, ending Run's loop once drained.
func (e *MatchingEngine) Close() {
	e.queue.close()
}

func (e *MatchingEngine) dispatch(msg EngineMessage) {
	switch msg.Kind {
	case KindNewOrder:
		e.processOrder(msg.Order)
	case KindCancelOrder:
		e.processCancel(msg.Cancel)
	case KindBatchOrders:
		for _, o := range msg.Batch {
			e.processOrder(o)
		}
	}
}

func (e *MatchingEngine) processCancel(req CancelRequest) {
	if e.book.CancelOrder(req.ID) {
		log.Info().Uint64("id", req.ID).Str("symbol", req.Symbol).Msg("order cancelled")
	} else {
		log.Debug().Uint64("id", req.ID).Str("symbol", req.Symbol).Msg("cancel: unknown order id")
	}
}

// processOrder rejects malformed limit prices, matches against the opposite
// ladder in price/time priority, records every fill against the risk
// manager regardless of order type, and rests any unfilled limit remainder
// (market remainders are discarded).
func (e *MatchingEngine) processOrder(o common.Order) {
	e.ordersProcessed.Add(1)

	if o.Type == common.Limit && !o.Price.IsPositive() {
		log.Warn().Uint64("id", o.ID).Str("symbol", o.Symbol).Msg("dropping limit order: non-positive price")
		return
	}

	incoming := o
	trades := e.book.Match(&incoming, e.nextTradeID)

	for _, t := range trades {
		e.risk.RecordTransaction(t.Symbol, t.Price, t.Quantity, o.Side)
		e.tradesExecuted.Add(1)
		log.Info().
			Uint64("tradeID", t.ID).
			Str("symbol", t.Symbol).
			Str("price", t.Price.String()).
			Str("qty", t.Quantity.String()).
			Uint64("buyer", t.BuyerID).
			Uint64("seller", t.SellerID).
			Msg("fill")
		if e.onTrade != nil {
			e.onTrade(t)
		}
	}

	switch {
	case incoming.Type == common.Limit && incoming.Remaining():
		e.book.AddOrder(incoming)
	case incoming.Type == common.Market && incoming.Remaining():
		log.Info().
			Uint64("id", incoming.ID).
			Str("symbol", incoming.Symbol).
			Str("qty", incoming.Quantity.String()).
			Msg("discarding unfilled market remainder")
	}
}

func (e *MatchingEngine) nextTradeID() uint64 {
	return e.tradeSeq.Add(1)
}

// OrdersProcessed returns the running count of dispatched order messages.
func (e *MatchingEngine) OrdersProcessed() uint64 { return e.ordersProcessed.Load() }

// TradesExecuted returns the running count of fills produced.
func (e *MatchingEngine) TradesExecuted() uint64 { return e.tradesExecuted.Load() }

// LastStepDuration returns the wall-clock duration of the most recently
// completed message-processing step.
func (e *MatchingEngine) LastStepDuration() time.Duration {
	return time.Duration(e.lastStepNanos.Load())
}
