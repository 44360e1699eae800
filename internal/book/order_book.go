// Package book implements the per-symbol bid/ask ladders that back the
// matching engine: price-ordered levels with FIFO time priority within a
// level, and an id-indexed cancel path. The book is a passive data
// structure; it never initiates matching on its own.
package book

import (
	"sync"
	"time"

	"vantage/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ladderPair holds both sides of one symbol's book behind a single lock:
// each symbol's ladder is an independently lockable unit, so contention on
// one symbol never blocks another.
type ladderPair struct {
	mu          sync.RWMutex
	bids        *ladder
	asks        *ladder
	nBuyOrders  int
	nSellOrders int
}

func (lp *ladderPair) ladderFor(side common.Side) *ladder {
	if side == common.Buy {
		return lp.bids
	}
	return lp.asks
}

// OrderBook maintains every symbol's ladders and the shared OrderIndex.
type OrderBook struct {
	symbols sync.Map // string -> *ladderPair
	index   *orderIndex
}

// New returns an empty order book.
func New() *OrderBook {
	return &OrderBook{index: newOrderIndex()}
}

func (b *OrderBook) pairFor(symbol string) *ladderPair {
	if v, ok := b.symbols.Load(symbol); ok {
		return v.(*ladderPair)
	}
	lp := &ladderPair{bids: newBidLadder(), asks: newAskLadder()}
	actual, _ := b.symbols.LoadOrStore(symbol, lp)
	return actual.(*ladderPair)
}

func (b *OrderBook) loadPair(symbol string) (*ladderPair, bool) {
	v, ok := b.symbols.Load(symbol)
	if !ok {
		return nil, false
	}
	return v.(*ladderPair), true
}

// AddOrder rests a limit order on the book. Preconditions (Limit type,
// positive price, positive quantity) are enforced here; violations are
// logged at WARN and leave the book untouched. Returns whether the order
// was rested.
func (b *OrderBook) AddOrder(o common.Order) bool {
	if o.Type != common.Limit || !o.Price.IsPositive() || !o.Quantity.IsPositive() {
		log.Warn().
			Uint64("id", o.ID).
			Str("symbol", o.Symbol).
			Msg("rejecting order: non-limit or non-positive price/quantity")
		return false
	}

	lp := b.pairFor(o.Symbol)
	lp.mu.Lock()
	defer lp.mu.Unlock()

	lad := lp.ladderFor(o.Side)
	level, ok := lad.get(o.Price)
	if !ok {
		level = &PriceLevel{Price: o.Price}
		lad.set(level)
	}
	resting := o
	resting.ExchTimestamp = time.Now()
	level.Orders = append(level.Orders, &resting)
	b.index.set(o.ID, indexEntry{symbol: o.Symbol, price: o.Price, side: o.Side})

	if o.Side == common.Buy {
		lp.nBuyOrders++
	} else {
		lp.nSellOrders++
	}
	return true
}

// CancelOrder removes a resting order by id. Absence of the id is not an
// error; it simply returns false.
func (b *OrderBook) CancelOrder(id uint64) bool {
	entry, ok := b.index.get(id)
	if !ok {
		return false
	}

	lp := b.pairFor(entry.symbol)
	lp.mu.Lock()
	defer lp.mu.Unlock()

	lad := lp.ladderFor(entry.side)
	level, ok := lad.get(entry.price)
	if !ok {
		b.index.delete(id)
		return false
	}

	removed := false
	for i, ord := range level.Orders {
		if ord.ID == id {
			level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		b.index.delete(id)
		return false
	}

	b.index.delete(id)
	if entry.side == common.Buy {
		lp.nBuyOrders--
	} else {
		lp.nSellOrders--
	}
	if len(level.Orders) == 0 {
		lad.delete(level)
	}
	return true
}

// GetBestBid returns the highest resting buy price for symbol, if any.
func (b *OrderBook) GetBestBid(symbol string) (decimal.Decimal, bool) {
	lp, ok := b.loadPair(symbol)
	if !ok {
		return decimal.Zero, false
	}
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	level, ok := lp.bids.best()
	if !ok {
		return decimal.Zero, false
	}
	return level.Price, true
}

// GetBestAsk returns the lowest resting sell price for symbol, if any.
func (b *OrderBook) GetBestAsk(symbol string) (decimal.Decimal, bool) {
	lp, ok := b.loadPair(symbol)
	if !ok {
		return decimal.Zero, false
	}
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	level, ok := lp.asks.best()
	if !ok {
		return decimal.Zero, false
	}
	return level.Price, true
}

// GetMidPrice returns the arithmetic mean of best bid and best ask, when
// both sides are populated.
func (b *OrderBook) GetMidPrice(symbol string) (decimal.Decimal, bool) {
	bid, ok := b.GetBestBid(symbol)
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := b.GetBestAsk(symbol)
	if !ok {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// GetDepth reports the number of resting orders on each side of symbol.
func (b *OrderBook) GetDepth(symbol string) (bidCount, askCount int) {
	lp, ok := b.loadPair(symbol)
	if !ok {
		return 0, 0
	}
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	return lp.nBuyOrders, lp.nSellOrders
}

// IndexSize returns the number of order ids currently tracked by the
// cancel index, exposed for the OrderIndex-consistency property test.
func (b *OrderBook) IndexSize() int {
	return b.index.Len()
}

// Match walks the opposite ladder from incoming's side in price/time
// priority, consuming resting liquidity while incoming has remaining
// quantity and the level is acceptable. It mutates incoming.Quantity in
// place and returns the trades produced; the caller (the matching engine)
// is responsible for recording each trade against risk and for resting any
// remainder. nextTradeID supplies monotonically increasing trade ids.
func (b *OrderBook) Match(incoming *common.Order, nextTradeID func() uint64) []common.Trade {
	lp := b.pairFor(incoming.Symbol)
	lp.mu.Lock()
	defer lp.mu.Unlock()

	var lad *ladder
	if incoming.Side == common.Buy {
		lad = lp.asks
	} else {
		lad = lp.bids
	}

	var trades []common.Trade
	var emptied []*PriceLevel

	lad.walk(func(level *PriceLevel) bool {
		if !incoming.Remaining() {
			return false
		}
		if incoming.Type == common.Limit {
			if incoming.Side == common.Buy && level.Price.GreaterThan(incoming.Price) {
				return false
			}
			if incoming.Side == common.Sell && level.Price.LessThan(incoming.Price) {
				return false
			}
		}

		consumed := 0
		for _, resting := range level.Orders {
			if !incoming.Remaining() {
				break
			}
			q := decimal.Min(incoming.Quantity, resting.Quantity)
			if !q.IsPositive() {
				break
			}

			incoming.Quantity = incoming.Quantity.Sub(q)
			resting.Quantity = resting.Quantity.Sub(q)

			trade := common.Trade{
				ID:        nextTradeID(),
				Symbol:    incoming.Symbol,
				Price:     level.Price,
				Quantity:  q,
				Timestamp: time.Now(),
			}
			if incoming.Side == common.Buy {
				trade.BuyerID, trade.SellerID = incoming.ID, resting.ID
			} else {
				trade.BuyerID, trade.SellerID = resting.ID, incoming.ID
			}
			trades = append(trades, trade)

			if resting.Quantity.GreaterThan(common.QuantityEpsilon) {
				// q == min(incoming, resting), so resting outliving the fill
				// means incoming is now exhausted; nothing more to walk here.
				break
			}
			consumed++
			b.index.delete(resting.ID)
		}

		if consumed > 0 {
			level.Orders = level.Orders[consumed:]
			if incoming.Side == common.Buy {
				lp.nSellOrders -= consumed
			} else {
				lp.nBuyOrders -= consumed
			}
		}
		if len(level.Orders) == 0 {
			emptied = append(emptied, level)
		}
		return incoming.Remaining()
	})

	for _, level := range emptied {
		lad.delete(level)
	}
	return trades
}
