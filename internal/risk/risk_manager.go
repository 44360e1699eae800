// Package risk implements pre-trade admission checks and post-fill
// position/average-price/realized-P&L accounting.
package risk

import (
	"sync"

	"vantage/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// symbolState is the mutable {position, avg_entry_price, realized_pnl}
// triple for one symbol. It is guarded by its own mutex so a reader never
// observes a half-applied fill.
type symbolState struct {
	mu          sync.Mutex
	position    decimal.Decimal
	avgPrice    decimal.Decimal
	realizedPnL decimal.Decimal
}

// SymbolRisk is the point-in-time risk snapshot returned by
// AnalyzePortfolioRisk.
type SymbolRisk struct {
	Position       decimal.Decimal
	RealizedPnL    decimal.Decimal
	PositionLimit  decimal.Decimal
	HasLimit       bool
	UtilizationPct decimal.Decimal
}

// RiskManager gates order admission and tracks per-symbol position state.
type RiskManager struct {
	sizeMu       sync.RWMutex
	maxOrderSize decimal.Decimal

	limitsMu sync.RWMutex
	limits   map[string]decimal.Decimal

	statesMu sync.RWMutex
	states   map[string]*symbolState
}

// New returns a RiskManager with the given max order size and no
// per-symbol position limits.
func New(maxOrderSize decimal.Decimal) *RiskManager {
	return &RiskManager{
		maxOrderSize: maxOrderSize,
		limits:       make(map[string]decimal.Decimal),
		states:       make(map[string]*symbolState),
	}
}

// SetMaxOrderSize hot-updates the global order size cap.
func (r *RiskManager) SetMaxOrderSize(v decimal.Decimal) {
	r.sizeMu.Lock()
	defer r.sizeMu.Unlock()
	r.maxOrderSize = v
}

// MaxOrderSize returns the current global order size cap.
func (r *RiskManager) MaxOrderSize() decimal.Decimal {
	r.sizeMu.RLock()
	defer r.sizeMu.RUnlock()
	return r.maxOrderSize
}

// SetPositionLimit installs or replaces the absolute-position cap for symbol.
func (r *RiskManager) SetPositionLimit(symbol string, limit decimal.Decimal) {
	r.limitsMu.Lock()
	defer r.limitsMu.Unlock()
	r.limits[symbol] = limit
}

func (r *RiskManager) positionLimit(symbol string) (decimal.Decimal, bool) {
	r.limitsMu.RLock()
	defer r.limitsMu.RUnlock()
	limit, ok := r.limits[symbol]
	return limit, ok
}

func (r *RiskManager) stateFor(symbol string) *symbolState {
	r.statesMu.RLock()
	s, ok := r.states[symbol]
	r.statesMu.RUnlock()
	if ok {
		return s
	}

	r.statesMu.Lock()
	defer r.statesMu.Unlock()
	if s, ok := r.states[symbol]; ok {
		return s
	}
	s = &symbolState{}
	r.states[symbol] = s
	return s
}

// trackedSymbols returns a snapshot of every symbol with known state.
func (r *RiskManager) trackedSymbols() []string {
	r.statesMu.RLock()
	defer r.statesMu.RUnlock()
	out := make([]string, 0, len(r.states))
	for sym := range r.states {
		out = append(out, sym)
	}
	return out
}

// ValidateOrder rejects an order that exceeds the max order size or that
// would push |position| past a configured per-symbol limit.
func (r *RiskManager) ValidateOrder(o common.Order) bool {
	if o.Quantity.GreaterThan(r.MaxOrderSize()) {
		return false
	}

	limit, ok := r.positionLimit(o.Symbol)
	if !ok {
		return true
	}

	s := r.stateFor(o.Symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	projected := s.position.Add(common.Signed(o.Side, o.Quantity))
	return projected.Abs().LessThanOrEqual(limit)
}

// RecordTransaction applies one fill to the running position, average
// entry price, and realized P&L for symbol. It must be called exactly
// once per fill, never per submitted order. Non-positive quantities are
// silently rejected.
func (r *RiskManager) RecordTransaction(symbol string, price, quantity decimal.Decimal, side common.Side) {
	if !quantity.IsPositive() {
		return
	}

	s := r.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.position
	delta := common.Signed(side, quantity)
	newPos := old.Add(delta)
	oldAbs, newAbs := old.Abs(), newPos.Abs()
	avg := s.avgPrice

	switch {
	case old.IsZero():
		// Opening from flat.
		avg = price

	case old.Sign() != newPos.Sign() && !newPos.IsZero():
		// Reversal: close the entirety of the old position at avg, then
		// seed the new-direction residual at the fill price.
		pnl := price.Sub(avg).Mul(oldAbs)
		if old.IsNegative() {
			pnl = avg.Sub(price).Mul(oldAbs)
		}
		s.realizedPnL = s.realizedPnL.Add(pnl)
		avg = price

	case newPos.IsZero():
		// Full close.
		pnl := price.Sub(avg).Mul(oldAbs)
		if old.IsNegative() {
			pnl = avg.Sub(price).Mul(oldAbs)
		}
		s.realizedPnL = s.realizedPnL.Add(pnl)
		avg = decimal.Zero

	case newAbs.GreaterThan(oldAbs):
		// Increase in the same direction: weighted average entry price.
		avg = avg.Mul(oldAbs).Add(price.Mul(quantity)).Div(oldAbs.Add(quantity))

	default:
		// Partial reduction in the same direction: realize against the
		// unchanged average; avg itself does not move.
		closed := oldAbs.Sub(newAbs)
		var pnl decimal.Decimal
		if side == common.Sell {
			pnl = price.Sub(avg).Mul(closed)
		} else {
			pnl = avg.Sub(price).Mul(closed)
		}
		s.realizedPnL = s.realizedPnL.Add(pnl)
	}

	s.position = newPos
	s.avgPrice = avg
}

// GetPosition returns the current signed position for symbol.
func (r *RiskManager) GetPosition(symbol string) decimal.Decimal {
	s := r.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// GetAvgPrice returns the current average entry price for symbol.
func (r *RiskManager) GetAvgPrice(symbol string) decimal.Decimal {
	s := r.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avgPrice
}

// GetRealizedPnL returns the cumulative realized P&L for symbol.
func (r *RiskManager) GetRealizedPnL(symbol string) decimal.Decimal {
	s := r.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.realizedPnL
}

// AnalyzePortfolioRisk snapshots position, realized P&L, and position-limit
// utilization for every tracked symbol.
func (r *RiskManager) AnalyzePortfolioRisk() map[string]SymbolRisk {
	out := make(map[string]SymbolRisk)
	for _, sym := range r.trackedSymbols() {
		s := r.stateFor(sym)
		s.mu.Lock()
		pos, pnl := s.position, s.realizedPnL
		s.mu.Unlock()

		limit, hasLimit := r.positionLimit(sym)
		util := decimal.Zero
		if hasLimit && limit.IsPositive() {
			util = pos.Abs().Div(limit).Mul(decimal.NewFromInt(100))
			if cap := decimal.NewFromInt(100); util.GreaterThan(cap) {
				util = cap
			}
		}
		out[sym] = SymbolRisk{
			Position:       pos,
			RealizedPnL:    pnl,
			PositionLimit:  limit,
			HasLimit:       hasLimit,
			UtilizationPct: util,
		}
	}
	return out
}

// ReportPositions logs one INFO line per tracked symbol, including
// unrealized P&L computed from priceProvider's mark (typically the book's
// mid price). Symbols with no available mark log a zero unrealized P&L.
func (r *RiskManager) ReportPositions(priceProvider func(symbol string) (decimal.Decimal, bool)) {
	for _, sym := range r.trackedSymbols() {
		s := r.stateFor(sym)
		s.mu.Lock()
		pos, avg, realized := s.position, s.avgPrice, s.realizedPnL
		s.mu.Unlock()

		unrealized := decimal.Zero
		if mark, ok := priceProvider(sym); ok {
			switch {
			case pos.IsPositive():
				unrealized = mark.Sub(avg).Mul(pos)
			case pos.IsNegative():
				unrealized = avg.Sub(mark).Mul(pos.Abs())
			}
		}

		log.Info().
			Str("symbol", sym).
			Str("position", pos.String()).
			Str("avgPrice", avg.String()).
			Str("realizedPnL", realized.String()).
			Str("unrealizedPnL", unrealized.String()).
			Msg("position report")
	}
}
