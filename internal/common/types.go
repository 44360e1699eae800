// Package common holds the value types shared across the book, risk and
// engine packages: orders, trades, and the small enums that describe them.
package common

import "github.com/shopspring/decimal"

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderType distinguishes resting limit orders from sweep-only market orders.
type OrderType int

const (
	// Limit orders rest on the book until filled or cancelled.
	Limit OrderType = iota
	// Market orders sweep available liquidity and are never rested.
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "LIMIT"
	}
	return "MARKET"
}

// QuantityEpsilon is the threshold at or below which a remaining quantity
// is treated as fully consumed. Pinned per the source's ambiguity between
// "<= 0" and "<= 1e-3" across variants.
var QuantityEpsilon = decimal.NewFromFloat(0.001)

// Signed returns the position-delta contribution of quantity q on side.
func Signed(side Side, q decimal.Decimal) decimal.Decimal {
	if side == Sell {
		return q.Neg()
	}
	return q
}
