package marketdata

import (
	"time"

	"vantage/internal/common"

	"github.com/shopspring/decimal"
)

// Quote is one minute's intraday bar for a symbol.
type Quote struct {
	Symbol    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

var (
	bracketSpread  = decimal.NewFromFloat(0.001) // ±0.1% of close
	minBracketQty  = decimal.NewFromInt(10)
	volumeQtyScale = decimal.NewFromFloat(0.001)
)

// ToBracketOrders builds a pair of limit orders bracketing the quote's
// close at ±0.1%, quantity max(volume*0.001, 10), price quantized to
// tickSize.
func (q Quote) ToBracketOrders(nextID func() uint64, tickSize decimal.Decimal) (buy, sell common.Order) {
	now := time.Now()
	qty := q.Volume.Mul(volumeQtyScale)
	if qty.LessThan(minBracketQty) {
		qty = minBracketQty
	}

	offset := q.Close.Mul(bracketSpread)
	buyPrice := roundToTick(q.Close.Sub(offset), tickSize)
	sellPrice := roundToTick(q.Close.Add(offset), tickSize)

	buy = common.Order{
		ID:            nextID(),
		Symbol:        q.Symbol,
		Side:          common.Buy,
		Type:          common.Limit,
		Price:         buyPrice,
		Quantity:      qty,
		TotalQuantity: qty,
		Timestamp:     now,
	}
	sell = common.Order{
		ID:            nextID(),
		Symbol:        q.Symbol,
		Side:          common.Sell,
		Type:          common.Limit,
		Price:         sellPrice,
		Quantity:      qty,
		TotalQuantity: qty,
		Timestamp:     now,
	}
	return buy, sell
}

// roundToTick quantizes price to the nearest multiple of tickSize. A
// non-positive tickSize disables quantization.
func roundToTick(price, tickSize decimal.Decimal) decimal.Decimal {
	if !tickSize.IsPositive() {
		return price
	}
	ticks := price.Div(tickSize).Round(0)
	return ticks.Mul(tickSize)
}
