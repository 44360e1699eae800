package book

import (
	"testing"

	"vantage/internal/common"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func limitOrder(id uint64, symbol string, side common.Side, price, qty string) common.Order {
	q := d(qty)
	return common.Order{
		ID:            id,
		Symbol:        symbol,
		Side:          side,
		Type:          common.Limit,
		Price:         d(price),
		Quantity:      q,
		TotalQuantity: q,
	}
}

func TestAddOrder_RejectsNonLimit(t *testing.T) {
	ob := New()
	assert.False(t, ob.AddOrder(common.Order{ID: 1, Symbol: "AAPL", Type: common.Market, Price: d("1"), Quantity: d("1")}))
	assert.Equal(t, 0, ob.IndexSize())
}

func TestAddOrder_RejectsNonPositivePriceOrQuantity(t *testing.T) {
	ob := New()
	assert.False(t, ob.AddOrder(limitOrder(1, "AAPL", common.Buy, "0", "10")))
	assert.False(t, ob.AddOrder(limitOrder(2, "AAPL", common.Buy, "100", "0")))
	assert.False(t, ob.AddOrder(limitOrder(3, "AAPL", common.Buy, "-5", "10")))
	assert.Equal(t, 0, ob.IndexSize())
}

func TestBestBidAsk_AndMidPrice(t *testing.T) {
	ob := New()
	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Buy, "99.00", "10")))
	require.True(t, ob.AddOrder(limitOrder(2, "AAPL", common.Buy, "99.50", "10")))
	require.True(t, ob.AddOrder(limitOrder(3, "AAPL", common.Sell, "100.00", "10")))
	require.True(t, ob.AddOrder(limitOrder(4, "AAPL", common.Sell, "100.50", "10")))

	bid, ok := ob.GetBestBid("AAPL")
	require.True(t, ok)
	assert.True(t, bid.Equal(d("99.50")))

	ask, ok := ob.GetBestAsk("AAPL")
	require.True(t, ok)
	assert.True(t, ask.Equal(d("100.00")))

	mid, ok := ob.GetMidPrice("AAPL")
	require.True(t, ok)
	assert.True(t, mid.Equal(d("99.75")))

	bidCount, askCount := ob.GetDepth("AAPL")
	assert.Equal(t, 2, bidCount)
	assert.Equal(t, 2, askCount)
}

func TestMidPrice_AbsentWithoutBothSides(t *testing.T) {
	ob := New()
	_, ok := ob.GetMidPrice("AAPL")
	assert.False(t, ok)

	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Buy, "99.00", "10")))
	_, ok = ob.GetMidPrice("AAPL")
	assert.False(t, ok)
}

func TestCancelOrder_RemovesAndIsIdempotent(t *testing.T) {
	ob := New()
	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Buy, "99.00", "10")))

	assert.True(t, ob.CancelOrder(1))
	assert.Equal(t, 0, ob.IndexSize())
	_, ok := ob.GetBestBid("AAPL")
	assert.False(t, ok)

	// Cancelling again, or an id that never existed, is a no-op.
	assert.False(t, ob.CancelOrder(1))
	assert.False(t, ob.CancelOrder(999))
}

// TestCancelOrder_PreservesOrderAtLevel covers property 4 and scenario 4:
// cancelling the middle of three resting orders at one level leaves the
// other two in their original relative order, and a subsequent sweep
// matches against them in that order.
func TestCancelOrder_PreservesOrderAtLevel(t *testing.T) {
	ob := New()
	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Sell, "100.00", "10")))
	require.True(t, ob.AddOrder(limitOrder(2, "AAPL", common.Sell, "100.00", "10")))
	require.True(t, ob.AddOrder(limitOrder(3, "AAPL", common.Sell, "100.00", "10")))

	assert.True(t, ob.CancelOrder(2))

	incoming := limitOrder(4, "AAPL", common.Buy, "100.00", "20")
	trades := ob.Match(&incoming, sequentialIDs())
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].SellerID)
	assert.Equal(t, uint64(3), trades[1].SellerID)
}

func sequentialIDs() func() uint64 {
	var n uint64
	return func() uint64 {
		n++
		return n
	}
}

func TestMatch_SingleCrossingFill(t *testing.T) {
	ob := New()
	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Sell, "100.00", "50")))

	incoming := limitOrder(2, "AAPL", common.Buy, "100.00", "30")
	trades := ob.Match(&incoming, sequentialIDs())

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("100.00")))
	assert.True(t, trades[0].Quantity.Equal(d("30")))
	assert.Equal(t, uint64(2), trades[0].BuyerID)
	assert.Equal(t, uint64(1), trades[0].SellerID)
	assert.False(t, incoming.Remaining())

	level, ok := ob.pairFor("AAPL").asks.get(d("100.00"))
	require.True(t, ok)
	require.Len(t, level.Orders, 1)
	assert.Equal(t, uint64(1), level.Orders[0].ID)
	assert.True(t, level.Orders[0].Quantity.Equal(d("20")))
}

// TestMatch_WalksTwoLevels is end-to-end scenario 2.
func TestMatch_WalksTwoLevels(t *testing.T) {
	ob := New()
	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Sell, "100.00", "10")))
	require.True(t, ob.AddOrder(limitOrder(2, "AAPL", common.Sell, "100.01", "10")))

	incoming := limitOrder(3, "AAPL", common.Buy, "100.01", "15")
	trades := ob.Match(&incoming, sequentialIDs())

	require.Len(t, trades, 2)
	assert.True(t, trades[0].Price.Equal(d("100.00")))
	assert.True(t, trades[0].Quantity.Equal(d("10")))
	assert.Equal(t, uint64(1), trades[0].SellerID)
	assert.True(t, trades[1].Price.Equal(d("100.01")))
	assert.True(t, trades[1].Quantity.Equal(d("5")))
	assert.Equal(t, uint64(2), trades[1].SellerID)

	_, ok := ob.pairFor("AAPL").asks.get(d("100.00"))
	assert.False(t, ok, "100.00 level should be fully removed")

	level, ok := ob.pairFor("AAPL").asks.get(d("100.01"))
	require.True(t, ok)
	assert.True(t, level.Orders[0].Quantity.Equal(d("5")))
}

// TestMatch_PriceTimePriority is end-to-end scenario 3.
func TestMatch_PriceTimePriority(t *testing.T) {
	ob := New()
	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Buy, "99.00", "10")))
	require.True(t, ob.AddOrder(limitOrder(2, "AAPL", common.Buy, "99.00", "10")))

	incoming := limitOrder(3, "AAPL", common.Sell, "99.00", "15")
	trades := ob.Match(&incoming, sequentialIDs())

	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].BuyerID)
	assert.True(t, trades[0].Quantity.Equal(d("10")))
	assert.Equal(t, uint64(2), trades[1].BuyerID)
	assert.True(t, trades[1].Quantity.Equal(d("5")))

	level, ok := ob.pairFor("AAPL").bids.get(d("99.00"))
	require.True(t, ok)
	require.Len(t, level.Orders, 1)
	assert.Equal(t, uint64(2), level.Orders[0].ID)
	assert.True(t, level.Orders[0].Quantity.Equal(d("5")))
}

// TestMatch_PriceGateStopsIteration asserts invariant/property 5: a limit
// buy only fills at prices at or below its own limit.
func TestMatch_PriceGateStopsIteration(t *testing.T) {
	ob := New()
	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Sell, "100.00", "10")))
	require.True(t, ob.AddOrder(limitOrder(2, "AAPL", common.Sell, "101.00", "10")))

	incoming := limitOrder(3, "AAPL", common.Buy, "100.00", "20")
	trades := ob.Match(&incoming, sequentialIDs())

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.LessThanOrEqual(d("100.00")))
	assert.True(t, incoming.Remaining())
	assert.True(t, incoming.Quantity.Equal(d("10")))
}

// TestMatch_MarketOrderSweepsWithoutPriceGate: a market order has no limit
// price, so Match walks past the best level into a higher-priced one until
// the order is filled.
func TestMatch_MarketOrderSweepsWithoutPriceGate(t *testing.T) {
	ob := New()
	require.True(t, ob.AddOrder(limitOrder(1, "AAPL", common.Sell, "100.00", "10")))
	require.True(t, ob.AddOrder(limitOrder(2, "AAPL", common.Sell, "105.00", "10")))

	incoming := common.Order{ID: 3, Symbol: "AAPL", Side: common.Buy, Type: common.Market, Quantity: d("15"), TotalQuantity: d("15")}
	trades := ob.Match(&incoming, sequentialIDs())

	require.Len(t, trades, 2)
	assert.True(t, trades[1].Price.Equal(d("105.00")))
	assert.False(t, incoming.Remaining())
}

func TestIndexConsistency_AfterAddsAndCancels(t *testing.T) {
	ob := New()
	for i := uint64(1); i <= 5; i++ {
		require.True(t, ob.AddOrder(limitOrder(i, "AAPL", common.Buy, "99.00", "10")))
	}
	assert.Equal(t, 5, ob.IndexSize())

	assert.True(t, ob.CancelOrder(3))
	assert.Equal(t, 4, ob.IndexSize())

	bidCount, _ := ob.GetDepth("AAPL")
	assert.Equal(t, 4, bidCount)
}
