package marketdata

import (
	"testing"
	"time"

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

func TestToBracketOrders_BracketsCloseAtTenBps(t *testing.T) {
	q := Quote{Symbol: "AAPL", Timestamp: time.Now(), Close: d("100.00"), Volume: d("50000")}

	var n uint64
	nextID := func() uint64 { n++; return n }

	buy, sell := q.ToBracketOrders(nextID, d("0.01"))

	assert.True(t, buy.Price.LessThan(d("100.00")))
	assert.True(t, sell.Price.GreaterThan(d("100.00")))
	assert.True(t, buy.Price.Equal(d("99.90")))
	assert.True(t, sell.Price.Equal(d("100.10")))
	assert.NotEqual(t, buy.ID, sell.ID)
	assert.Equal(t, "AAPL", buy.Symbol)
}

func TestToBracketOrders_QuantityFloorsAtTen(t *testing.T) {
	q := Quote{Symbol: "AAPL", Close: d("100.00"), Volume: d("1000")}
	var n uint64
	nextID := func() uint64 { n++; return n }

	buy, sell := q.ToBracketOrders(nextID, d("0.01"))
	assert.True(t, buy.Quantity.Equal(d("10")), "volume*0.001=1 is below the 10-unit floor")
	assert.True(t, sell.Quantity.Equal(d("10")))
}

func TestToBracketOrders_QuantityScalesWithVolume(t *testing.T) {
	q := Quote{Symbol: "AAPL", Close: d("100.00"), Volume: d("50000")}
	var n uint64
	nextID := func() uint64 { n++; return n }

	buy, _ := q.ToBracketOrders(nextID, d("0.01"))
	assert.True(t, buy.Quantity.Equal(d("50")), "volume*0.001 = 50")
}

func TestRoundToTick_QuantizesToNearestTick(t *testing.T) {
	assert.True(t, roundToTick(d("100.004"), d("0.01")).Equal(d("100.00")))
	assert.True(t, roundToTick(d("100.006"), d("0.01")).Equal(d("100.01")))
}

func TestRoundToTick_DisabledByNonPositiveTick(t *testing.T) {
	price := d("100.123")
	assert.True(t, roundToTick(price, d("0")).Equal(price))
}

func TestParseQuote_DecodesStringFields(t *testing.T) {
	bar := rawMinuteData{Open: "99.50", High: "101.00", Low: "99.00", Close: "100.50", Volume: "12345"}
	q, err := parseQuote("AAPL", "2026-07-29 09:31:00", bar)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.True(t, q.Close.Equal(d("100.50")))
	assert.Equal(t, 2026, q.Timestamp.Year())
}

func TestParseQuote_RejectsMalformedTimestamp(t *testing.T) {
	bar := rawMinuteData{Open: "1", High: "1", Low: "1", Close: "1", Volume: "1"}
	_, err := parseQuote("AAPL", "not-a-timestamp", bar)
	assert.Error(t, err)
}
