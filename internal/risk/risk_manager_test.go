package risk

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

func TestValidateOrder_RejectsOverMaxSize(t *testing.T) {
	rm := New(d("1000"))
	order := common.Order{Symbol: "AAPL", Side: common.Buy, Quantity: d("1001")}
	assert.False(t, rm.ValidateOrder(order))

	order.Quantity = d("1000")
	assert.True(t, rm.ValidateOrder(order))
}

func TestValidateOrder_PositionLimit(t *testing.T) {
	rm := New(d("1000"))
	rm.SetPositionLimit("AAPL", d("100"))
	rm.RecordTransaction("AAPL", d("100"), d("90"), common.Buy)
	require.True(t, rm.GetPosition("AAPL").Equal(d("90")))

	assert.False(t, rm.ValidateOrder(common.Order{Symbol: "AAPL", Side: common.Buy, Quantity: d("20")}))
	assert.True(t, rm.ValidateOrder(common.Order{Symbol: "AAPL", Side: common.Buy, Quantity: d("10")}))
	assert.False(t, rm.ValidateOrder(common.Order{Symbol: "AAPL", Side: common.Buy, Quantity: d("1001")}))
}

func TestValidateOrder_NoLimitMeansUnconstrained(t *testing.T) {
	rm := New(d("1000000"))
	assert.True(t, rm.ValidateOrder(common.Order{Symbol: "TSLA", Side: common.Buy, Quantity: d("999999")}))
}

func TestRecordTransaction_RejectsNonPositiveQuantity(t *testing.T) {
	rm := New(d("1000000"))
	rm.RecordTransaction("AAPL", d("100"), d("0"), common.Buy)
	rm.RecordTransaction("AAPL", d("100"), d("-5"), common.Buy)
	assert.True(t, rm.GetPosition("AAPL").IsZero())
}

func TestRecordTransaction_OpeningFromFlat(t *testing.T) {
	rm := New(d("1000000"))
	rm.RecordTransaction("AAPL", d("100"), d("10"), common.Buy)
	assert.True(t, rm.GetPosition("AAPL").Equal(d("10")))
	assert.True(t, rm.GetAvgPrice("AAPL").Equal(d("100")))
	assert.True(t, rm.GetRealizedPnL("AAPL").IsZero())
}

func TestRecordTransaction_IncreaseSameDirection_WeightedAverage(t *testing.T) {
	rm := New(d("1000000"))
	rm.RecordTransaction("AAPL", d("100"), d("10"), common.Buy)
	rm.RecordTransaction("AAPL", d("110"), d("10"), common.Buy)
	assert.True(t, rm.GetPosition("AAPL").Equal(d("20")))
	assert.True(t, rm.GetAvgPrice("AAPL").Equal(d("105")))
}

func TestRecordTransaction_PartialReduction_RealizesAtUnchangedAverage(t *testing.T) {
	rm := New(d("1000000"))
	rm.RecordTransaction("AAPL", d("100"), d("20"), common.Buy)
	rm.RecordTransaction("AAPL", d("110"), d("5"), common.Sell)

	assert.True(t, rm.GetPosition("AAPL").Equal(d("15")))
	assert.True(t, rm.GetAvgPrice("AAPL").Equal(d("100")), "avg price unchanged on a partial reduction")
	assert.True(t, rm.GetRealizedPnL("AAPL").Equal(d("50")), "(110-100)*5 = 50")
}

func TestRecordTransaction_FullClose(t *testing.T) {
	rm := New(d("1000000"))
	rm.RecordTransaction("AAPL", d("100"), d("10"), common.Buy)
	rm.RecordTransaction("AAPL", d("120"), d("10"), common.Sell)

	assert.True(t, rm.GetPosition("AAPL").IsZero())
	assert.True(t, rm.GetAvgPrice("AAPL").IsZero())
	assert.True(t, rm.GetRealizedPnL("AAPL").Equal(d("200")), "(120-100)*10 = 200")
}

// TestRecordTransaction_PositionReversal covers a sell that flips a long
// position short, followed by a buy that closes it out entirely.
func TestRecordTransaction_PositionReversal(t *testing.T) {
	rm := New(d("1000000"))

	rm.RecordTransaction("AAPL", d("100"), d("10"), common.Buy)
	assert.True(t, rm.GetPosition("AAPL").Equal(d("10")))
	assert.True(t, rm.GetAvgPrice("AAPL").Equal(d("100")))

	rm.RecordTransaction("AAPL", d("110"), d("15"), common.Sell)
	assert.True(t, rm.GetPosition("AAPL").Equal(d("-5")))
	assert.True(t, rm.GetRealizedPnL("AAPL").Equal(d("100")), "(110-100)*10 = 100")
	assert.True(t, rm.GetAvgPrice("AAPL").Equal(d("110")))

	rm.RecordTransaction("AAPL", d("105"), d("5"), common.Buy)
	assert.True(t, rm.GetPosition("AAPL").IsZero())
	assert.True(t, rm.GetRealizedPnL("AAPL").Equal(d("125")), "100 + (110-105)*5 = 125")
	assert.True(t, rm.GetAvgPrice("AAPL").IsZero())
}

func TestRecordTransaction_ShortPositionReversedByBuy(t *testing.T) {
	rm := New(d("1000000"))
	rm.RecordTransaction("AAPL", d("100"), d("10"), common.Sell)
	assert.True(t, rm.GetPosition("AAPL").Equal(d("-10")))

	rm.RecordTransaction("AAPL", d("90"), d("15"), common.Buy)
	assert.True(t, rm.GetPosition("AAPL").Equal(d("5")))
	assert.True(t, rm.GetRealizedPnL("AAPL").Equal(d("100")), "(100-90)*10 = 100")
	assert.True(t, rm.GetAvgPrice("AAPL").Equal(d("90")))
}

func TestAnalyzePortfolioRisk_UtilizationCapsAt100(t *testing.T) {
	rm := New(d("1000000"))
	rm.SetPositionLimit("AAPL", d("100"))
	rm.RecordTransaction("AAPL", d("100"), d("150"), common.Buy)

	snap := rm.AnalyzePortfolioRisk()["AAPL"]
	assert.True(t, snap.Position.Equal(d("150")))
	assert.True(t, snap.UtilizationPct.Equal(d("100")), "utilization caps at 100% even over-limit")
}

func TestAnalyzePortfolioRisk_NoLimitReportsZeroUtilization(t *testing.T) {
	rm := New(d("1000000"))
	rm.RecordTransaction("TSLA", d("200"), d("5"), common.Buy)

	snap := rm.AnalyzePortfolioRisk()["TSLA"]
	assert.False(t, snap.HasLimit)
	assert.True(t, snap.UtilizationPct.IsZero())
}

func TestSetMaxOrderSize_HotUpdates(t *testing.T) {
	rm := New(d("100"))
	assert.False(t, rm.ValidateOrder(common.Order{Symbol: "AAPL", Side: common.Buy, Quantity: d("150")}))
	rm.SetMaxOrderSize(d("200"))
	assert.True(t, rm.ValidateOrder(common.Order{Symbol: "AAPL", Side: common.Buy, Quantity: d("150")}))
}
