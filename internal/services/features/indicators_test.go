package features

import (
	"math"
	"testing"
	"time"

	"StratTick/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLogReturns(t *testing.T) {
	cs := []models.Candle{{Close: 100}, {Close: 110}, {Close: 0}}
	got := ComputeLogReturns(cs)
	require.Len(t, got, 2)
	assert.InDelta(t, math.Log(1.1), got[0], 1e-12)
	assert.Equal(t, 0.0, got[1])
	assert.Nil(t, ComputeLogReturns(cs[:1]))
}

func TestTrueRangeAndSMA(t *testing.T) {
	cs := []models.Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 9, Close: 11},
		{High: 11, Low: 7, Close: 8},
	}
	tr := TrueRange(cs)
	assert.True(t, math.IsNaN(tr[0]))
	assert.Equal(t, 3.0, tr[1])
	assert.Equal(t, 4.0, tr[2])

	sma := SMA(tr, 2)
	assert.True(t, math.IsNaN(sma[1]))
	assert.Equal(t, 3.5, sma[2])
}

func TestATRSeedsWithMean(t *testing.T) {
	cs := make([]models.Candle, 6)
	for i := range cs {
		cs[i] = models.Candle{High: 12, Low: 10, Close: 11}
	}
	atr := ATR(cs, 3)
	assert.True(t, math.IsNaN(atr[2]))
	assert.Equal(t, 2.0, atr[3])
	assert.Equal(t, 2.0, atr[5])
}

func TestSupertrendFollowsRisingMarket(t *testing.T) {
	cs := make([]models.Candle, 60)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range cs {
		p := 100 + float64(i)*2
		cs[i] = models.Candle{Timestamp: start.Add(time.Duration(i) * time.Hour), Open: p - 1, High: p + 1, Low: p - 2, Close: p + 0.5, Volume: 1}
	}
	_, dir := Supertrend(cs, 3, 8)
	assert.Equal(t, TrendNone, dir[7])
	assert.Equal(t, TrendUp, dir[len(dir)-1])
}

func TestRealizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, RealizedVolatility([]float64{0.1}, 5, 8760))
	flat := []float64{0.01, 0.01, 0.01, 0.01}
	assert.InDelta(t, 0.0, RealizedVolatility(flat, 4, 8760), 1e-6)
	assert.Equal(t, 8760.0, BarsPerYear(time.Hour))
}
