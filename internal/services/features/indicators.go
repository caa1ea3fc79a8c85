package features

import (
	"math"
	"time"

	"StratTick/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns. Returns 0 when there is not enough data.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the number of bars of length d in a 365 day year.
func BarsPerYear(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(d)
}

// TrueRange is TA-Lib TRANGE: NaN for the first bar, then
// max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		pc := candles[i-1].Close
		out[i] = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-pc), math.Abs(c.Low-pc)))
	}
	return out
}

// SMA is a simple moving average that stays NaN until period valid inputs
// have been seen. Leading NaN inputs are skipped.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 {
		return out
	}
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	sum := 0.0
	for i := start; i < len(values); i++ {
		sum += values[i]
		if i-start >= period {
			sum -= values[i-period]
		}
		if i-start+1 >= period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ATR is Wilder's average true range seeded with the SMA of the first
// period true ranges, as TA-Lib computes it.
func ATR(candles []models.Candle, period int) []float64 {
	tr := TrueRange(candles)
	out := make([]float64, len(candles))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(candles) <= period {
		return out
	}
	seed := 0.0
	for i := 1; i <= period; i++ {
		seed += tr[i]
	}
	out[period] = seed / float64(period)
	for i := period + 1; i < len(candles); i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}

// Trend is the direction reported by a Supertrend line.
type Trend int

const (
	TrendNone Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "none"
	}
}

// Supertrend returns the band value and trend direction per bar. The band
// uses an SMA of the true range as volatility and is undefined (TrendNone)
// until period bars exist.
func Supertrend(candles []models.Candle, multiplier float64, period int) ([]float64, []Trend) {
	n := len(candles)
	st := make([]float64, n)
	dir := make([]Trend, n)
	if period <= 0 || n <= period {
		return st, dir
	}
	atr := SMA(TrueRange(candles), period)
	finalUB := make([]float64, n)
	finalLB := make([]float64, n)
	for i := period; i < n; i++ {
		mid := (candles[i].High + candles[i].Low) / 2
		basicUB := mid + multiplier*atr[i]
		basicLB := mid - multiplier*atr[i]
		prevClose := candles[i-1].Close

		if basicUB < finalUB[i-1] || prevClose > finalUB[i-1] {
			finalUB[i] = basicUB
		} else {
			finalUB[i] = finalUB[i-1]
		}
		if basicLB > finalLB[i-1] || prevClose < finalLB[i-1] {
			finalLB[i] = basicLB
		} else {
			finalLB[i] = finalLB[i-1]
		}

		c := candles[i].Close
		switch {
		case st[i-1] == finalUB[i-1] && c <= finalUB[i]:
			st[i] = finalUB[i]
		case st[i-1] == finalUB[i-1] && c > finalUB[i]:
			st[i] = finalLB[i]
		case st[i-1] == finalLB[i-1] && c >= finalLB[i]:
			st[i] = finalLB[i]
		case st[i-1] == finalLB[i-1] && c < finalLB[i]:
			st[i] = finalUB[i]
		default:
			st[i] = 0
		}
	}
	for i := range st {
		if math.IsNaN(st[i]) || st[i] <= 0 {
			continue
		}
		if candles[i].Close < st[i] {
			dir[i] = TrendDown
		} else {
			dir[i] = TrendUp
		}
	}
	return st, dir
}
