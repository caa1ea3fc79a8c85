package strategies

import (
	"context"
	"fmt"
	"math"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/services/features"
)

// VolatilitySystem is an ATR breakout on a coarser resample of its input:
// a close-to-close move beyond the previous bar's scaled ATR is a breakout.
type VolatilitySystem struct {
	id         string
	minCandles int
	resample   models.Timeframe
	atrPeriod  int
	multiplier float64
}

func NewVolatilitySystem(spec models.StrategySpec) (*VolatilitySystem, error) {
	resample := models.TF3h
	if v, ok := spec.Params["resample_hours"]; ok {
		tf, err := models.ParseTimeframe(fmt.Sprintf("%dh", int(v)))
		if err != nil {
			return nil, err
		}
		resample = tf
	}
	base := spec.Timeframe.Duration()
	if base <= 0 || resample.Duration()%base != 0 {
		return nil, fmt.Errorf("resample timeframe %s is not a multiple of %s", resample, spec.Timeframe)
	}
	minCandles := spec.MinCandlesRequired
	if minCandles == 0 {
		minCandles = 52
	}
	return &VolatilitySystem{
		id:         spec.ID,
		minCandles: minCandles,
		resample:   resample,
		atrPeriod:  int(spec.Param("atr_period", 14)),
		multiplier: spec.Param("atr_multiplier", 2),
	}, nil
}

func (v *VolatilitySystem) Run(ctx context.Context, candles []models.Candle, instant time.Time) (models.StrategyRecommendation, error) {
	if len(candles) < v.minCandles {
		return hold(v.id, instant, 0, map[string]any{"reason": "insufficient data", "candles": len(candles)}), nil
	}

	bars := features.Resample(candles, v.resample.Duration())
	atr := features.ATR(bars, v.atrPeriod)
	n := len(bars)
	if n < 2 || math.IsNaN(atr[n-1]) || math.IsNaN(atr[n-2]) {
		return hold(v.id, instant, 0, map[string]any{"reason": "insufficient data", "bars": n}), nil
	}
	if err := ctx.Err(); err != nil {
		return models.StrategyRecommendation{}, err
	}

	cur := atr[n-1] * v.multiplier
	prev := atr[n-2] * v.multiplier
	change := bars[n-1].Close - bars[n-2].Close
	absChange := math.Abs(change)

	returns := features.ComputeLogReturns(candles)
	ext := map[string]any{
		"atr":                 cur,
		"close_change":        change,
		"price":               bars[n-1].Close,
		"resample_timeframe":  v.resample.String(),
		"realized_volatility": features.RealizedVolatility(returns, len(returns), features.BarsPerYear(candlesStep(candles))),
	}
	if cur <= 0 {
		ext["reason"] = "flat market"
		return hold(v.id, instant, 0.3, ext), nil
	}

	rec := models.StrategyRecommendation{
		StrategyID:    v.id,
		Timestamp:     instant,
		SchemaVersion: models.RecommendationSchemaVersion,
		Extensions:    ext,
	}
	ratio := absChange / cur
	switch {
	case change > prev:
		rec.Signal = models.SignalLong
		rec.Confidence = math.Min(0.9, 0.6+ratio*0.3)
		ext["reason"] = "volatility breakout"
		ext["breakout_ratio"] = change / cur
	case change < -prev:
		rec.Signal = models.SignalShort
		rec.Confidence = math.Min(0.9, 0.6+ratio*0.3)
		ext["reason"] = "volatility breakout"
		ext["breakout_ratio"] = change / cur
	case ratio < 0.3:
		rec.Signal = models.SignalHold
		rec.Confidence = 0.3
		ext["reason"] = "low volatility"
		ext["volatility_ratio"] = ratio
	default:
		rec.Signal = models.SignalHold
		rec.Confidence = 0.5
		ext["reason"] = "no clear breakout"
		ext["volatility_ratio"] = ratio
	}
	return rec, nil
}

func candlesStep(candles []models.Candle) time.Duration {
	if len(candles) < 2 {
		return 0
	}
	return candles[1].Timestamp.Sub(candles[0].Timestamp)
}
