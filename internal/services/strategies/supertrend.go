package strategies

import (
	"context"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/services/features"
)

type band struct {
	multiplier float64
	period     int
}

// Supertrend goes LONG when three Supertrend lines all point up on the last
// bar and that bar traded volume. Otherwise it holds.
type Supertrend struct {
	id         string
	minCandles int
	bands      [3]band
}

func NewSupertrend(spec models.StrategySpec) *Supertrend {
	minCandles := spec.MinCandlesRequired
	if minCandles == 0 {
		minCandles = 100
	}
	return &Supertrend{
		id:         spec.ID,
		minCandles: minCandles,
		bands: [3]band{
			{spec.Param("m1", 4), int(spec.Param("p1", 8))},
			{spec.Param("m2", 7), int(spec.Param("p2", 9))},
			{spec.Param("m3", 1), int(spec.Param("p3", 8))},
		},
	}
}

func (s *Supertrend) Run(ctx context.Context, candles []models.Candle, instant time.Time) (models.StrategyRecommendation, error) {
	if len(candles) < s.minCandles {
		return hold(s.id, instant, 0, map[string]any{"reason": "insufficient data", "candles": len(candles)}), nil
	}

	trends := make([]string, 0, len(s.bands))
	up := 0
	for _, b := range s.bands {
		if err := ctx.Err(); err != nil {
			return models.StrategyRecommendation{}, err
		}
		_, dir := features.Supertrend(candles, b.multiplier, b.period)
		last := dir[len(dir)-1]
		if last == features.TrendUp {
			up++
		}
		trends = append(trends, last.String())
	}

	ext := map[string]any{"trends": trends}
	last := candles[len(candles)-1]
	if up == len(s.bands) && last.Volume > 0 {
		return models.StrategyRecommendation{
			StrategyID:    s.id,
			Timestamp:     instant,
			Signal:        models.SignalLong,
			Confidence:    1,
			SchemaVersion: models.RecommendationSchemaVersion,
			Extensions:    ext,
		}, nil
	}
	return hold(s.id, instant, float64(up)/float64(len(s.bands)), ext), nil
}
