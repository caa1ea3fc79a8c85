package service

import (
	"context"
	"time"

	"StratTick/internal/domain/models"
)

// Strategy turns a prepared candle window into a recommendation for instant.
// Implementations must return HOLD, not an error, when candles holds fewer rows
// than they need, and must honour ctx cancellation.
type Strategy interface {
	Run(ctx context.Context, candles []models.Candle, instant time.Time) (models.StrategyRecommendation, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(ctx context.Context, candles []models.Candle, instant time.Time) (models.StrategyRecommendation, error)

func (f StrategyFunc) Run(ctx context.Context, candles []models.Candle, instant time.Time) (models.StrategyRecommendation, error) {
	return f(ctx, candles, instant)
}
