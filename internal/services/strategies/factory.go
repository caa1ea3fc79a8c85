package strategies

import (
	"fmt"
	"strings"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/domain/service"
)

const (
	KindSupertrend       = "supertrend"
	KindVolatilitySystem = "volatility_system"
)

// Factory builds strategies by kind.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

// Build returns the strategy for spec.Kind configured from spec.Params.
func (f *Factory) Build(spec models.StrategySpec) (service.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Kind)) {
	case KindSupertrend:
		return NewSupertrend(spec), nil
	case KindVolatilitySystem:
		return NewVolatilitySystem(spec)
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", spec.Kind)
	}
}

func hold(id string, instant time.Time, confidence float64, ext map[string]any) models.StrategyRecommendation {
	return models.StrategyRecommendation{
		StrategyID:    id,
		Timestamp:     instant,
		Signal:        models.SignalHold,
		Confidence:    confidence,
		SchemaVersion: models.RecommendationSchemaVersion,
		Extensions:    ext,
	}
}
