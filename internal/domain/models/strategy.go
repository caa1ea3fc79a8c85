package models

// StrategySpec identifies a strategy and declares the data it needs.
// It is immutable once the registry holding it is built.
type StrategySpec struct {
	ID                 string             `json:"id"`
	Kind               string             `json:"kind"`
	Timeframe          Timeframe          `json:"timeframe"`
	LookbackHours      int                `json:"lookback_hours"`
	MinCandlesRequired int                `json:"min_candles_required"`
	Enabled            bool               `json:"enabled"`
	Params             map[string]float64 `json:"params,omitempty"`
}

// Bars is the number of timeframe bars covering the lookback,
// ceil(lookback_hours*60 / timeframe_minutes).
func (s StrategySpec) Bars() int {
	minutes := s.Timeframe.Minutes()
	if minutes <= 0 || s.LookbackHours <= 0 {
		return 0
	}
	total := s.LookbackHours * 60
	return (total + minutes - 1) / minutes
}

// Param returns a numeric parameter or def when it is absent.
func (s StrategySpec) Param(key string, def float64) float64 {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return def
}
