package models

import "time"

// TickContext is created fresh for every cycle and passed explicitly to
// each stage of it.
type TickContext struct {
	Instant        time.Time
	DueStrategyIDs []string
}

// NewTickContext builds the context for instant from the due specs, in order.
func NewTickContext(instant time.Time, due []StrategySpec) TickContext {
	ids := make([]string, len(due))
	for i, s := range due {
		ids[i] = s.ID
	}
	return TickContext{Instant: instant, DueStrategyIDs: ids}
}

// PreparedDataMap holds one independently owned candle slice per due strategy.
type PreparedDataMap map[string][]Candle
