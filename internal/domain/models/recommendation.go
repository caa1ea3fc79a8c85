package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationSchemaVersion is the version stamped on recommendations whose
// strategy leaves SchemaVersion unset. Extension keys are additive within it.
const RecommendationSchemaVersion = 1

// StrategyRecommendation is the output of one successful strategy invocation.
type StrategyRecommendation struct {
	StrategyID    string         `json:"strategy_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Signal        Signal         `json:"signal"`
	Confidence    float64        `json:"confidence"`
	SchemaVersion int            `json:"schema_version"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// FailureKind classifies why an invocation produced no recommendation.
type FailureKind string

const (
	FailureFault         FailureKind = "fault"
	FailureInvalidOutput FailureKind = "invalid_output"
	FailureTimeout       FailureKind = "timeout"
	FailureCancelled     FailureKind = "cancelled"
	FailureUnavailable   FailureKind = "unavailable"
)

// StrategyFailure records a contained per-strategy failure.
type StrategyFailure struct {
	StrategyID string      `json:"strategy_id"`
	Kind       FailureKind `json:"kind"`
	Reason     string      `json:"reason"`
}

func (f StrategyFailure) Error() string {
	return f.StrategyID + ": " + string(f.Kind) + ": " + f.Reason
}

// ExecutionResult is either a recommendation or a failure for one strategy.
type ExecutionResult struct {
	StrategyID     string
	Recommendation *StrategyRecommendation
	Failure        *StrategyFailure
	Duration       time.Duration
}

// OK reports whether the invocation succeeded.
func (r ExecutionResult) OK() bool { return r.Failure == nil && r.Recommendation != nil }

// RecommendationBatch is everything one cycle produced, in registry order.
type RecommendationBatch struct {
	ID              uuid.UUID                `json:"id"`
	Symbol          string                   `json:"symbol"`
	CycleTime       time.Time                `json:"cycle_time"`
	Recommendations []StrategyRecommendation `json:"recommendations"`
	Failures        []StrategyFailure        `json:"failures"`
}

// Empty reports whether no strategy was due in the cycle.
func (b *RecommendationBatch) Empty() bool {
	return len(b.Recommendations) == 0 && len(b.Failures) == 0
}
