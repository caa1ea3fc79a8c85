package usecase

import (
	"StratTick/internal/domain/models"

	"github.com/google/uuid"
)

// RecommendationAggregator partitions executor results into a batch. It
// does not weigh or combine signals.
type RecommendationAggregator struct {
	symbol string
	newID  func() uuid.UUID
}

func NewRecommendationAggregator(symbol string) *RecommendationAggregator {
	return &RecommendationAggregator{symbol: symbol, newID: uuid.New}
}

// Aggregate returns a batch in which every due strategy appears exactly once,
// in due order, either as a recommendation or as a failure.
func (a *RecommendationAggregator) Aggregate(tick models.TickContext, results []models.ExecutionResult) *models.RecommendationBatch {
	byID := make(map[string]models.ExecutionResult, len(results))
	for _, r := range results {
		if _, seen := byID[r.StrategyID]; !seen {
			byID[r.StrategyID] = r
		}
	}

	batch := &models.RecommendationBatch{
		ID:              a.newID(),
		Symbol:          a.symbol,
		CycleTime:       tick.Instant,
		Recommendations: make([]models.StrategyRecommendation, 0, len(tick.DueStrategyIDs)),
		Failures:        make([]models.StrategyFailure, 0),
	}
	for _, id := range tick.DueStrategyIDs {
		r, ok := byID[id]
		switch {
		case !ok:
			batch.Failures = append(batch.Failures, models.StrategyFailure{StrategyID: id, Kind: models.FailureCancelled, Reason: "no result reported"})
		case r.OK():
			rec := *r.Recommendation
			batch.Recommendations = append(batch.Recommendations, rec)
		case r.Failure != nil:
			batch.Failures = append(batch.Failures, *r.Failure)
		default:
			batch.Failures = append(batch.Failures, models.StrategyFailure{StrategyID: id, Kind: models.FailureInvalidOutput, Reason: "empty result"})
		}
	}
	return batch
}
