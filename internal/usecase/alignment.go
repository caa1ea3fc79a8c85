package usecase

import (
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/services/features"
)

// ValidateInstant rejects instants that are missing or not in UTC.
func ValidateInstant(instant time.Time) error {
	if instant.IsZero() {
		return &models.InvalidInstantError{Instant: instant, Reason: "missing"}
	}
	if instant.Location() != time.UTC {
		return &models.InvalidInstantError{Instant: instant, Reason: "not UTC (" + instant.Location().String() + ")"}
	}
	return nil
}

// Due returns the enabled specs whose timeframe boundary coincides with
// instant, in registry order. Boundaries are multiples of the timeframe since
// the Unix epoch, so they do not depend on when the process started.
func Due(instant time.Time, specs []models.StrategySpec) ([]models.StrategySpec, error) {
	if err := ValidateInstant(instant); err != nil {
		return nil, err
	}
	due := make([]models.StrategySpec, 0, len(specs))
	for _, s := range specs {
		if !s.Enabled {
			continue
		}
		if features.IsAligned(instant, s.Timeframe.Duration()) {
			due = append(due, s)
		}
	}
	return due, nil
}
