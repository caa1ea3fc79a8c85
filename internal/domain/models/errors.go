package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrCycleClaimed is returned when another replica already ran the cycle.
var ErrCycleClaimed = errors.New("cycle already claimed")

// ErrBatchNotFound is returned when no batch is stored for the requested cycle.
var ErrBatchNotFound = errors.New("batch not found")

// InvalidInstantError is returned for a missing or non-UTC cycle instant.
type InvalidInstantError struct {
	Instant time.Time
	Reason  string
}

func (e *InvalidInstantError) Error() string {
	return fmt.Sprintf("invalid instant %s: %s", e.Instant.Format(time.RFC3339Nano), e.Reason)
}

// DataIntegrityError is returned when the base series cannot be resampled.
type DataIntegrityError struct {
	Index     int
	Timestamp time.Time
	Reason    string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: candle %d at %s: %s", e.Index, e.Timestamp.Format(time.RFC3339), e.Reason)
}
