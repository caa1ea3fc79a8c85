package usecase

import (
	"context"
	"errors"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/services/features"
	applogger "StratTick/pkg/logger"
)

// Clock is the wall-clock source of the scheduler.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now().UTC() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the real UTC wall clock.
func SystemClock() Clock { return systemClock{} }

// CycleRunner is what the scheduler drives once per boundary.
type CycleRunner interface {
	Run(ctx context.Context, instant time.Time) (*models.RecommendationBatch, error)
}

// TickScheduler fires the cycle at every base-timeframe boundary. It only
// supplies instants, all cycle logic lives in the runner. Boundaries missed
// while a cycle was running are skipped, not replayed.
type TickScheduler struct {
	runner CycleRunner
	base   time.Duration
	settle time.Duration
	clock  Clock
	l      *applogger.Logger
}

type SchedulerOption func(*TickScheduler)

func WithClock(c Clock) SchedulerOption {
	return func(s *TickScheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSettleDelay waits d after each boundary before firing so the closing
// candle has time to arrive. The instant passed on is still the boundary.
func WithSettleDelay(d time.Duration) SchedulerOption {
	return func(s *TickScheduler) {
		if d >= 0 {
			s.settle = d
		}
	}
}

func WithSchedulerLogger(l *applogger.Logger) SchedulerOption {
	return func(s *TickScheduler) {
		if l != nil {
			s.l = l
		}
	}
}

func NewTickScheduler(runner CycleRunner, base time.Duration, opts ...SchedulerOption) *TickScheduler {
	s := &TickScheduler{
		runner: runner,
		base:   base,
		clock:  SystemClock(),
		l:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start blocks until ctx is done.
func (s *TickScheduler) Start(ctx context.Context) error {
	if s.base <= 0 {
		return errors.New("scheduler: base timeframe must be positive")
	}
	s.l.Info("scheduler started", applogger.Duration("base", s.base), applogger.Duration("settle_delay", s.settle))
	var last time.Time
	for {
		now := s.clock.Now()
		next := s.nextInstant(now, last)
		wait := next.Add(s.settle).Sub(now)

		select {
		case <-ctx.Done():
			s.l.Info("scheduler stopped")
			return nil
		case <-s.clock.After(wait):
		}

		last = next
		batch, err := s.runner.Run(ctx, next)
		switch {
		case errors.Is(err, models.ErrCycleClaimed):
			s.l.Debug("cycle claimed by another replica", applogger.Time("instant", next))
		case err != nil:
			s.l.Error("cycle error", applogger.Time("instant", next), applogger.Error(err))
		case batch != nil:
			s.l.Debug("cycle published", applogger.String("batch_id", batch.ID.String()))
		}
	}
}

// nextInstant is the boundary the next cycle runs for. A boundary that has
// passed but is still inside its settle delay has not fired yet.
func (s *TickScheduler) nextInstant(now, last time.Time) time.Time {
	next := features.NextBoundary(now, s.base)
	current := next.Add(-s.base)
	if current.After(last) && now.Before(current.Add(s.settle)) {
		return current
	}
	return next
}
