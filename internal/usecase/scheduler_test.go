package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"StratTick/internal/domain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock jumps forward by exactly the requested wait. Once ctx is done it
// never fires, so the scheduler can only observe cancellation.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
	ctx context.Context
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	if c.ctx.Err() != nil {
		return nil
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

type recordingRunner struct {
	instants []time.Time
	stopAt   int
	cancel   context.CancelFunc
	clock    *fakeClock
	took     time.Duration
}

func (r *recordingRunner) Run(_ context.Context, instant time.Time) (*models.RecommendationBatch, error) {
	r.instants = append(r.instants, instant)
	if r.took > 0 {
		r.clock.mu.Lock()
		r.clock.now = r.clock.now.Add(r.took)
		r.clock.mu.Unlock()
	}
	if len(r.instants) == r.stopAt {
		r.cancel()
	}
	return &models.RecommendationBatch{ID: uuid.New(), CycleTime: instant}, nil
}

func TestTickScheduler_FiresOnBoundaries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &fakeClock{now: time.Date(2024, 1, 5, 10, 20, 30, 0, time.UTC), ctx: ctx}
	runner := &recordingRunner{stopAt: 3, cancel: cancel, clock: clock}

	s := NewTickScheduler(runner, time.Minute, WithClock(clock), WithSettleDelay(2*time.Second))
	require.NoError(t, s.Start(ctx))

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 5, 10, 21, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 10, 22, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 10, 23, 0, 0, time.UTC),
	}, runner.instants)
}

func TestTickScheduler_SkipsMissedBoundaries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &fakeClock{now: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), ctx: ctx}
	runner := &recordingRunner{stopAt: 2, cancel: cancel, clock: clock, took: 150 * time.Second}

	s := NewTickScheduler(runner, time.Minute, WithClock(clock))
	require.NoError(t, s.Start(ctx))

	require.Len(t, runner.instants, 2)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 1, 0, 0, time.UTC), runner.instants[0])
	assert.Equal(t, time.Date(2024, 1, 5, 10, 4, 0, 0, time.UTC), runner.instants[1])
}

func TestTickScheduler_StartInsideSettleDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &fakeClock{now: time.Date(2024, 1, 5, 10, 0, 1, 0, time.UTC), ctx: ctx}
	runner := &recordingRunner{stopAt: 2, cancel: cancel, clock: clock}

	s := NewTickScheduler(runner, time.Hour, WithClock(clock), WithSettleDelay(5*time.Second))
	require.NoError(t, s.Start(ctx))

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 11, 0, 0, 0, time.UTC),
	}, runner.instants)
	assert.Equal(t, time.Date(2024, 1, 5, 11, 0, 5, 0, time.UTC), clock.Now())
}

func TestTickScheduler_RejectsZeroBase(t *testing.T) {
	s := NewTickScheduler(&recordingRunner{}, 0)
	assert.Error(t, s.Start(context.Background()))
}
