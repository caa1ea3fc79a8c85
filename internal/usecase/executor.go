package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	"StratTick/internal/domain/service"
	applogger "StratTick/pkg/logger"
)

// StrategyLookup resolves the implementation for a spec id.
type StrategyLookup interface {
	Strategy(id string) (service.Strategy, bool)
}

// StrategyExecutor runs every due strategy concurrently against its prepared
// slice. One goroutine per strategy, joined before Execute returns.
type StrategyExecutor struct {
	timeout time.Duration
	grace   time.Duration
	metrics domrepo.Metrics
	l       *applogger.Logger
}

type ExecutorOption func(*StrategyExecutor)

// WithStrategyTimeout bounds every invocation of a cycle by one shared deadline.
func WithStrategyTimeout(d time.Duration) ExecutorOption {
	return func(e *StrategyExecutor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithShutdownGrace sets how long cancelled strategies may take to stop.
func WithShutdownGrace(d time.Duration) ExecutorOption {
	return func(e *StrategyExecutor) {
		if d >= 0 {
			e.grace = d
		}
	}
}

func WithExecutorMetrics(m domrepo.Metrics) ExecutorOption {
	return func(e *StrategyExecutor) { e.metrics = m }
}

func WithExecutorLogger(l *applogger.Logger) ExecutorOption {
	return func(e *StrategyExecutor) {
		if l != nil {
			e.l = l
		}
	}
}

func NewStrategyExecutor(opts ...ExecutorOption) *StrategyExecutor {
	e := &StrategyExecutor{
		timeout: 30 * time.Second,
		grace:   2 * time.Second,
		l:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type outcome struct {
	rec models.StrategyRecommendation
	err error
	dur time.Duration
}

type panicError struct {
	value interface{}
	stack []byte
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

// Execute returns one result per due spec in due order. Failures of one
// strategy never delay or drop another's result.
func (e *StrategyExecutor) Execute(ctx context.Context, tick models.TickContext, due []models.StrategySpec, lookup StrategyLookup, data models.PreparedDataMap) []models.ExecutionResult {
	results := make([]models.ExecutionResult, len(due))
	if len(due) == 0 {
		return results
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	chans := make([]chan outcome, len(due))
	for i, spec := range due {
		ch := make(chan outcome, 1)
		chans[i] = ch
		impl, ok := lookup.Strategy(spec.ID)
		if !ok || impl == nil {
			results[i] = e.fail(spec.ID, models.FailureUnavailable, "no implementation registered", 0)
			chans[i] = nil
			continue
		}
		go e.invoke(runCtx, impl, data[spec.ID], tick.Instant, ch)
	}

	var graceCtx context.Context
	for i, spec := range due {
		ch := chans[i]
		if ch == nil {
			continue
		}
		select {
		case out := <-ch:
			results[i] = e.resolve(spec, tick.Instant, runCtx, out)
			continue
		case <-runCtx.Done():
		}

		// A deadline, ours or the caller's, is a timeout. Only an explicit
		// cancel gets the shutdown grace.
		if ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			select {
			case out := <-ch:
				results[i] = e.resolve(spec, tick.Instant, runCtx, out)
			default:
				results[i] = e.fail(spec.ID, models.FailureTimeout, fmt.Sprintf("no result before deadline (%s)", e.timeout), time.Since(started))
			}
			continue
		}

		if graceCtx == nil {
			var stop context.CancelFunc
			graceCtx, stop = context.WithTimeout(context.Background(), e.grace)
			defer stop()
		}
		select {
		case out := <-ch:
			results[i] = e.resolve(spec, tick.Instant, runCtx, out)
		case <-graceCtx.Done():
			results[i] = e.fail(spec.ID, models.FailureCancelled, "abandoned after shutdown grace", time.Since(started))
		}
	}

	for _, r := range results {
		status := "ok"
		if r.Failure != nil {
			status = string(r.Failure.Kind)
			e.l.Warn("strategy failed",
				applogger.String("strategy", r.StrategyID),
				applogger.String("kind", string(r.Failure.Kind)),
				applogger.String("reason", r.Failure.Reason),
				applogger.Time("instant", tick.Instant),
			)
		}
		if e.metrics != nil {
			e.metrics.RecordStrategyRun(r.StrategyID, status, r.Duration.Seconds())
		}
	}
	return results
}

func (e *StrategyExecutor) invoke(ctx context.Context, impl service.Strategy, data []models.Candle, instant time.Time, ch chan<- outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ch <- outcome{err: &panicError{value: r, stack: debug.Stack()}, dur: time.Since(start)}
		}
	}()
	rec, err := impl.Run(ctx, data, instant)
	ch <- outcome{rec: rec, err: err, dur: time.Since(start)}
}

func (e *StrategyExecutor) resolve(spec models.StrategySpec, instant time.Time, runCtx context.Context, out outcome) models.ExecutionResult {
	if out.err != nil {
		var p *panicError
		switch {
		case errors.As(out.err, &p):
			e.l.Error("strategy panicked", applogger.String("strategy", spec.ID), applogger.String("stack", string(p.stack)))
			return e.fail(spec.ID, models.FailureFault, p.Error(), out.dur)
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return e.fail(spec.ID, models.FailureTimeout, out.err.Error(), out.dur)
		case runCtx.Err() != nil:
			return e.fail(spec.ID, models.FailureCancelled, out.err.Error(), out.dur)
		default:
			return e.fail(spec.ID, models.FailureFault, out.err.Error(), out.dur)
		}
	}

	rec, err := normalize(spec.ID, instant, out.rec)
	if err != nil {
		return e.fail(spec.ID, models.FailureInvalidOutput, err.Error(), out.dur)
	}
	return models.ExecutionResult{StrategyID: spec.ID, Recommendation: &rec, Duration: out.dur}
}

// normalize checks a recommendation against the output contract and fills
// the fields a strategy may leave blank.
func normalize(id string, instant time.Time, rec models.StrategyRecommendation) (models.StrategyRecommendation, error) {
	if rec.StrategyID == "" {
		rec.StrategyID = id
	}
	if rec.StrategyID != id {
		return rec, fmt.Errorf("strategy id %q does not match %q", rec.StrategyID, id)
	}
	if !rec.Signal.IsValid() {
		return rec, fmt.Errorf("unknown signal %q", rec.Signal)
	}
	if !rec.Timestamp.Equal(instant) {
		return rec, fmt.Errorf("timestamp %s does not match cycle instant %s", rec.Timestamp.Format(time.RFC3339), instant.Format(time.RFC3339))
	}
	if math.IsNaN(rec.Confidence) || rec.Confidence < 0 || rec.Confidence > 1 {
		return rec, fmt.Errorf("confidence %v outside [0, 1]", rec.Confidence)
	}
	if rec.SchemaVersion < 0 {
		return rec, fmt.Errorf("negative schema version %d", rec.SchemaVersion)
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = models.RecommendationSchemaVersion
	}
	rec.Timestamp = instant
	if rec.Extensions != nil {
		ext := make(map[string]any, len(rec.Extensions))
		for k, v := range rec.Extensions {
			ext[k] = v
		}
		rec.Extensions = ext
	}
	return rec, nil
}

func (e *StrategyExecutor) fail(id string, kind models.FailureKind, reason string, dur time.Duration) models.ExecutionResult {
	return models.ExecutionResult{
		StrategyID: id,
		Failure:    &models.StrategyFailure{StrategyID: id, Kind: kind, Reason: reason},
		Duration:   dur,
	}
}
