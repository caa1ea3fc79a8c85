package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	"StratTick/internal/services/registry"
	applogger "StratTick/pkg/logger"
)

// CycleGate is held for the whole of a cycle. Candle writers take it too, so
// writes land between cycles and cycles never overlap.
type CycleGate struct {
	mu sync.Mutex
}

func NewCycleGate() *CycleGate { return &CycleGate{} }

func (g *CycleGate) Lock()   { g.mu.Lock() }
func (g *CycleGate) Unlock() { g.mu.Unlock() }

// RegistrySource yields the registry snapshot a cycle runs against.
type RegistrySource interface {
	Current() *registry.Registry
}

// TickCycle runs one orchestration cycle per call: due set, data
// preparation, parallel execution, aggregation and publication.
type TickCycle struct {
	registry   RegistrySource
	store      domrepo.CandleStore
	preparer   *DataPreparer
	executor   *StrategyExecutor
	aggregator *RecommendationAggregator
	sink       domrepo.BatchSink
	gate       *CycleGate
	locker     domrepo.Locker
	lockTTL    time.Duration
	lockPrefix string

	publishEmpty bool
	metrics      domrepo.Metrics
	l            *applogger.Logger
}

type CycleOption func(*TickCycle)

func WithCycleGate(g *CycleGate) CycleOption {
	return func(c *TickCycle) {
		if g != nil {
			c.gate = g
		}
	}
}

// WithCycleLock claims every cycle instant through locker so that only one
// replica publishes a batch for it.
func WithCycleLock(locker domrepo.Locker, prefix string, ttl time.Duration) CycleOption {
	return func(c *TickCycle) {
		c.locker = locker
		c.lockPrefix = prefix
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

func WithPublishEmpty(b bool) CycleOption {
	return func(c *TickCycle) { c.publishEmpty = b }
}

func WithCycleMetrics(m domrepo.Metrics) CycleOption {
	return func(c *TickCycle) { c.metrics = m }
}

func WithCycleLogger(l *applogger.Logger) CycleOption {
	return func(c *TickCycle) {
		if l != nil {
			c.l = l
		}
	}
}

func NewTickCycle(
	reg RegistrySource,
	store domrepo.CandleStore,
	preparer *DataPreparer,
	executor *StrategyExecutor,
	aggregator *RecommendationAggregator,
	sink domrepo.BatchSink,
	opts ...CycleOption,
) *TickCycle {
	c := &TickCycle{
		registry:   reg,
		store:      store,
		preparer:   preparer,
		executor:   executor,
		aggregator: aggregator,
		sink:       sink,
		gate:       NewCycleGate(),
		lockTTL:    5 * time.Minute,
		lockPrefix: "cycle",
		l:          applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the cycle for instant and returns its batch. A returned
// InvalidInstantError or DataIntegrityError means nothing was executed.
// When publishing fails the batch is still returned alongside the error.
func (c *TickCycle) Run(ctx context.Context, instant time.Time) (*models.RecommendationBatch, error) {
	start := time.Now()
	batch, due, err := c.run(ctx, instant)
	c.record(err, due, time.Since(start))
	return batch, err
}

func (c *TickCycle) run(ctx context.Context, instant time.Time) (*models.RecommendationBatch, int, error) {
	c.gate.Lock()
	defer c.gate.Unlock()

	reg := c.registry.Current()
	due, err := Due(instant, reg.Specs())
	if err != nil {
		return nil, 0, err
	}
	tick := models.NewTickContext(instant, due)

	if c.locker != nil && len(due) > 0 {
		key := c.lockPrefix + ":" + strconv.FormatInt(instant.Unix(), 10)
		ok, err := c.locker.TryLock(ctx, key, c.lockTTL)
		if err != nil {
			c.l.Warn("cycle lock unavailable, running unclaimed", applogger.Error(err))
		} else if !ok {
			return nil, len(due), models.ErrCycleClaimed
		}
	}

	data := models.PreparedDataMap{}
	if len(due) > 0 {
		from, to := c.preparer.Window(instant, due)
		queryStart := time.Now()
		base, err := c.store.QueryRange(ctx, from, to)
		if c.metrics != nil {
			c.metrics.RecordLatency("store_query", time.Since(queryStart).Seconds())
		}
		if err == nil {
			data, err = c.preparer.Prepare(tick, base, due)
		}
		if err != nil {
			return nil, len(due), fmt.Errorf("prepare data: %w", err)
		}
	}

	results := c.executor.Execute(ctx, tick, due, reg, data)
	batch := c.aggregator.Aggregate(tick, results)

	c.l.Info("cycle complete",
		applogger.Time("instant", instant),
		applogger.Int("due", len(due)),
		applogger.Int("recommendations", len(batch.Recommendations)),
		applogger.Int("failures", len(batch.Failures)),
	)

	if batch.Empty() && !c.publishEmpty {
		return batch, 0, nil
	}
	if c.sink != nil {
		if err := c.sink.Publish(ctx, batch); err != nil {
			return batch, len(due), fmt.Errorf("publish batch %s: %w", batch.ID, err)
		}
	}
	return batch, len(due), nil
}

func (c *TickCycle) record(err error, due int, took time.Duration) {
	outcome := "ok"
	var invalid *models.InvalidInstantError
	var integrity *models.DataIntegrityError
	switch {
	case err == nil:
	case errors.As(err, &invalid):
		outcome = "invalid_instant"
	case errors.As(err, &integrity):
		outcome = "data_integrity"
	case errors.Is(err, models.ErrCycleClaimed):
		outcome = "claimed"
	default:
		outcome = "error"
	}
	if err != nil && outcome != "claimed" {
		c.l.Error("cycle failed", applogger.String("outcome", outcome), applogger.Error(err))
	}
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCycle(outcome, due, took.Seconds())
	if err != nil && outcome != "claimed" {
		c.metrics.RecordError("cycle_" + outcome)
	}
}
