package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource serves synthetic hourly klines and records each request.
type pagedSource struct {
	requests []time.Time
}

func (p *pagedSource) Klines(_ context.Context, tf models.Timeframe, start, end time.Time, limit int) ([]models.Candle, error) {
	p.requests = append(p.requests, start)
	step := tf.Duration()
	out := []models.Candle{}
	for ts := start; !ts.After(end) && len(out) < limit; ts = ts.Add(step) {
		out = append(out, models.Candle{Timestamp: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3})
	}
	return out, nil
}

func TestCandleSync_BackfillPaginates(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore()
	src := &pagedSource{}
	now := time.Date(2024, 1, 5, 12, 30, 0, 0, time.UTC)

	s := NewCandleSync(store, "BTCUSDT", models.TF1h, WithSyncSource(src), WithBackfillWindow(10*time.Hour))
	s.pageLimit = 4
	s.now = func() time.Time { return now }

	n, err := s.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Len(t, src.requests, 3)
	assert.Equal(t, 11, store.Len())

	last, ok, err := store.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), last.Timestamp)

	n, err = s.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCandleSync_ApplyClosedOnly(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore()
	s := NewCandleSync(store, "BTCUSDT", models.TF1h)

	c := models.Candle{Timestamp: scenarioInstant, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	require.NoError(t, s.Apply(ctx, models.CandleUpdate{Symbol: "BTCUSDT", Candle: c}))
	assert.Equal(t, 0, store.Len())

	require.NoError(t, s.Apply(ctx, models.CandleUpdate{Symbol: "BTCUSDT", Candle: c, Closed: true}))
	assert.Equal(t, 1, store.Len())

	assert.Error(t, s.Apply(ctx, models.CandleUpdate{Symbol: "ETHUSDT", Candle: c, Closed: true}))
}

func TestCandleSync_ApplyPrunes(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore(repository.WithClock(func() time.Time { return scenarioInstant }))
	require.NoError(t, store.AppendOrUpdateBatch(ctx, hourlySeries(scenarioInstant.Add(-time.Hour), 48)))

	s := NewCandleSync(store, "BTCUSDT", models.TF1h, WithRetention(24*time.Hour))
	c := models.Candle{Timestamp: scenarioInstant, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	require.NoError(t, s.Apply(ctx, models.CandleUpdate{Symbol: "BTCUSDT", Candle: c, Closed: true}))

	got, err := store.QueryRange(ctx, time.Time{}, scenarioInstant)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, scenarioInstant.Add(-24*time.Hour), got[0].Timestamp)
}

func TestCandleSync_WritesWaitForGate(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore()
	gate := NewCycleGate()
	s := NewCandleSync(store, "BTCUSDT", models.TF1h, WithSyncGate(gate))

	gate.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c := models.Candle{Timestamp: scenarioInstant, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
		_ = s.Apply(ctx, models.CandleUpdate{Candle: c, Closed: true})
	}()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, store.Len())
	gate.Unlock()

	<-done
	assert.Equal(t, 1, store.Len())
}

// gateCheckingStore records whether the cycle gate was held during a prune.
type gateCheckingStore struct {
	*repository.MemoryCandleStore
	gate       *CycleGate
	pruneGated []bool
}

func (g *gateCheckingStore) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	free := g.gate.mu.TryLock()
	if free {
		g.gate.mu.Unlock()
	}
	g.pruneGated = append(g.pruneGated, !free)
	return g.MemoryCandleStore.PruneOlderThan(ctx, retention)
}

func TestCandleSync_PruneHoldsGate(t *testing.T) {
	gate := NewCycleGate()
	store := &gateCheckingStore{MemoryCandleStore: repository.NewMemoryCandleStore(), gate: gate}
	s := NewCandleSync(store, "BTCUSDT", models.TF1h, WithSyncGate(gate), WithRetention(24*time.Hour))

	c := models.Candle{Timestamp: scenarioInstant, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	require.NoError(t, s.Apply(context.Background(), models.CandleUpdate{Symbol: "BTCUSDT", Candle: c, Closed: true}))
	assert.Equal(t, []bool{true}, store.pruneGated)
}

type priceRecorder struct {
	prices map[string]float64
}

func (p *priceRecorder) RecordCycle(string, int, float64)             {}
func (p *priceRecorder) RecordStrategyRun(string, string, float64)    {}
func (p *priceRecorder) RecordError(string)                           {}
func (p *priceRecorder) RecordLatency(string, float64)                {}
func (p *priceRecorder) RecordLastPrice(symbol string, price float64) { p.prices[symbol] = price }

func TestCandleSync_ForeignSymbolLeavesPriceAlone(t *testing.T) {
	rec := &priceRecorder{prices: map[string]float64{}}
	s := NewCandleSync(repository.NewMemoryCandleStore(), "BTCUSDT", models.TF1h, WithSyncMetrics(rec))

	c := models.Candle{Timestamp: scenarioInstant, Open: 1, High: 1, Low: 1, Close: 3000, Volume: 1}
	assert.Error(t, s.Apply(context.Background(), models.CandleUpdate{Symbol: "ETHUSDT", Candle: c}))
	assert.Empty(t, rec.prices)

	c.Close = 42000
	require.NoError(t, s.Apply(context.Background(), models.CandleUpdate{Symbol: "BTCUSDT", Candle: c}))
	assert.Equal(t, map[string]float64{"BTCUSDT": 42000}, rec.prices)
}

func TestKafkaCandlesHandler_Handle(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore()
	h := NewKafkaCandlesHandler("candles.BTCUSDT", NewCandleSync(store, "BTCUSDT", models.TF1h))
	assert.Equal(t, "candles.BTCUSDT", h.Topic())

	msg, err := json.Marshal(models.CandleUpdate{
		Symbol: "BTCUSDT",
		Candle: models.Candle{Timestamp: scenarioInstant, Open: 1, High: 2, Low: 1, Close: 2, Volume: 5},
		Closed: true,
	})
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, msg))

	last, ok, err := store.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, scenarioInstant, last.Timestamp)
	assert.Equal(t, time.UTC, last.Timestamp.Location())

	assert.Error(t, h.Handle(ctx, []byte("{not json")))
}
