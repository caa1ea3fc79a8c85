package usecase

import (
	"context"
	"sync"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/domain/service"
)

func hourlySeries(end time.Time, n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		px := 100 + float64(i)
		out[i] = models.Candle{
			Timestamp: end.Add(-time.Duration(n-1-i) * time.Hour),
			Open:      px,
			High:      px + 1,
			Low:       px - 1,
			Close:     px + 0.5,
			Volume:    10,
		}
	}
	return out
}

func spec(id string, tf models.Timeframe, lookback int) models.StrategySpec {
	return models.StrategySpec{ID: id, Kind: "test", Timeframe: tf, LookbackHours: lookback, Enabled: true}
}

type lookupMap map[string]service.Strategy

func (m lookupMap) Strategy(id string) (service.Strategy, bool) {
	s, ok := m[id]
	return s, ok
}

// holdStrategy returns HOLD and remembers how many rows it received.
type holdStrategy struct {
	mu   sync.Mutex
	rows []int
	last []models.Candle
}

func (h *holdStrategy) Run(_ context.Context, candles []models.Candle, instant time.Time) (models.StrategyRecommendation, error) {
	h.mu.Lock()
	h.rows = append(h.rows, len(candles))
	h.last = candles
	h.mu.Unlock()
	return models.StrategyRecommendation{Timestamp: instant, Signal: models.SignalHold, Confidence: 0.5}, nil
}

func (h *holdStrategy) calls() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.rows...)
}

func signalStrategy(sig models.Signal, delay time.Duration) service.Strategy {
	return service.StrategyFunc(func(ctx context.Context, _ []models.Candle, instant time.Time) (models.StrategyRecommendation, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return models.StrategyRecommendation{}, ctx.Err()
		}
		return models.StrategyRecommendation{Timestamp: instant, Signal: sig, Confidence: 1}, nil
	})
}

type captureSink struct {
	mu      sync.Mutex
	batches []*models.RecommendationBatch
	err     error
}

func (c *captureSink) Publish(_ context.Context, b *models.RecommendationBatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, b)
	return c.err
}

func (c *captureSink) Close() error { return nil }

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}
