package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/pkg/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch(at time.Time) *models.RecommendationBatch {
	return &models.RecommendationBatch{
		ID:        uuid.New(),
		Symbol:    "BTCUSDT",
		CycleTime: at,
		Recommendations: []models.StrategyRecommendation{{
			StrategyID:    "st_1h",
			Timestamp:     at,
			Signal:        models.SignalLong,
			Confidence:    0.8,
			SchemaVersion: models.RecommendationSchemaVersion,
			Extensions:    map[string]any{"atr": 12.5},
		}},
		Failures: []models.StrategyFailure{{StrategyID: "vol_4h", Kind: models.FailureTimeout, Reason: "slow"}},
	}
}

func TestCacheBatchStore_PublishAndRead(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCacheBatchStore(mc, "BTCUSDT", time.Hour)

	first := sampleBatch(t0)
	second := sampleBatch(t0.Add(time.Hour))
	require.NoError(t, s.Publish(ctx, first))
	require.NoError(t, s.Publish(ctx, second))

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	got, err := s.ByCycle(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.True(t, got.CycleTime.Equal(t0))
	require.Len(t, got.Recommendations, 1)
	assert.Equal(t, models.SignalLong, got.Recommendations[0].Signal)
	assert.Equal(t, 12.5, got.Recommendations[0].Extensions["atr"])
	assert.Equal(t, models.FailureTimeout, got.Failures[0].Kind)

	_, err = s.ByCycle(ctx, t0.Add(-time.Hour))
	assert.ErrorIs(t, err, models.ErrBatchNotFound)
}

type recordingSink struct {
	got []*models.RecommendationBatch
	err error
}

func (r *recordingSink) Publish(_ context.Context, b *models.RecommendationBatch) error {
	r.got = append(r.got, b)
	return r.err
}

func (r *recordingSink) Close() error { return nil }

func TestMultiSink_PublishesToAll(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingSink{}
	b := &recordingSink{err: boom}
	c := &recordingSink{}

	err := MultiSink{a, b, c}.Publish(context.Background(), sampleBatch(t0))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, c.got, 1)
}
