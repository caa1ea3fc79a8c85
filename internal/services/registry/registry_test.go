package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type holdBuilder struct{ built []string }

func (b *holdBuilder) Build(spec models.StrategySpec) (service.Strategy, error) {
	if spec.Kind == "missing" {
		return nil, fmt.Errorf("unknown kind %q", spec.Kind)
	}
	b.built = append(b.built, spec.ID)
	return service.StrategyFunc(func(_ context.Context, _ []models.Candle, instant time.Time) (models.StrategyRecommendation, error) {
		return models.StrategyRecommendation{StrategyID: spec.ID, Timestamp: instant, Signal: models.SignalHold}, nil
	}), nil
}

const doc = `
strategies:
  - id: trend_4h
    kind: supertrend
    timeframe: 4h
    lookback_hours: 400
    min_candles_required: 100
    params:
      m1: 4
  - id: breakout_1h
    kind: volatility_system
    lookback_hours: 66
  - id: parked
    kind: missing
    timeframe: 1d
    lookback_hours: 24
    enabled: false
`

func TestParsePreservesOrderAndDefaults(t *testing.T) {
	b := &holdBuilder{}
	r, err := Parse([]byte(doc), time.Hour, b)
	require.NoError(t, err)

	specs := r.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, []string{"trend_4h", "breakout_1h", "parked"}, []string{specs[0].ID, specs[1].ID, specs[2].ID})
	assert.Equal(t, models.TF1h, specs[1].Timeframe)
	assert.True(t, specs[1].Enabled)
	assert.False(t, specs[2].Enabled)
	assert.Equal(t, 4.0, specs[0].Param("m1", 0))
	assert.Equal(t, []string{"trend_4h", "breakout_1h"}, b.built)
	assert.Equal(t, 2, r.EnabledCount())

	_, ok := r.Strategy("parked")
	assert.False(t, ok)
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"missing id":  "strategies:\n  - kind: x\n    lookback_hours: 1\n",
		"bad tf":      "strategies:\n  - id: a\n    kind: x\n    timeframe: 7m\n    lookback_hours: 1\n",
		"no lookback": "strategies:\n  - id: a\n    kind: x\n",
		"duplicate":   "strategies:\n  - id: a\n    kind: x\n    lookback_hours: 1\n  - id: a\n    kind: x\n    lookback_hours: 1\n",
		"unbuildable": "strategies:\n  - id: a\n    kind: missing\n    lookback_hours: 1\n",
		"below base":  "strategies:\n  - id: a\n    kind: x\n    timeframe: 30m\n    lookback_hours: 1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body), time.Hour, &holdBuilder{})
			require.Error(t, err)
		})
	}
}

func TestSpecsAreCopies(t *testing.T) {
	r, err := Parse([]byte(doc), time.Hour, &holdBuilder{})
	require.NoError(t, err)

	specs := r.Specs()
	specs[0].Params["m1"] = 99
	specs[0].ID = "changed"

	again, ok := r.Spec("trend_4h")
	require.True(t, ok)
	assert.Equal(t, 4.0, again.Params["m1"])
}

func TestHolderReloadSwapsWholeRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	h, err := NewFileHolder(path, time.Hour, &holdBuilder{}, nil)
	require.NoError(t, err)
	snapshot := h.Current()
	require.Equal(t, 3, snapshot.Len())

	require.NoError(t, os.WriteFile(path, []byte("strategies:\n  - id: only\n    kind: x\n    lookback_hours: 2\n"), 0o644))
	next, err := h.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, next.Len())
	assert.Same(t, next, h.Current())
	assert.Equal(t, 3, snapshot.Len())

	require.NoError(t, os.WriteFile(path, []byte("strategies: ["), 0o644))
	_, err = h.Reload()
	require.Error(t, err)
	assert.Same(t, next, h.Current())
}

func TestFixedHolderCannotReload(t *testing.T) {
	r, err := New(time.Hour, nil, nil)
	require.NoError(t, err)
	h := NewHolder(r)
	_, err = h.Reload()
	require.Error(t, err)
}
