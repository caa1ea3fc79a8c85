package usecase

import (
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/services/features"
)

// DataPreparer turns the base series into one trimmed window per due strategy.
type DataPreparer struct {
	base     time.Duration
	resample func([]models.Candle, time.Duration) []models.Candle
}

func NewDataPreparer(base time.Duration) *DataPreparer {
	return &DataPreparer{base: base, resample: features.Resample}
}

// Window returns the inclusive base-series range covering every due spec's lookback.
func (p *DataPreparer) Window(instant time.Time, due []models.StrategySpec) (time.Time, time.Time) {
	var span time.Duration
	for _, s := range due {
		if d := time.Duration(s.Bars()) * s.Timeframe.Duration(); d > span {
			span = d
		}
	}
	if span < p.base {
		span = p.base
	}
	return instant.Add(-span + p.base), instant
}

// Prepare validates base once, resamples it at most once per distinct
// timeframe and hands each spec its own copy of the last Bars() rows.
// Rows after the tick instant are ignored. An empty base gives empty slices.
func (p *DataPreparer) Prepare(tick models.TickContext, base []models.Candle, due []models.StrategySpec) (models.PreparedDataMap, error) {
	out := make(models.PreparedDataMap, len(due))
	if len(due) == 0 {
		return out, nil
	}

	end := len(base)
	for end > 0 && base[end-1].Timestamp.After(tick.Instant) {
		end--
	}
	base = base[:end]
	if err := features.ValidateSeries(base, p.base); err != nil {
		return nil, err
	}

	memo := make(map[time.Duration][]models.Candle)
	for _, s := range due {
		if len(base) == 0 {
			out[s.ID] = []models.Candle{}
			continue
		}
		tf := s.Timeframe.Duration()
		series, ok := memo[tf]
		if !ok {
			series = p.resample(base, tf)
			memo[tf] = series
		}
		out[s.ID] = features.Clone(features.Trim(series, s.Bars()))
	}
	return out, nil
}
