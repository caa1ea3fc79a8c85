package features

import (
	"errors"
	"testing"
	"time"

	"StratTick/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(end time.Time, n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		ts := end.Add(-time.Duration(n-1-i) * time.Hour)
		p := float64(100 + i)
		out[i] = models.Candle{Timestamp: ts, Open: p, High: p + 2, Low: p - 1, Close: p + 1, Volume: 10}
	}
	return out
}

func TestResampleIdempotentAtSameTimeframe(t *testing.T) {
	base := hourly(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), 48)

	once := Resample(base, time.Hour)
	assert.Equal(t, base, once)
	assert.Equal(t, once, Resample(once, time.Hour))

	four := Resample(base, 4*time.Hour)
	assert.Equal(t, four, Resample(four, 4*time.Hour))
}

func TestResampleFourHourAggregation(t *testing.T) {
	// 01:00..08:00 labels: windows (00:00,04:00] and (04:00,08:00]
	end := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	base := hourly(end, 8)

	got := Resample(base, 4*time.Hour)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, time.Date(2024, 1, 5, 4, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, base[0].Open, first.Open)
	assert.Equal(t, base[3].High, first.High)
	assert.Equal(t, base[0].Low, first.Low)
	assert.Equal(t, base[3].Close, first.Close)
	assert.Equal(t, 40.0, first.Volume)

	assert.Equal(t, end, got[1].Timestamp)
	assert.Equal(t, base[4].Open, got[1].Open)
	assert.Equal(t, base[7].Close, got[1].Close)
}

func TestResampleKeepsPartialLeadingBucket(t *testing.T) {
	end := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	base := hourly(end, 6) // 03:00..08:00

	got := Resample(base, 4*time.Hour)
	require.Len(t, got, 2)
	assert.Equal(t, 20.0, got[0].Volume)
	assert.Equal(t, 40.0, got[1].Volume)
}

func TestResampleDoesNotMutateInput(t *testing.T) {
	base := hourly(time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), 8)
	before := Clone(base)
	_ = Resample(base, 2*time.Hour)
	assert.Equal(t, before, base)
}

func TestTrimNeverExceedsBars(t *testing.T) {
	base := hourly(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), 10)

	for bars := 0; bars <= 15; bars++ {
		got := Trim(base, bars)
		want := bars
		if want > len(base) {
			want = len(base)
		}
		require.Len(t, got, want, "bars=%d", bars)
		if want > 0 {
			assert.Equal(t, base[len(base)-1], got[len(got)-1])
		}
	}
}

func TestValidateSeries(t *testing.T) {
	end := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ValidateSeries(nil, time.Hour))
	require.NoError(t, ValidateSeries(hourly(end, 5), time.Hour))

	cases := map[string]func([]models.Candle){
		"gap":          func(cs []models.Candle) { cs[3].Timestamp = cs[3].Timestamp.Add(time.Hour) },
		"out_of_order": func(cs []models.Candle) { cs[2], cs[3] = cs[3], cs[2] },
		"duplicate":    func(cs []models.Candle) { cs[3].Timestamp = cs[2].Timestamp },
		"misaligned":   func(cs []models.Candle) { cs[0].Timestamp = cs[0].Timestamp.Add(-time.Minute) },
		"negative":     func(cs []models.Candle) { cs[1].Volume = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cs := hourly(end, 5)
			mutate(cs)
			err := ValidateSeries(cs, time.Hour)
			var integrity *models.DataIntegrityError
			require.True(t, errors.As(err, &integrity), "got %v", err)
		})
	}
}

func TestBoundaries(t *testing.T) {
	at := time.Date(2024, 1, 5, 12, 17, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC), NextBoundary(at, time.Hour))
	assert.Equal(t, time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC), NextBoundary(at, 4*time.Hour))
	assert.Equal(t, time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC), NextBoundary(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), time.Hour))

	assert.Equal(t, time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC), BucketLabel(at, 4*time.Hour))
	assert.True(t, IsAligned(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 24*time.Hour))
	assert.False(t, IsAligned(at, time.Minute*5))
}
