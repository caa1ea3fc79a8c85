package features

import (
	"fmt"
	"time"

	"StratTick/internal/domain/models"
)

// floorMod returns ns mod d in [0, d).
func floorMod(ns int64, d time.Duration) int64 {
	m := ns % int64(d)
	if m < 0 {
		m += int64(d)
	}
	return m
}

// IsAligned reports whether t falls exactly on a multiple of d since the Unix epoch.
func IsAligned(t time.Time, d time.Duration) bool {
	return d > 0 && floorMod(t.UnixNano(), d) == 0
}

// BucketLabel returns the close label of the d-window containing a candle
// labelled ts: windows are [L-d, L) and labelled L.
func BucketLabel(ts time.Time, d time.Duration) time.Time {
	ns := ts.UnixNano()
	r := floorMod(ns, d)
	if r == 0 {
		return ts.UTC()
	}
	return time.Unix(0, ns-r+int64(d)).UTC()
}

// NextBoundary returns the first multiple of d strictly after t.
func NextBoundary(t time.Time, d time.Duration) time.Time {
	ns := t.UnixNano()
	return time.Unix(0, ns-floorMod(ns, d)+int64(d)).UTC()
}

// ValidateSeries checks that candles form a contiguous ascending series at
// granularity base.
func ValidateSeries(candles []models.Candle, base time.Duration) error {
	for i, c := range candles {
		if !IsAligned(c.Timestamp, base) {
			return &models.DataIntegrityError{Index: i, Timestamp: c.Timestamp, Reason: fmt.Sprintf("not aligned to %s", base)}
		}
		if c.Volume < 0 {
			return &models.DataIntegrityError{Index: i, Timestamp: c.Timestamp, Reason: "negative volume"}
		}
		if c.High < c.Low {
			return &models.DataIntegrityError{Index: i, Timestamp: c.Timestamp, Reason: "high below low"}
		}
		if i == 0 {
			continue
		}
		delta := c.Timestamp.Sub(candles[i-1].Timestamp)
		switch {
		case delta <= 0:
			return &models.DataIntegrityError{Index: i, Timestamp: c.Timestamp, Reason: "timestamps not strictly increasing"}
		case delta != base:
			return &models.DataIntegrityError{Index: i, Timestamp: c.Timestamp, Reason: fmt.Sprintf("gap of %s", delta)}
		}
	}
	return nil
}

// Resample aggregates an ascending, validated series into tf windows aligned
// to the Unix epoch (closed-left, label-right). Open is the first open, high
// the max, low the min, close the last close and volume the sum.
func Resample(candles []models.Candle, tf time.Duration) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		label := BucketLabel(c.Timestamp, tf)
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(label) {
			b := &out[n-1]
			if c.High > b.High {
				b.High = c.High
			}
			if c.Low < b.Low {
				b.Low = c.Low
			}
			b.Close = c.Close
			b.Volume += c.Volume
			continue
		}
		out = append(out, models.Candle{
			Timestamp: label,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	return out
}

// Trim returns at most the last bars rows of candles.
func Trim(candles []models.Candle, bars int) []models.Candle {
	if bars <= 0 {
		return candles[:0]
	}
	if len(candles) <= bars {
		return candles
	}
	return candles[len(candles)-bars:]
}

// Clone copies candles into a new backing array.
func Clone(candles []models.Candle) []models.Candle {
	out := make([]models.Candle, len(candles))
	copy(out, candles)
	return out
}
