package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
)

// MemoryCandleStore keeps the base series in a sorted slice.
type MemoryCandleStore struct {
	mu      sync.RWMutex
	candles []models.Candle
	now     func() time.Time
}

type MemoryOption func(*MemoryCandleStore)

// WithClock overrides the clock used for retention pruning.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryCandleStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryCandleStore(opts ...MemoryOption) *MemoryCandleStore {
	s := &MemoryCandleStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryCandleStore) AppendOrUpdate(_ context.Context, c models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(c)
	return nil
}

func (s *MemoryCandleStore) AppendOrUpdateBatch(_ context.Context, cs []models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cs {
		s.upsert(c)
	}
	return nil
}

// upsert keeps candles ordered by timestamp. Caller holds the lock.
func (s *MemoryCandleStore) upsert(c models.Candle) {
	c.Timestamp = c.Timestamp.UTC()
	n := len(s.candles)
	if n == 0 || s.candles[n-1].Timestamp.Before(c.Timestamp) {
		s.candles = append(s.candles, c)
		return
	}
	i := sort.Search(n, func(i int) bool { return !s.candles[i].Timestamp.Before(c.Timestamp) })
	if i < n && s.candles[i].Timestamp.Equal(c.Timestamp) {
		s.candles[i] = c
		return
	}
	s.candles = append(s.candles, models.Candle{})
	copy(s.candles[i+1:], s.candles[i:])
	s.candles[i] = c
}

func (s *MemoryCandleStore) QueryRange(_ context.Context, start, end time.Time) ([]models.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.Search(len(s.candles), func(i int) bool { return !s.candles[i].Timestamp.Before(start) })
	hi := sort.Search(len(s.candles), func(i int) bool { return s.candles[i].Timestamp.After(end) })
	if lo >= hi {
		return []models.Candle{}, nil
	}
	out := make([]models.Candle, hi-lo)
	copy(out, s.candles[lo:hi])
	return out, nil
}

func (s *MemoryCandleStore) PruneOlderThan(_ context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-retention)
	i := sort.Search(len(s.candles), func(i int) bool { return !s.candles[i].Timestamp.Before(cutoff) })
	if i == 0 {
		return 0, nil
	}
	s.candles = append([]models.Candle(nil), s.candles[i:]...)
	return int64(i), nil
}

func (s *MemoryCandleStore) Latest(_ context.Context) (models.Candle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.candles) == 0 {
		return models.Candle{}, false, nil
	}
	return s.candles[len(s.candles)-1], true, nil
}

func (s *MemoryCandleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candles)
}

func (s *MemoryCandleStore) Close() error { return nil }

var _ domrepo.CandleStore = (*MemoryCandleStore)(nil)
