package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	"StratTick/pkg/cache"
)

// CacheBatchStore keeps recent batches in the cache service so the HTTP API
// can serve them. Batches expire after ttl.
type CacheBatchStore struct {
	cache  cache.Service
	symbol string
	ttl    time.Duration
}

func NewCacheBatchStore(c cache.Service, symbol string, ttl time.Duration) *CacheBatchStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CacheBatchStore{cache: c, symbol: symbol, ttl: ttl}
}

func (s *CacheBatchStore) Publish(ctx context.Context, b *models.RecommendationBatch) error {
	if err := s.cache.Set(ctx, s.cycleKey(b.CycleTime), b, s.ttl); err != nil {
		return fmt.Errorf("cache batch: %w", err)
	}
	if err := s.cache.Set(ctx, s.latestKey(), b, s.ttl); err != nil {
		return fmt.Errorf("cache latest batch: %w", err)
	}
	return nil
}

func (s *CacheBatchStore) Latest(ctx context.Context) (*models.RecommendationBatch, error) {
	return s.get(ctx, s.latestKey())
}

func (s *CacheBatchStore) ByCycle(ctx context.Context, at time.Time) (*models.RecommendationBatch, error) {
	return s.get(ctx, s.cycleKey(at))
}

func (s *CacheBatchStore) get(ctx context.Context, key string) (*models.RecommendationBatch, error) {
	var b models.RecommendationBatch
	if err := s.cache.Get(ctx, key, &b); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, models.ErrBatchNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *CacheBatchStore) Close() error { return nil }

func (s *CacheBatchStore) cycleKey(at time.Time) string {
	return cache.GenerateKey("batch:"+s.symbol, strconv.FormatInt(at.UTC().Unix(), 10))
}

func (s *CacheBatchStore) latestKey() string {
	return cache.GenerateKey("batch:"+s.symbol, "latest")
}

var (
	_ domrepo.BatchSink   = (*CacheBatchStore)(nil)
	_ domrepo.BatchReader = (*CacheBatchStore)(nil)
)
