package repository

import (
	"context"
	"time"

	"StratTick/internal/domain/models"
)

// CandleStore is the narrow contract over the canonical base series of one symbol.
type CandleStore interface {
	// AppendOrUpdate inserts c or replaces the candle with the same timestamp.
	AppendOrUpdate(ctx context.Context, c models.Candle) error
	AppendOrUpdateBatch(ctx context.Context, cs []models.Candle) error
	// QueryRange returns candles with start <= timestamp <= end, ascending.
	QueryRange(ctx context.Context, start, end time.Time) ([]models.Candle, error)
	// PruneOlderThan drops candles older than now-retention.
	PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error)
	Latest(ctx context.Context) (models.Candle, bool, error)
	Close() error
}

// CandleStream pushes live candle updates from an exchange.
type CandleStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.CandleUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// KlineSource fetches historical candles for backfill.
type KlineSource interface {
	Klines(ctx context.Context, tf models.Timeframe, start, end time.Time, limit int) ([]models.Candle, error)
}

// BatchSink receives one recommendation batch per cycle.
type BatchSink interface {
	Publish(ctx context.Context, b *models.RecommendationBatch) error
	Close() error
}

// BatchReader serves recently published batches.
type BatchReader interface {
	Latest(ctx context.Context) (*models.RecommendationBatch, error)
	ByCycle(ctx context.Context, at time.Time) (*models.RecommendationBatch, error)
}

// Locker claims a key for a bounded time across replicas.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Metrics interface {
	RecordCycle(outcome string, due int, seconds float64)
	RecordStrategyRun(strategyID, outcome string, seconds float64)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
