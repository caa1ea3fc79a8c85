package usecase

import (
	"context"
	"fmt"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	"StratTick/internal/services/features"
	applogger "StratTick/pkg/logger"
)

// CandleSync keeps the candle store current: REST backfill on start, then
// closed candles from the live stream, with periodic retention pruning.
type CandleSync struct {
	store     domrepo.CandleStore
	source    domrepo.KlineSource
	stream    domrepo.CandleStream
	gate      *CycleGate
	metrics   domrepo.Metrics
	l         *applogger.Logger
	symbol    string
	base      models.Timeframe
	retention time.Duration
	backfill  time.Duration
	pageLimit int
	now       func() time.Time
}

type SyncOption func(*CandleSync)

func WithSyncSource(src domrepo.KlineSource) SyncOption {
	return func(s *CandleSync) { s.source = src }
}

func WithSyncStream(st domrepo.CandleStream) SyncOption {
	return func(s *CandleSync) { s.stream = st }
}

func WithSyncGate(g *CycleGate) SyncOption {
	return func(s *CandleSync) {
		if g != nil {
			s.gate = g
		}
	}
}

func WithSyncMetrics(m domrepo.Metrics) SyncOption {
	return func(s *CandleSync) { s.metrics = m }
}

func WithSyncLogger(l *applogger.Logger) SyncOption {
	return func(s *CandleSync) {
		if l != nil {
			s.l = l
		}
	}
}

// WithRetention prunes candles older than d after each closed candle. Zero disables pruning.
func WithRetention(d time.Duration) SyncOption {
	return func(s *CandleSync) { s.retention = d }
}

// WithBackfillWindow sets how far back an empty store is filled.
func WithBackfillWindow(d time.Duration) SyncOption {
	return func(s *CandleSync) {
		if d > 0 {
			s.backfill = d
		}
	}
}

func NewCandleSync(store domrepo.CandleStore, symbol string, base models.Timeframe, opts ...SyncOption) *CandleSync {
	s := &CandleSync{
		store:     store,
		symbol:    symbol,
		base:      base,
		gate:      NewCycleGate(),
		l:         applogger.Nop(),
		backfill:  7 * 24 * time.Hour,
		pageLimit: 1000,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backfill pages closed candles from the kline source into the store,
// starting after the latest stored candle. It returns the number written.
func (s *CandleSync) Backfill(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, nil
	}
	step := s.base.Duration()
	end := features.NextBoundary(s.now(), step).Add(-step)

	start := end.Add(-s.backfill)
	latest, ok, err := s.store.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest candle: %w", err)
	}
	if ok && latest.Timestamp.After(start) {
		start = latest.Timestamp.Add(step)
	}

	total := 0
	for start.Before(end) || start.Equal(end) {
		page, err := s.source.Klines(ctx, s.base, start, end, s.pageLimit)
		if err != nil {
			return total, fmt.Errorf("fetch klines from %s: %w", start.Format(time.RFC3339), err)
		}
		closed := page[:0]
		for _, c := range page {
			if !c.Timestamp.After(end) {
				closed = append(closed, c)
			}
		}
		if len(closed) == 0 {
			break
		}
		if err := s.write(ctx, closed); err != nil {
			return total, err
		}
		total += len(closed)
		next := closed[len(closed)-1].Timestamp.Add(step)
		if !next.After(start) {
			break
		}
		start = next
	}
	s.l.Info("backfill complete",
		applogger.String("symbol", s.symbol),
		applogger.String("timeframe", s.base.String()),
		applogger.Int("candles", total),
	)
	return total, nil
}

// Start backfills and then consumes the stream until ctx is done.
func (s *CandleSync) Start(ctx context.Context) error {
	if _, err := s.Backfill(ctx); err != nil {
		s.l.Error("backfill failed", applogger.Error(err))
	}
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Connect(ctx); err != nil {
		return err
	}
	updates, errs := s.stream.Read(ctx)
	go s.consume(ctx, updates, errs)
	return nil
}

func (s *CandleSync) consume(ctx context.Context, updates <-chan models.CandleUpdate, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			s.l.Warn("candle stream error", applogger.Error(err))
			if s.metrics != nil {
				s.metrics.RecordError("stream")
			}
			if !s.reconnect(ctx) {
				return
			}
			updates, errs = s.stream.Read(ctx)
		case u, ok := <-updates:
			if !ok {
				// The reader reports why on errs.
				updates = nil
				continue
			}
			if err := s.Apply(ctx, u); err != nil {
				s.l.Error("apply candle update", applogger.Error(err))
			}
		}
	}
}

// reconnect retries until the stream is back or ctx is done. Candles missed
// while disconnected are fetched again through Backfill.
func (s *CandleSync) reconnect(ctx context.Context) bool {
	for ctx.Err() == nil {
		if err := s.stream.Reconnect(ctx); err != nil {
			s.l.Error("candle stream reconnect failed", applogger.Error(err))
			continue
		}
		if _, err := s.Backfill(ctx); err != nil {
			s.l.Warn("gap backfill failed", applogger.Error(err))
		}
		return true
	}
	return false
}

// Apply writes a closed candle update and prunes expired history. Open
// candles are ignored so the store only holds final bars.
func (s *CandleSync) Apply(ctx context.Context, u models.CandleUpdate) error {
	if u.Symbol != "" && u.Symbol != s.symbol {
		return fmt.Errorf("candle for %s on %s sync", u.Symbol, s.symbol)
	}
	if s.metrics != nil {
		s.metrics.RecordLastPrice(s.symbol, u.Candle.Close)
	}
	if !u.Closed {
		return nil
	}
	if err := s.write(ctx, []models.Candle{u.Candle}); err != nil {
		return err
	}
	return s.prune(ctx)
}

// prune holds the gate like write so no cycle sees rows disappear.
func (s *CandleSync) prune(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	s.gate.Lock()
	n, err := s.store.PruneOlderThan(ctx, s.retention)
	s.gate.Unlock()
	if err != nil {
		return fmt.Errorf("prune candles: %w", err)
	}
	if n > 0 {
		s.l.Debug("pruned candles", applogger.Int64("count", n))
	}
	return nil
}

func (s *CandleSync) write(ctx context.Context, cs []models.Candle) error {
	start := time.Now()
	s.gate.Lock()
	err := s.store.AppendOrUpdateBatch(ctx, cs)
	s.gate.Unlock()
	if s.metrics != nil {
		s.metrics.RecordLatency("candle_write_seconds", time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("candle_write")
		}
		return fmt.Errorf("store candles: %w", err)
	}
	return nil
}

// Stop closes the live stream.
func (s *CandleSync) Stop() error {
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}
