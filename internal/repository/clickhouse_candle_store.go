package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	pkgch "StratTick/pkg/clickhouse"
	applogger "StratTick/pkg/logger"
)

// CHCandleStore implements CandleStore backed by ClickHouse. Rows are
// deduplicated by ReplacingMergeTree on (symbol, time) and read with FINAL,
// so a re-sent candle replaces the previous version.
type CHCandleStore struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	symbol string
	l      *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table, symbol string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{client: ch, db: ch.DB(), table: table, symbol: symbol, l: l}
}

// CHCandleSchema returns the DDL for the candle table.
func CHCandleSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol     LowCardinality(String),
            time       DateTime64(3, 'UTC'),
            open       Float64,
            high       Float64,
            low        Float64,
            close      Float64,
            volume     Float64,
            updated_at DateTime64(3, 'UTC') DEFAULT now64(3)
        )
        ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (symbol, time)
    `, table)}
}

func (s *CHCandleStore) AppendOrUpdate(ctx context.Context, c models.Candle) error {
	return s.AppendOrUpdateBatch(ctx, []models.Candle{c})
}

func (s *CHCandleStore) AppendOrUpdateBatch(ctx context.Context, cs []models.Candle) error {
	if len(cs) == 0 {
		return nil
	}
	const chunkSize = 1000
	now := time.Now().UTC()
	for start := 0; start < len(cs); start += chunkSize {
		end := start + chunkSize
		if end > len(cs) {
			end = len(cs)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, c := range cs[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, s.symbol, c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume, now)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, time, open, high, low, close, volume, updated_at) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert candles", applogger.String("table", s.table), applogger.Int("rows", end-start), applogger.Error(err))
			return fmt.Errorf("insert candles: %w", err)
		}
	}
	return nil
}

func (s *CHCandleStore) QueryRange(ctx context.Context, start, end time.Time) ([]models.Candle, error) {
	begin := time.Now()
	q := fmt.Sprintf(`
        SELECT time, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND time >= ? AND time <= ?
        ORDER BY time ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, s.symbol, start.UTC(), end.UTC())
	if err != nil {
		s.l.Error("clickhouse query_range error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	s.l.Debug("clickhouse query_range ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration", time.Since(begin)),
	)
	return out, nil
}

func (s *CHCandleStore) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	var n int64
	q := fmt.Sprintf("SELECT count() FROM %s FINAL WHERE symbol = ? AND time < ?", s.table)
	if err := s.db.QueryRowContext(ctx, q, s.symbol, cutoff).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expired candles: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	del := fmt.Sprintf("ALTER TABLE %s DELETE WHERE symbol = ? AND time < ?", s.table)
	if _, err := s.db.ExecContext(ctx, del, s.symbol, cutoff); err != nil {
		return 0, fmt.Errorf("prune candles: %w", err)
	}
	return n, nil
}

func (s *CHCandleStore) Latest(ctx context.Context) (models.Candle, bool, error) {
	q := fmt.Sprintf(`
        SELECT time, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY time DESC
        LIMIT 1
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, s.symbol)
	if err != nil {
		return models.Candle{}, false, fmt.Errorf("latest candle: %w", err)
	}
	defer rows.Close()
	out, err := scanCandles(rows)
	if err != nil || len(out) == 0 {
		return models.Candle{}, false, err
	}
	return out[0], true, nil
}

// Close releases the connection pool the store was built on.
func (s *CHCandleStore) Close() error { return s.client.Close() }

func scanCandles(rows *sql.Rows) ([]models.Candle, error) {
	out := make([]models.Candle, 0, 256)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
