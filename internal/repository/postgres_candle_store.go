package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	applogger "StratTick/pkg/logger"
	pkgpg "StratTick/pkg/postgres"

	"github.com/jmoiron/sqlx"
)

// PGCandleStore implements CandleStore on PostgreSQL through sqlx.
type PGCandleStore struct {
	client *pkgpg.Client
	db     *sqlx.DB
	table  string
	symbol string
	l      *applogger.Logger
}

func NewPGCandleStore(pg *pkgpg.Client, table, symbol string, l *applogger.Logger) *PGCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &PGCandleStore{client: pg, db: pg.DB(), table: table, symbol: symbol, l: l}
}

// PGCandleSchema returns the DDL for the candle table.
func PGCandleSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol TEXT             NOT NULL,
            time   TIMESTAMPTZ      NOT NULL,
            open   DOUBLE PRECISION NOT NULL,
            high   DOUBLE PRECISION NOT NULL,
            low    DOUBLE PRECISION NOT NULL,
            close  DOUBLE PRECISION NOT NULL,
            volume DOUBLE PRECISION NOT NULL,
            PRIMARY KEY (symbol, time)
        )
    `, table)}
}

type pgCandleRow struct {
	Symbol string `db:"symbol"`
	models.Candle
}

func (s *PGCandleStore) AppendOrUpdate(ctx context.Context, c models.Candle) error {
	return s.AppendOrUpdateBatch(ctx, []models.Candle{c})
}

func (s *PGCandleStore) AppendOrUpdateBatch(ctx context.Context, cs []models.Candle) error {
	if len(cs) == 0 {
		return nil
	}
	q := fmt.Sprintf(`
        INSERT INTO %s (symbol, time, open, high, low, close, volume)
        VALUES (:symbol, :time, :open, :high, :low, :close, :volume)
        ON CONFLICT (symbol, time) DO UPDATE SET
            open = EXCLUDED.open,
            high = EXCLUDED.high,
            low = EXCLUDED.low,
            close = EXCLUDED.close,
            volume = EXCLUDED.volume
    `, s.table)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cs {
		c.Timestamp = c.Timestamp.UTC()
		if _, err := stmt.ExecContext(ctx, pgCandleRow{Symbol: s.symbol, Candle: c}); err != nil {
			s.l.Error("postgres upsert candle", applogger.String("table", s.table), applogger.Time("time", c.Timestamp), applogger.Error(err))
			return fmt.Errorf("upsert candle: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PGCandleStore) QueryRange(ctx context.Context, start, end time.Time) ([]models.Candle, error) {
	q := fmt.Sprintf(`
        SELECT time, open, high, low, close, volume
        FROM %s
        WHERE symbol = $1 AND time >= $2 AND time <= $3
        ORDER BY time ASC
    `, s.table)
	out := []models.Candle{}
	if err := s.db.SelectContext(ctx, &out, q, s.symbol, start.UTC(), end.UTC()); err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	return out, nil
}

func (s *PGCandleStore) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE symbol = $1 AND time < $2", s.table)
	res, err := s.db.ExecContext(ctx, q, s.symbol, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune candles: %w", err)
	}
	return res.RowsAffected()
}

func (s *PGCandleStore) Latest(ctx context.Context) (models.Candle, bool, error) {
	q := fmt.Sprintf(`
        SELECT time, open, high, low, close, volume
        FROM %s
        WHERE symbol = $1
        ORDER BY time DESC
        LIMIT 1
    `, s.table)
	var c models.Candle
	if err := s.db.GetContext(ctx, &c, q, s.symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Candle{}, false, nil
		}
		return models.Candle{}, false, fmt.Errorf("latest candle: %w", err)
	}
	c.Timestamp = c.Timestamp.UTC()
	return c, true, nil
}

// Close releases the connection pool the store was built on.
func (s *PGCandleStore) Close() error { return s.client.Close() }

var _ domrepo.CandleStore = (*PGCandleStore)(nil)
