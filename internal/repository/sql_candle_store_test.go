package repository

import (
	"context"
	"database/sql"
	"testing"

	pkgch "StratTick/pkg/clickhouse"
	pkgpg "StratTick/pkg/postgres"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sql.Open does not dial, so these pools never touch a server.

func TestPGCandleStore_CloseReleasesPool(t *testing.T) {
	db, err := sqlx.Open("postgres", "postgres://app@127.0.0.1:1/strattick?sslmode=disable")
	require.NoError(t, err)

	store := NewPGCandleStore(pkgpg.NewClientFromDB(db), "candles", "BTCUSDT", nil)
	require.NoError(t, store.Close())

	err = db.PingContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is closed")
}

func TestCHCandleStore_CloseReleasesPool(t *testing.T) {
	db, err := sql.Open("clickhouse", "clickhouse://default:@127.0.0.1:1/strattick")
	require.NoError(t, err)

	store := NewCHCandleStore(pkgch.NewClientFromDB(db), "strattick.candles", "BTCUSDT", nil)
	require.NoError(t, store.Close())

	err = db.PingContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is closed")
}
