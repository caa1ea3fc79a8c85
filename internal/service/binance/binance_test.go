package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"StratTick/internal/domain/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klinesBody = `[
  [1704441600000, "42000.1", "42100.0", "41900.5", "42050.0", "12.5", 1704445199999, "0", 10, "0", "0", "0"],
  [1704445200000, "42050.0", "42200.0", "42000.0", "42150.0", "8.25", 1704448799999, "0", 7, "0", "0", "0"]
]`

func TestRESTClient_Klines(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "btcusdt", 5*time.Second)
	start := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	got, err := c.Klines(context.Background(), models.TF1h, start, end, 500)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT"}, query["symbol"])
	assert.Equal(t, []string{"1h"}, query["interval"])
	assert.Equal(t, []string{"1704441600000"}, query["startTime"])
	assert.Equal(t, []string{"1704452400000"}, query["endTime"])
	assert.Equal(t, []string{"500"}, query["limit"])

	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), got[0].Timestamp)
	assert.Equal(t, 42000.1, got[0].Open)
	assert.Equal(t, 41900.5, got[0].Low)
	assert.Equal(t, 12.5, got[0].Volume)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), got[1].Timestamp)
}

func TestRESTClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "nope", time.Second)
	_, err := c.Klines(context.Background(), models.TF1h, time.Unix(0, 0).UTC(), time.Unix(3600, 0).UTC(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

const wsFrame = `{"e":"kline","E":1704445200100,"s":"BTCUSDT","k":{"t":1704441600000,"T":1704445199999,"s":"BTCUSDT","i":"1h","o":"42000.1","c":"42050.0","h":"42100.0","l":"41900.5","v":"12.5","x":true}}`

func TestStream_ReadsKlines(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(wsFrame))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := NewStream("ws"+strings.TrimPrefix(srv.URL, "http"), "BTCUSDT", models.TF1h, 0, 0, nil)
	require.NoError(t, s.Connect(ctx))
	defer s.Close()
	assert.True(t, s.IsConnected())
	assert.Equal(t, "/ws/btcusdt@kline_1h", path)

	updates, _ := s.Read(ctx)
	select {
	case u := <-updates:
		assert.Equal(t, "BTCUSDT", u.Symbol)
		assert.True(t, u.Closed)
		assert.Equal(t, time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), u.Candle.Timestamp)
		assert.Equal(t, 42050.0, u.Candle.Close)
	case <-ctx.Done():
		t.Fatal("no kline received")
	}
}

func TestStream_ReportsDisconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := NewStream("ws"+strings.TrimPrefix(srv.URL, "http"), "BTCUSDT", models.TF1h, 0, 0, nil)
	require.NoError(t, s.Connect(ctx))
	defer s.Close()

	_, errs := s.Read(ctx)
	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-ctx.Done():
		t.Fatal("no error reported")
	}
	assert.False(t, s.IsConnected())
}

func TestStream_ReconnectDoesNotAccumulateGoroutines(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := NewStream("ws"+strings.TrimPrefix(srv.URL, "http"), "BTCUSDT", models.TF1h, time.Millisecond, time.Minute, nil)
	require.NoError(t, s.Connect(ctx))
	defer s.Close()

	cycle := func() {
		updates, errs := s.Read(ctx)
		select {
		case <-errs:
		case <-ctx.Done():
			t.Fatal("no disconnect reported")
		}
		for range updates {
		}
		require.NoError(t, s.Reconnect(ctx))
	}

	cycle()
	time.Sleep(50 * time.Millisecond)
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		cycle()
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 20*time.Millisecond, "goroutines before=%d now=%d", before, runtime.NumGoroutine())
}
