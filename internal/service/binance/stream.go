package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	applogger "StratTick/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements CandleStream over the Binance kline WebSocket.
type Stream struct {
	wsURL          string
	symbol         string
	tf             models.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewStream(wsURL, symbol string, tf models.Timeframe, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *Stream {
	if l == nil {
		l = applogger.Nop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 3 * time.Minute
	}
	return &Stream{
		wsURL:          strings.TrimRight(wsURL, "/"),
		symbol:         symbol,
		tf:             tf,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

func (s *Stream) streamURL() string {
	return fmt.Sprintf("%s/ws/%s@kline_%s", s.wsURL, strings.ToLower(s.symbol), s.tf)
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.l.Info("binance stream connected", applogger.String("symbol", s.symbol), applogger.String("timeframe", s.tf.String()))
	return nil
}

// Read streams kline updates until ctx is done or the connection fails.
// The keepalive pings stop with the reader.
func (s *Stream) Read(ctx context.Context) (<-chan models.CandleUpdate, <-chan error) {
	updates := make(chan models.CandleUpdate, 256)
	errs := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.conn != nil {
					_ = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
				s.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(updates)
		defer close(done)
		interval := s.tf.Duration()
		for {
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("binance conn nil")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					s.mu.Lock()
					s.connected = false
					s.mu.Unlock()
					errs <- fmt.Errorf("binance read: %w", err)
				}
				return
			}
			var ev wsKlineEvent
			if err := json.Unmarshal(b, &ev); err != nil || ev.Event != "kline" {
				continue
			}
			u, err := ev.update(interval)
			if err != nil {
				s.l.Warn("binance kline decode", applogger.Error(err))
				continue
			}
			select {
			case updates <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, errs
}

// Reconnect closes, waits reconnectDelay and dials again.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-time.After(s.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Connect(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

var _ domrepo.CandleStream = (*Stream)(nil)
