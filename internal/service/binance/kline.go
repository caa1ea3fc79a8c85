package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"StratTick/internal/domain/models"
)

// restKline is one row of GET /api/v3/klines:
// [openTime, open, high, low, close, volume, closeTime, ...].
type restKline []json.RawMessage

func (k restKline) candle(interval time.Duration) (models.Candle, error) {
	if len(k) < 6 {
		return models.Candle{}, fmt.Errorf("kline has %d fields", len(k))
	}
	var openMs int64
	if err := json.Unmarshal(k[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = f
	}
	return models.Candle{
		Timestamp: closeLabel(openMs, interval),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

type wsKlineEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Kline  struct {
		OpenTime int64  `json:"t"`
		Interval string `json:"i"`
		Open     string `json:"o"`
		Close    string `json:"c"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Volume   string `json:"v"`
		Closed   bool   `json:"x"`
	} `json:"k"`
}

func (e wsKlineEvent) update(interval time.Duration) (models.CandleUpdate, error) {
	k := e.Kline
	vals := make([]float64, 5)
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.CandleUpdate{}, fmt.Errorf("kline field %d: %w", i, err)
		}
		vals[i] = f
	}
	return models.CandleUpdate{
		Symbol: e.Symbol,
		Candle: models.Candle{
			Timestamp: closeLabel(k.OpenTime, interval),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		},
		Closed: k.Closed,
	}, nil
}

// closeLabel converts an exchange open time to the close-boundary label.
func closeLabel(openMs int64, interval time.Duration) time.Time {
	return time.UnixMilli(openMs).UTC().Add(interval)
}
