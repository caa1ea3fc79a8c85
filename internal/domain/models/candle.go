package models

import "time"

// Candle is one OHLCV bar. Timestamp labels the bar by its close boundary:
// a candle at base granularity g stamped ts covers wall time [ts-g, ts).
type Candle struct {
	Timestamp time.Time `json:"timestamp" db:"time"`
	Open      float64   `json:"open" db:"open"`
	High      float64   `json:"high" db:"high"`
	Low       float64   `json:"low" db:"low"`
	Close     float64   `json:"close" db:"close"`
	Volume    float64   `json:"volume" db:"volume"`
}

// CandleUpdate is a candle pushed by a market data feed.
// Closed is false while the bar is still forming.
type CandleUpdate struct {
	Symbol string `json:"symbol"`
	Candle Candle `json:"candle"`
	Closed bool   `json:"closed"`
}
