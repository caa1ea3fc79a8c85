package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	xhttp "StratTick/pkg/http"
)

// RESTClient fetches historical klines for backfill.
type RESTClient struct {
	baseURL string
	symbol  string
	http    *xhttp.Client
}

func NewRESTClient(baseURL, symbol string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		symbol:  strings.ToUpper(symbol),
		http: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithRetry(3, time.Second, 30*time.Second),
			xhttp.WithHeader("Accept", "application/json"),
		),
	}
}

// Klines returns candles whose close label lies in [start, end], oldest first.
func (c *RESTClient) Klines(ctx context.Context, tf models.Timeframe, start, end time.Time, limit int) ([]models.Candle, error) {
	step := tf.Duration()
	if step <= 0 {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	var rows []restKline
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":    {c.symbol},
			"interval":  {tf.String()},
			"startTime": {strconv.FormatInt(start.Add(-step).UnixMilli(), 10)},
			"endTime":   {strconv.FormatInt(end.Add(-step).UnixMilli(), 10)},
			"limit":     {strconv.Itoa(limit)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}

	out := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		candle, err := r.candle(step)
		if err != nil {
			return nil, fmt.Errorf("binance klines: %w", err)
		}
		out = append(out, candle)
	}
	return out, nil
}

var _ domrepo.KlineSource = (*RESTClient)(nil)
