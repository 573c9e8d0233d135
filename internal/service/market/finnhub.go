package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	xhttp "TurtleDesk/pkg/http"
	"TurtleDesk/pkg/util"
)

const defaultFinnhubURL = "https://finnhub.io/api/v1"

// Finnhub reads the stock candle endpoint.
type Finnhub struct {
	client  *xhttp.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func NewFinnhub(client *xhttp.Client, baseURL, apiKey string) *Finnhub {
	if baseURL == "" {
		baseURL = defaultFinnhubURL
	}
	return &Finnhub{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, now: time.Now}
}

func (f *Finnhub) Name() string { return "finnhub" }

type fhCandles struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	V []float64 `json:"v"`
	T []int64   `json:"t"`
	S string    `json:"s"`
}

func (f *Finnhub) History(ctx context.Context, symbol, period, interval string) ([]models.Candle, error) {
	now := f.now()
	from, err := util.ParsePeriod(period, now)
	if err != nil {
		return nil, err
	}
	res, err := finnhubResolution(interval)
	if err != nil {
		return nil, err
	}

	var resp fhCandles
	err = f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.baseURL + "/stock/candle",
		Query: map[string][]string{
			"symbol":     {symbol},
			"resolution": {res},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(now.Unix(), 10)},
		},
		Headers: map[string]string{"X-Finnhub-Token": f.apiKey},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("finnhub candles %s: %w", symbol, err)
	}
	if resp.S != "ok" {
		return nil, models.ErrNoData
	}

	candles := make([]models.Candle, 0, len(resp.T))
	for i, ts := range resp.T {
		if i >= len(resp.C) || i >= len(resp.H) || i >= len(resp.L) {
			break
		}
		c := models.Candle{Time: time.Unix(ts, 0).UTC(), High: resp.H[i], Low: resp.L[i], Close: resp.C[i]}
		if i < len(resp.O) {
			c.Open = resp.O[i]
		}
		if i < len(resp.V) {
			c.Volume = resp.V[i]
		}
		candles = append(candles, c)
	}
	return finalize(candles, from)
}

func finnhubResolution(interval string) (string, error) {
	switch interval {
	case "1m":
		return "1", nil
	case "5m":
		return "5", nil
	case "15m":
		return "15", nil
	case "30m":
		return "30", nil
	case "1h":
		return "60", nil
	case "1d":
		return "D", nil
	case "1wk":
		return "W", nil
	case "1mo":
		return "M", nil
	}
	return "", fmt.Errorf("finnhub: unsupported interval %q", interval)
}
