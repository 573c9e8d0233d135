package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	xhttp "TurtleDesk/pkg/http"
)

const defaultYahooURL = "https://query1.finance.yahoo.com"

// Yahoo reads the public chart endpoint.
type Yahoo struct {
	client  *xhttp.Client
	baseURL string
}

func NewYahoo(client *xhttp.Client, baseURL string) *Yahoo {
	if baseURL == "" {
		baseURL = defaultYahooURL
	}
	return &Yahoo{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (y *Yahoo) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) History(ctx context.Context, symbol, period, interval string) ([]models.Candle, error) {
	var resp yahooChart
	err := y.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    y.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		Query: map[string][]string{
			"range":    {period},
			"interval": {interval},
		},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, models.ErrNoData
		}
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, models.ErrNoData
		}
		return nil, fmt.Errorf("yahoo chart %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, models.ErrNoData
	}

	res := resp.Chart.Result[0]
	q := res.Indicators.Quote[0]
	candles := make([]models.Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c := models.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
			Volume: at(q.Volume, i),
		}
		candles = append(candles, c)
	}
	return finalize(candles, time.Time{})
}

func at(vs []*float64, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return 0
	}
	return *vs[i]
}
